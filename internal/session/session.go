// Package session holds the dApp's wallet connection state and the
// operations that change it.
package session

import (
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// Status is the connection state of a session
type Status int

const (
	StatusUninitialized Status = iota
	StatusDisconnected
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	default:
		return "uninitialized"
	}
}

// Account is the connected wallet account; Balance is in mutez
type Account struct {
	Address string
	Balance int64
}

// BalanceTez formats the balance for display
func (a Account) BalanceTez() string {
	return tezos.FormatTez(a.Balance)
}

// Session is an immutable snapshot of the store.
// Account is non-nil if and only if Status is StatusConnected.
type Session struct {
	Status        Status
	Account       *Account
	Network       network.Network
	WalletNetwork network.ID
	Version       uint64
}

// Connected reports whether a wallet account is connected
func (s Session) Connected() bool {
	return s.Status == StatusConnected
}

// Initialized reports whether the wallet client finished loading
func (s Session) Initialized() bool {
	return s.Status != StatusUninitialized
}

// NetworkMismatch reports a connected session whose selected network differs
// from the network the wallet was paired on. Reads follow the selected
// network; the wallet still answers for its own.
func (s Session) NetworkMismatch() bool {
	return s.Connected() && s.WalletNetwork != "" && s.Network.ID != s.WalletNetwork
}

func (s Session) clone() Session {
	if s.Account != nil {
		a := *s.Account
		s.Account = &a
	}
	return s
}
