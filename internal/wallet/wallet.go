// Package wallet pairs the dApp with a Tezos wallet and tracks the wallet's
// active account.
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/kelsos/tezos-dapp/internal/network"
)

// ErrPairingRejected is returned when the user or wallet declines a pairing request
var ErrPairingRejected = errors.New("pairing request rejected")

// Permission is what a successful pairing grants the dApp
type Permission struct {
	Address   string
	PublicKey string
	Network   network.ID
}

// AccountInfo describes the wallet's active account
type AccountInfo struct {
	Address     string
	PublicKey   string
	Network     network.ID
	ConnectedAt time.Time
}

// Client is the wallet-pairing collaborator of the session store
type Client interface {
	// RequestPermissions runs a pairing handshake and returns the granted account
	RequestPermissions(ctx context.Context) (Permission, error)
	// ActiveAccount returns the currently paired account, or nil
	ActiveAccount(ctx context.Context) (*AccountInfo, error)
	// SubscribeActiveAccount calls fn whenever the active account may have changed.
	// fn runs on a goroutine owned by the client.
	SubscribeActiveAccount(fn func(*AccountInfo)) (unsubscribe func())
	// ClearActiveAccount forgets the paired account
	ClearActiveAccount(ctx context.Context) error
}
