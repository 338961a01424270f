package tui

import (
	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

// SessionMsg carries a new session snapshot
type SessionMsg struct {
	Session session.Session
}

// LogMessage is one line for the recent-log panel
type LogMessage struct {
	Level   string
	Message string
}

// OverviewMsg carries a refreshed explorer overview or the refresh error
type OverviewMsg struct {
	Overview *models.Overview
	Err      error
}

// PairingMsg asks the user to approve a pairing request
type PairingMsg struct {
	Request wallet.PairingRequest
	URI     string
	QR      string
	Reply   chan<- PairingAnswer
}

// PairingAnswer is the user's reply to a PairingMsg
type PairingAnswer struct {
	Response wallet.PairingResponse
	Err      error
}

// pairingCancelledMsg closes the prompt when the requester gave up
type pairingCancelledMsg struct {
	ID string
}

type opDoneMsg struct {
	op  string
	err error
}

type searchDoneMsg struct {
	query  string
	result *models.QueryResult
	err    error
}
