package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kelsos/tezos-dapp/internal/wallet"
)

var errNoProgram = errors.New("pairing prompt is not attached to a running UI")

// PromptApprover shows pairing requests inside the TUI and waits for the answer
type PromptApprover struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func NewPromptApprover() *PromptApprover {
	return &PromptApprover{}
}

// Attach routes prompts to a running program; nil detaches
func (a *PromptApprover) Attach(send func(tea.Msg)) {
	a.mu.Lock()
	a.send = send
	a.mu.Unlock()
}

func (a *PromptApprover) Approve(ctx context.Context, req wallet.PairingRequest) (wallet.PairingResponse, error) {
	a.mu.RLock()
	send := a.send
	a.mu.RUnlock()
	if send == nil {
		return wallet.PairingResponse{}, errNoProgram
	}

	uri, err := req.URI()
	if err != nil {
		return wallet.PairingResponse{}, fmt.Errorf("failed to build pairing URI: %w", err)
	}
	qr, err := req.QRCode()
	if err != nil {
		return wallet.PairingResponse{}, fmt.Errorf("failed to render pairing QR code: %w", err)
	}

	// buffered so Update never blocks on a requester that already gave up
	reply := make(chan PairingAnswer, 1)
	send(PairingMsg{Request: req, URI: uri, QR: qr, Reply: reply})

	select {
	case answer := <-reply:
		return answer.Response, answer.Err
	case <-ctx.Done():
		send(pairingCancelledMsg{ID: req.ID})
		return wallet.PairingResponse{}, ctx.Err()
	}
}
