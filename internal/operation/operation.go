// Package operation validates transfer and contract-call drafts entered by the
// user. Drafts are never signed or injected here; a wallet does that.
package operation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// EstimatedFee is the flat fee shown next to drafts, in mutez
const EstimatedFee int64 = 1_000

var (
	ErrNotConnected     = errors.New("connect a wallet first")
	ErrInsufficientFund = errors.New("amount plus fee exceeds balance")
	ErrUnknownEntry     = errors.New("contract has no such entrypoint")
)

var entrypointPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,30}$`)

// Assets the transfer form offers; tez is native, the rest are FA tokens
var Assets = []string{"tez", "uUSD", "tzBTC", "QUIPU"}

// Transfer is a validated transfer draft
type Transfer struct {
	From   string
	To     string
	Asset  string
	Amount int64
	Memo   string
}

// Summary renders the draft for confirmation
func (t Transfer) Summary() string {
	amount := tezos.FormatTez(t.Amount) + " " + t.Asset
	s := fmt.Sprintf("send %s from %s to %s (fee ~%s tez)",
		amount, tezos.ShortAddress(t.From), tezos.ShortAddress(t.To), tezos.FormatTez(EstimatedFee))
	if t.Memo != "" {
		s += fmt.Sprintf(" memo %q", t.Memo)
	}
	return s
}

// TransferInput is the raw form input
type TransferInput struct {
	Recipient string
	Amount    string
	Asset     string
	Memo      string
}

// NewTransfer validates a transfer from the connected account.
// balance is only checked for tez transfers.
func NewTransfer(from string, balance int64, in TransferInput) (Transfer, error) {
	if from == "" {
		return Transfer{}, ErrNotConnected
	}

	to := strings.TrimSpace(in.Recipient)
	if _, err := tezos.ValidateAddress(to); err != nil {
		return Transfer{}, fmt.Errorf("recipient: %w", err)
	}
	if to == from {
		return Transfer{}, errors.New("recipient is the sending account")
	}

	asset := strings.TrimSpace(in.Asset)
	if asset == "" {
		asset = "tez"
	}
	if !slices.Contains(Assets, asset) {
		return Transfer{}, fmt.Errorf("unsupported asset %q", asset)
	}

	amount, err := tezos.ParseTez(in.Amount)
	if err != nil {
		return Transfer{}, fmt.Errorf("amount: %w", err)
	}
	if amount == 0 {
		return Transfer{}, errors.New("amount must be greater than zero")
	}
	if asset == "tez" && amount > balance-EstimatedFee {
		return Transfer{}, ErrInsufficientFund
	}

	return Transfer{
		From:   from,
		To:     to,
		Asset:  asset,
		Amount: amount,
		Memo:   strings.TrimSpace(in.Memo),
	}, nil
}

// ContractCall is a validated contract invocation draft
type ContractCall struct {
	Contract   string
	Entrypoint string
	Parameters json.RawMessage
}

// Summary renders the draft for confirmation
func (c ContractCall) Summary() string {
	return fmt.Sprintf("call %s on %s with %s", c.Entrypoint, tezos.ShortAddress(c.Contract), string(c.Parameters))
}

// CallInput is the raw form input
type CallInput struct {
	Contract   string
	Entrypoint string
	Parameters string
}

// NewContractCall validates a call. When known is non-empty the entrypoint
// must be one of them.
func NewContractCall(in CallInput, known []string) (ContractCall, error) {
	contract := strings.TrimSpace(in.Contract)
	kind, err := tezos.ValidateAddress(contract)
	if err != nil {
		return ContractCall{}, fmt.Errorf("contract: %w", err)
	}
	if kind != tezos.KindOriginated {
		return ContractCall{}, fmt.Errorf("contract: %s is not a KT1 address", contract)
	}

	entry := strings.TrimSpace(in.Entrypoint)
	if entry == "" {
		entry = "default"
	}
	if !entrypointPattern.MatchString(entry) {
		return ContractCall{}, fmt.Errorf("invalid entrypoint name %q", entry)
	}
	if len(known) > 0 && !slices.Contains(known, entry) {
		return ContractCall{}, fmt.Errorf("%w: %s", ErrUnknownEntry, entry)
	}

	params := strings.TrimSpace(in.Parameters)
	if params == "" {
		params = `{"prim":"Unit"}`
	}
	if !json.Valid([]byte(params)) {
		return ContractCall{}, errors.New("parameters must be valid JSON")
	}

	return ContractCall{
		Contract:   contract,
		Entrypoint: entry,
		Parameters: json.RawMessage(params),
	}, nil
}

// SampleContract is a well-known contract offered as a starting point
type SampleContract struct {
	Name        string
	Address     string
	Entrypoints []string
}

// Samples lists the demo contracts shown in the call form
var Samples = []SampleContract{
	{Name: "Simple FA2 Token", Address: "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton", Entrypoints: []string{"transfer", "balance_of", "update_operators"}},
	{Name: "NFT Marketplace", Address: "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn", Entrypoints: []string{"sell", "buy", "cancel", "update_price"}},
}

// KnownEntrypoints returns the sample entrypoints for address, if it is a sample
func KnownEntrypoints(address string) []string {
	for _, s := range Samples {
		if s.Address == address {
			return s.Entrypoints
		}
	}
	return nil
}
