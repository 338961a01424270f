package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/tezos-dapp/internal/tezos"
)

const (
	alice    = "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb"
	bob      = "tz1aSkwEot3L2kmUvcoxzjMomb9mvBNuzFK6"
	fa2Token = "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"
)

func TestNewTransfer(t *testing.T) {
	tr, err := NewTransfer(alice, 5_000_000, TransferInput{Recipient: " " + bob, Amount: "1.5", Memo: "rent"})
	require.NoError(t, err)
	assert.Equal(t, Transfer{From: alice, To: bob, Asset: "tez", Amount: 1_500_000, Memo: "rent"}, tr)
	assert.Contains(t, tr.Summary(), "send 1.5 tez")
	assert.Contains(t, tr.Summary(), `memo "rent"`)
}

func TestNewTransfer_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		balance int64
		in      TransferInput
		target  error
	}{
		{"not connected", "", 10, TransferInput{Recipient: bob, Amount: "1"}, ErrNotConnected},
		{"bad recipient", alice, 10_000_000, TransferInput{Recipient: "tz1nope", Amount: "1"}, tezos.ErrInvalidAddress},
		{"self", alice, 10_000_000, TransferInput{Recipient: alice, Amount: "1"}, nil},
		{"zero", alice, 10_000_000, TransferInput{Recipient: bob, Amount: "0"}, nil},
		{"too precise", alice, 10_000_000, TransferInput{Recipient: bob, Amount: "0.0000001"}, nil},
		{"unknown asset", alice, 10_000_000, TransferInput{Recipient: bob, Amount: "1", Asset: "DOGE"}, nil},
		{"balance", alice, 1_000_000, TransferInput{Recipient: bob, Amount: "1"}, ErrInsufficientFund},
		{"amount near int64 max", alice, 5, TransferInput{Recipient: bob, Amount: "9223372036854.775307"}, ErrInsufficientFund},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransfer(tt.from, tt.balance, tt.in)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestNewTransfer_TokenSkipsBalanceCheck(t *testing.T) {
	tr, err := NewTransfer(alice, 0, TransferInput{Recipient: bob, Amount: "10", Asset: "tzBTC"})
	require.NoError(t, err)
	assert.Equal(t, "tzBTC", tr.Asset)
}

func TestNewContractCall(t *testing.T) {
	call, err := NewContractCall(CallInput{Contract: fa2Token, Entrypoint: "transfer", Parameters: `[{"prim":"Pair"}]`}, KnownEntrypoints(fa2Token))
	require.NoError(t, err)
	assert.Equal(t, "transfer", call.Entrypoint)
	assert.JSONEq(t, `[{"prim":"Pair"}]`, string(call.Parameters))
	assert.Contains(t, call.Summary(), "call transfer on KT1RJ6P")

	call, err = NewContractCall(CallInput{Contract: fa2Token}, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", call.Entrypoint)
	assert.JSONEq(t, `{"prim":"Unit"}`, string(call.Parameters))
}

func TestNewContractCall_Invalid(t *testing.T) {
	known := KnownEntrypoints(fa2Token)

	_, err := NewContractCall(CallInput{Contract: alice}, known)
	assert.Error(t, err)

	_, err = NewContractCall(CallInput{Contract: fa2Token, Entrypoint: "mint"}, known)
	assert.ErrorIs(t, err, ErrUnknownEntry)

	_, err = NewContractCall(CallInput{Contract: fa2Token, Entrypoint: "bad name"}, nil)
	assert.Error(t, err)

	_, err = NewContractCall(CallInput{Contract: fa2Token, Entrypoint: "transfer", Parameters: "{oops"}, known)
	assert.Error(t, err)
}

func TestKnownEntrypoints(t *testing.T) {
	assert.Contains(t, KnownEntrypoints(fa2Token), "balance_of")
	assert.Nil(t, KnownEntrypoints(bob))
}
