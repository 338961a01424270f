package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBalance_Amount(t *testing.T) {
	tests := []struct {
		balance  string
		decimals string
		want     string
	}{
		{"1500000", "6", "1.5"},
		{"123456789012345678901234", "18", "123456.789012345678901234"},
		{"42", "", "42"},
		{"42", "0", "42"},
		{"7", "8", "0.00000007"},
		{"not-a-number", "6", "not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.balance+"/"+tt.decimals, func(t *testing.T) {
			b := TokenBalance{Balance: tt.balance, Token: Token{Metadata: TokenMetadata{Decimals: tt.decimals}}}
			assert.Equal(t, tt.want, b.Amount())
		})
	}
}

func TestToken_DisplayName(t *testing.T) {
	tok := Token{Contract: Alias{Address: "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"}, TokenID: "0"}
	assert.Equal(t, "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton:0", tok.DisplayName())

	tok.Metadata.Symbol = "tzBTC"
	assert.Equal(t, "tzBTC", tok.DisplayName())

	tok.Metadata.Name = "tzBTC Token"
	assert.Equal(t, "tzBTC Token", tok.DisplayName())
}

func TestAliasAndCounterparty(t *testing.T) {
	var missing *Alias
	assert.Equal(t, "", missing.Label())
	assert.Equal(t, "Bob", (&Alias{Alias: "Bob", Address: "tz1aSkwEot3L2kmUvcoxzjMomb9mvBNuzFK6"}).Label())

	origination := Operation{OriginatedContract: &Alias{Address: "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn"}}
	assert.Equal(t, "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn", origination.Counterparty().Label())
	assert.Nil(t, Operation{}.Counterparty())
}
