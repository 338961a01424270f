package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the TzKT /v1/accounts/{address} record
type Account struct {
	Type              string     `json:"type"`
	Address           string     `json:"address"`
	Alias             string     `json:"alias,omitempty"`
	PublicKey         string     `json:"publicKey,omitempty"`
	Revealed          bool       `json:"revealed"`
	Balance           int64      `json:"balance"`
	Counter           int64      `json:"counter"`
	Delegate          *Alias     `json:"delegate,omitempty"`
	NumTransactions   int64      `json:"numTransactions"`
	FirstActivityTime *time.Time `json:"firstActivityTime,omitempty"`
	LastActivityTime  *time.Time `json:"lastActivityTime,omitempty"`
}

// Contract is the TzKT /v1/contracts/{address} record
type Contract struct {
	Type              string       `json:"type"`
	Address           string       `json:"address"`
	Kind              string       `json:"kind"`
	Alias             string       `json:"alias,omitempty"`
	Balance           int64        `json:"balance"`
	Creator           *Alias       `json:"creator,omitempty"`
	Tzips             []string     `json:"tzips,omitempty"`
	NumTransactions   int64        `json:"numTransactions"`
	FirstActivityTime *time.Time   `json:"firstActivityTime,omitempty"`
	LastActivityTime  *time.Time   `json:"lastActivityTime,omitempty"`
	Entrypoints       []Entrypoint `json:"-"`
}

// Entrypoint is one named, typed function of a deployed contract
type Entrypoint struct {
	Name           string      `json:"name"`
	JSONParameters interface{} `json:"jsonParameters,omitempty"`
	Unused         bool        `json:"unused"`
}

// TokenBalance is one row of /v1/tokens/balances
type TokenBalance struct {
	ID      int64  `json:"id"`
	Account *Alias `json:"account"`
	Token   Token  `json:"token"`
	Balance string `json:"balance"`
}

// Amount scales the raw balance by the token's decimals
func (b TokenBalance) Amount() string {
	raw, err := decimal.NewFromString(b.Balance)
	if err != nil {
		return b.Balance
	}
	decimals, err := strconv.Atoi(b.Token.Metadata.Decimals)
	if err != nil || decimals <= 0 {
		return raw.String()
	}
	return raw.Shift(int32(-decimals)).String()
}

// Token identifies an FA1.2/FA2 token and carries its off-chain metadata
type Token struct {
	ID       int64         `json:"id"`
	Contract Alias         `json:"contract"`
	TokenID  string        `json:"tokenId"`
	Standard string        `json:"standard"`
	Metadata TokenMetadata `json:"metadata"`
}

// TokenMetadata is the TZIP-21 subset the gallery view renders
type TokenMetadata struct {
	Name         string `json:"name,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	Decimals     string `json:"decimals,omitempty"`
	ThumbnailURI string `json:"thumbnailUri,omitempty"`
	DisplayURI   string `json:"displayUri,omitempty"`
}

// DisplayName falls back from name to symbol to contract:tokenId
func (t Token) DisplayName() string {
	switch {
	case t.Metadata.Name != "":
		return t.Metadata.Name
	case t.Metadata.Symbol != "":
		return t.Metadata.Symbol
	default:
		return t.Contract.Address + ":" + t.TokenID
	}
}
