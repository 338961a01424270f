package models

// Alias is the {alias, address} pair TzKT embeds wherever it references an account
type Alias struct {
	Alias   string `json:"alias,omitempty"`
	Address string `json:"address"`
}

// Label prefers the human alias over the raw address
func (a *Alias) Label() string {
	if a == nil {
		return ""
	}
	if a.Alias != "" {
		return a.Alias
	}
	return a.Address
}

// QueryKind tags which member of QueryResult is populated
type QueryKind string

const (
	QueryBlock     QueryKind = "block"
	QueryOperation QueryKind = "operation"
	QueryAccount   QueryKind = "account"
	QueryContract  QueryKind = "contract"
)

// QueryResult is the transient answer to one explorer search
type QueryResult struct {
	Kind       QueryKind
	Query      string
	Block      *Block
	Operations []Operation
	Account    *Account
	Contract   *Contract
}
