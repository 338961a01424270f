package models

import "time"

// Block is the TzKT /v1/blocks record
type Block struct {
	Cycle        int64       `json:"cycle"`
	Level        int64       `json:"level"`
	Hash         string      `json:"hash"`
	Timestamp    time.Time   `json:"timestamp"`
	Proto        int         `json:"proto"`
	PayloadRound int         `json:"payloadRound"`
	BlockRound   int         `json:"blockRound"`
	Fees         int64       `json:"fees"`
	Reward       int64       `json:"reward"`
	Proposer     *Alias      `json:"proposer,omitempty"`
	Producer     *Alias      `json:"producer,omitempty"`
	Transactions []Operation `json:"transactions,omitempty"`
}

// Head is the TzKT /v1/head indexer state
type Head struct {
	Chain     string    `json:"chain"`
	ChainID   string    `json:"chainId"`
	Level     int64     `json:"level"`
	Hash      string    `json:"hash"`
	Protocol  string    `json:"protocol"`
	Timestamp time.Time `json:"timestamp"`
	Synced    bool      `json:"synced"`
}

// Operation is a TzKT operation of any type; fields absent for a type stay zero
type Operation struct {
	Type               string     `json:"type"`
	ID                 int64      `json:"id"`
	Level              int64      `json:"level"`
	Timestamp          time.Time  `json:"timestamp"`
	Block              string     `json:"block"`
	Hash               string     `json:"hash"`
	Counter            int64      `json:"counter"`
	Sender             *Alias     `json:"sender,omitempty"`
	Target             *Alias     `json:"target,omitempty"`
	NewDelegate        *Alias     `json:"newDelegate,omitempty"`
	OriginatedContract *Alias     `json:"originatedContract,omitempty"`
	Amount             int64      `json:"amount"`
	BakerFee           int64      `json:"bakerFee"`
	GasUsed            int64      `json:"gasUsed"`
	Status             string     `json:"status"`
	Parameter          *Parameter `json:"parameter,omitempty"`
}

// Parameter is the entrypoint call attached to a transaction
type Parameter struct {
	Entrypoint string      `json:"entrypoint"`
	Value      interface{} `json:"value,omitempty"`
}

// Counterparty returns the most relevant other side of the operation
func (o Operation) Counterparty() *Alias {
	switch {
	case o.Target != nil:
		return o.Target
	case o.OriginatedContract != nil:
		return o.OriginatedContract
	default:
		return o.NewDelegate
	}
}

// Overview is the landing page of the explorer view
type Overview struct {
	Blocks     []Block
	Operations []Operation
	FetchedAt  time.Time
}
