package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/kelsos/tezos-dapp/internal/client"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// BalanceReader is the single chain operation the session store needs.
type BalanceReader interface {
	Balance(ctx context.Context, address string) (int64, error)
}

// BlockHeader is the subset of /chains/main/blocks/head/header shown to users.
type BlockHeader struct {
	Protocol  string    `json:"protocol"`
	ChainID   string    `json:"chain_id"`
	Hash      string    `json:"hash"`
	Level     int64     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeVersion is the answer of /version.
type NodeVersion struct {
	Version struct {
		Major          int         `json:"major"`
		Minor          int         `json:"minor"`
		AdditionalInfo interface{} `json:"additional_info"`
	} `json:"version"`
	NetworkVersion struct {
		ChainName string `json:"chain_name"`
	} `json:"network_version"`
}

func (v NodeVersion) String() string {
	return fmt.Sprintf("v%d.%d (%s)", v.Version.Major, v.Version.Minor, v.NetworkVersion.ChainName)
}

// Client talks to a Tezos node's RPC interface.
type Client struct {
	api *client.APIClient
}

// NewClient creates a node RPC client for endpoint.
func NewClient(endpoint string, opts ...client.Option) *Client {
	return &Client{api: client.NewAPIClient(endpoint, "rpc", opts...)}
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string {
	return c.api.BaseURL()
}

// Balance returns the spendable balance of address in mutez.
func (c *Client) Balance(ctx context.Context, address string) (int64, error) {
	if _, err := tezos.ValidateAddress(address); err != nil {
		return 0, err
	}

	var raw string
	endpoint := fmt.Sprintf("/chains/main/blocks/head/context/contracts/%s/balance", address)
	if err := c.api.Get(ctx, endpoint, &raw); err != nil {
		return 0, fmt.Errorf("failed to fetch balance of %s: %w", address, err)
	}

	balance, err := tezos.ParseMutez(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance of %s: %w", address, err)
	}
	return balance, nil
}

// Head returns the header of the current head block.
func (c *Client) Head(ctx context.Context) (*BlockHeader, error) {
	header, err := client.GetJSON[BlockHeader](ctx, c.api, "/chains/main/blocks/head/header")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch head header: %w", err)
	}
	return header, nil
}

// Version returns the node software version.
func (c *Client) Version(ctx context.Context) (*NodeVersion, error) {
	version, err := client.GetJSON[NodeVersion](ctx, c.api, "/version")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch node version: %w", err)
	}
	return version, nil
}
