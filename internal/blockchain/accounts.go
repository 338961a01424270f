package blockchain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kelsos/tezos-dapp/internal/client"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// Account fetches an implicit account; unknown addresses come back with type "empty"
func (e *Explorer) Account(ctx context.Context, address string) (*models.Account, error) {
	if _, err := tezos.ValidateAddress(address); err != nil {
		return nil, err
	}

	account, err := client.GetJSON[models.Account](ctx, e.api, fmt.Sprintf("/v1/accounts/%s", address))
	if err != nil {
		return nil, wrapLookup("account", address, err)
	}
	return account, nil
}

// Contract fetches a smart contract together with its entrypoints
func (e *Explorer) Contract(ctx context.Context, address string) (*models.Contract, error) {
	kind, err := tezos.ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	if kind != tezos.KindOriginated {
		return nil, fmt.Errorf("%s is not a contract address", address)
	}

	contract, err := client.GetJSON[models.Contract](ctx, e.api, fmt.Sprintf("/v1/contracts/%s", address))
	if err != nil {
		return nil, wrapLookup("contract", address, err)
	}

	entrypoints, err := e.Entrypoints(ctx, address)
	if err != nil {
		// the contract record alone is still worth showing
		logger.Warn("Failed to fetch entrypoints for %s: %v", address, err)
	} else {
		contract.Entrypoints = entrypoints
	}

	return contract, nil
}

// Entrypoints lists the entrypoints of a contract
func (e *Explorer) Entrypoints(ctx context.Context, address string) ([]models.Entrypoint, error) {
	var entrypoints []models.Entrypoint
	endpoint := fmt.Sprintf("/v1/contracts/%s/entrypoints", address)
	if err := e.api.Get(ctx, endpoint, &entrypoints); err != nil {
		return nil, wrapLookup("entrypoints of", address, err)
	}
	return entrypoints, nil
}

// TokenBalances lists the non-zero token holdings of an account, newest first
func (e *Explorer) TokenBalances(ctx context.Context, address string, limit int) ([]models.TokenBalance, error) {
	if _, err := tezos.ValidateAddress(address); err != nil {
		return nil, err
	}

	endpoint := client.BuildURLWithParams("/v1/tokens/balances", url.Values{
		"account":    {address},
		"balance.gt": {"0"},
		"sort.desc":  {"lastLevel"},
		"limit":      {pageSize(limit)},
	})

	var balances []models.TokenBalance
	if err := e.api.Get(ctx, endpoint, &balances); err != nil {
		return nil, fmt.Errorf("failed to fetch token balances of %s: %w", address, err)
	}

	logger.Info("Found %d tokens held by %s", len(balances), address)
	return balances, nil
}
