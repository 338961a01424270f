package blockchain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kelsos/tezos-dapp/internal/client"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/models"
)

// Block fetches a block by level or hash, including its transactions
func (e *Explorer) Block(ctx context.Context, levelOrHash string) (*models.Block, error) {
	endpoint := client.BuildURLWithParams(
		fmt.Sprintf("/v1/blocks/%s", url.PathEscape(levelOrHash)),
		url.Values{"operations": {"true"}},
	)

	block, err := client.GetJSON[models.Block](ctx, e.api, endpoint)
	if err != nil {
		return nil, wrapLookup("block", levelOrHash, err)
	}

	logger.Debug("Fetched block %d with %d transactions", block.Level, len(block.Transactions))
	return block, nil
}

// RecentBlocks returns the newest blocks, highest level first
func (e *Explorer) RecentBlocks(ctx context.Context, limit int) ([]models.Block, error) {
	endpoint := client.BuildURLWithParams("/v1/blocks", url.Values{
		"sort.desc": {"level"},
		"limit":     {pageSize(limit)},
	})

	var blocks []models.Block
	if err := e.api.Get(ctx, endpoint, &blocks); err != nil {
		return nil, fmt.Errorf("failed to fetch recent blocks: %w", err)
	}

	logger.Debug("Fetched %d recent blocks", len(blocks))
	return blocks, nil
}

// Operations fetches every operation in an operation group by hash
func (e *Explorer) Operations(ctx context.Context, hash string) ([]models.Operation, error) {
	var ops []models.Operation
	if err := e.api.Get(ctx, fmt.Sprintf("/v1/operations/%s", url.PathEscape(hash)), &ops); err != nil {
		return nil, wrapLookup("operation", hash, err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("operation %s: %w", hash, ErrNotFound)
	}
	return ops, nil
}

// RecentOperations returns the newest transactions, newest first
func (e *Explorer) RecentOperations(ctx context.Context, limit int) ([]models.Operation, error) {
	endpoint := client.BuildURLWithParams("/v1/operations/transactions", url.Values{
		"sort.desc": {"id"},
		"limit":     {pageSize(limit)},
	})

	var ops []models.Operation
	if err := e.api.Get(ctx, endpoint, &ops); err != nil {
		return nil, fmt.Errorf("failed to fetch recent operations: %w", err)
	}

	logger.Debug("Fetched %d recent operations", len(ops))
	return ops, nil
}
