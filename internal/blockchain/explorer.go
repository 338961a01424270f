// Package blockchain reads indexed chain data from a TzKT-compatible
// explorer API: blocks, operations, accounts, contracts and tokens.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kelsos/tezos-dapp/internal/client"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

var (
	ErrUnrecognizedQuery = errors.New("query is not a block level, hash or address")
	ErrNotFound          = errors.New("not found")
)

const DefaultPageSize = 10

var levelPattern = regexp.MustCompile(`^[0-9]+$`)

// Explorer queries one network's explorer API
type Explorer struct {
	api *client.APIClient
}

// NewExplorer creates an explorer client for the given API base URL
func NewExplorer(apiURL string, opts ...client.Option) *Explorer {
	return &Explorer{api: client.NewAPIClient(apiURL, "explorer", opts...)}
}

// BaseURL returns the explorer API base URL
func (e *Explorer) BaseURL() string {
	return e.api.BaseURL()
}

// Classify decides what a free-form search string refers to
func Classify(query string) (models.QueryKind, error) {
	q := strings.TrimSpace(query)
	switch {
	case q == "":
		return "", ErrUnrecognizedQuery
	case levelPattern.MatchString(q):
		return models.QueryBlock, nil
	case strings.HasPrefix(q, "B") && tezos.IsBlockHash(q):
		return models.QueryBlock, nil
	case strings.HasPrefix(q, "o") && tezos.IsOperationHash(q):
		return models.QueryOperation, nil
	}

	kind, err := tezos.ValidateAddress(q)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedQuery, q)
	}
	if kind == tezos.KindOriginated {
		return models.QueryContract, nil
	}
	return models.QueryAccount, nil
}

// Search classifies query and fetches the matching record
func (e *Explorer) Search(ctx context.Context, query string) (*models.QueryResult, error) {
	q := strings.TrimSpace(query)
	kind, err := Classify(q)
	if err != nil {
		return nil, err
	}

	logger.Debug("Explorer search %q classified as %s", q, kind)
	result := &models.QueryResult{Kind: kind, Query: q}

	switch kind {
	case models.QueryBlock:
		result.Block, err = e.Block(ctx, q)
	case models.QueryOperation:
		result.Operations, err = e.Operations(ctx, q)
	case models.QueryAccount:
		result.Account, err = e.Account(ctx, q)
	case models.QueryContract:
		result.Contract, err = e.Contract(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Overview fetches recent blocks and transactions concurrently
func (e *Explorer) Overview(ctx context.Context, limit int) (*models.Overview, error) {
	overview := &models.Overview{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		blocks, err := e.RecentBlocks(gCtx, limit)
		overview.Blocks = blocks
		return err
	})
	g.Go(func() error {
		ops, err := e.RecentOperations(gCtx, limit)
		overview.Operations = ops
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview.FetchedAt = time.Now()
	return overview, nil
}

// Head returns the indexer head
func (e *Explorer) Head(ctx context.Context) (*models.Head, error) {
	head, err := client.GetJSON[models.Head](ctx, e.api, "/v1/head")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch explorer head: %w", err)
	}
	return head, nil
}

func pageSize(limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return strconv.Itoa(limit)
}

// wrapLookup turns 404/204 answers into ErrNotFound
func wrapLookup(what, id string, err error) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s %s: %w", what, id, err)
}
