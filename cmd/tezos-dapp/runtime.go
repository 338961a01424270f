package main

import (
	"fmt"
	"sync"

	"github.com/kelsos/tezos-dapp/internal/blockchain"
	"github.com/kelsos/tezos-dapp/internal/client"
	"github.com/kelsos/tezos-dapp/internal/config"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/rpc"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/storage"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

// runtime holds what every command builds from the configuration
type runtime struct {
	cfg      *config.Config
	registry *network.Registry
	accounts *storage.AccountStore

	mu      sync.Mutex
	wallets []*wallet.LocalClient
}

func newRuntime(networkFlag string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if networkFlag != "" {
		cfg.Network = networkFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	registry, err := network.NewRegistry(network.Options{
		Default:      cfg.Network,
		RPCOverrides: cfg.RPCOverrides(),
		APIOverrides: cfg.APIOverrides(),
		File:         cfg.NetworksFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load networks: %w", err)
	}
	if _, ok := registry.Get(network.ID(cfg.Network)); !ok {
		logger.Warn("Unknown network %q, using %s", cfg.Network, registry.DefaultNetwork().ID)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	accounts, err := storage.NewAccountStore(dataDir)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, registry: registry, accounts: accounts}, nil
}

func (r *runtime) explorer(net network.Network) *blockchain.Explorer {
	return blockchain.NewExplorer(net.ExplorerAPI,
		client.WithTimeout(r.cfg.HTTPTimeout),
		client.WithRateLimit(r.cfg.ExplorerRPS, r.cfg.ExplorerBurst),
	)
}

func (r *runtime) node(net network.Network) *rpc.Client {
	return rpc.NewClient(net.RPCEndpoint, client.WithTimeout(r.cfg.HTTPTimeout))
}

// newStore builds a session store whose wallets pair through approver
func (r *runtime) newStore(approver wallet.Approver) (*session.Store, error) {
	return session.NewStore(session.Options{
		Registry: r.registry,
		Network:  r.registry.DefaultNetwork().ID,
		NewWallet: func(net network.Network) (wallet.Client, error) {
			w, err := wallet.NewLocalClient(net, r.accounts, approver, wallet.LocalOptions{
				AppName: r.cfg.DAppName,
				AppURL:  r.cfg.DAppURL,
			})
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			r.wallets = append(r.wallets, w)
			r.mu.Unlock()
			return w, nil
		},
		NewChain: func(net network.Network) (rpc.BalanceReader, error) {
			return r.node(net), nil
		},
	})
}

func (r *runtime) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if err := w.Close(); err != nil {
			logger.Warn("Failed to close wallet client for %s: %v", w.Network().ID, err)
		}
	}
	r.wallets = nil
}
