package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/metrics"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/rpc"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

// ErrNotInitialized is returned by wallet operations before Initialize succeeded
var ErrNotInitialized = errors.New("wallet client not initialized")

// WalletFactory builds the wallet client for a network
type WalletFactory func(network.Network) (wallet.Client, error)

// ChainFactory builds the chain RPC client for a network
type ChainFactory func(network.Network) (rpc.BalanceReader, error)

// Options configures a Store
type Options struct {
	Registry  *network.Registry
	Network   network.ID
	NewWallet WalletFactory
	NewChain  ChainFactory
}

// Store owns the session. All mutations, including wallet account-change
// events, run one at a time; readers get snapshots.
type Store struct {
	registry  *network.Registry
	newWallet WalletFactory
	newChain  ChainFactory

	// ops serializes mutating operations; it is held across wallet and RPC calls
	ops sync.Mutex

	mu          sync.RWMutex
	state       Session
	wallet      wallet.Client
	chain       rpc.BalanceReader
	unsubscribe func()
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	events sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// NewStore creates an uninitialized store on the requested network
func NewStore(opts Options) (*Store, error) {
	if opts.Registry == nil {
		return nil, errors.New("network registry is required")
	}
	if opts.NewWallet == nil || opts.NewChain == nil {
		return nil, errors.New("wallet and chain factories are required")
	}

	net := opts.Registry.DefaultNetwork()
	if opts.Network != "" {
		net = opts.Registry.Lookup(opts.Network)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		registry:  opts.Registry,
		newWallet: opts.NewWallet,
		newChain:  opts.NewChain,
		state:     Session{Status: StatusUninitialized, Network: net},
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]func(Session)),
	}, nil
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe calls fn with every new session snapshot, in version order.
// fn runs while the store is mid-operation and must not call Store mutations
// synchronously.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Initialize builds the wallet and chain clients for the selected network and
// loads the wallet's active account. Failures are logged and leave the store
// uninitialized.
func (s *Store) Initialize(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()

	cur := s.Snapshot()
	if s.isClosed() {
		return
	}
	if cur.Initialized() {
		logger.Debug("Session already initialized on %s", cur.Network.ID)
		return
	}

	err := s.initialize(ctx, cur)
	metrics.WalletOperations.WithLabelValues("initialize", metrics.Result(err)).Inc()
	if err != nil {
		logger.Error("Failed to initialize wallet session on %s: %v", cur.Network.ID, err)
	}
}

func (s *Store) initialize(ctx context.Context, cur Session) error {
	net := cur.Network

	w, err := s.newWallet(net)
	if err != nil {
		return fmt.Errorf("failed to create wallet client: %w", err)
	}
	chain, err := s.newChain(net)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}

	active, err := w.ActiveAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to query active account: %w", err)
	}

	next := cur
	next.WalletNetwork = net.ID
	if active != nil {
		next.Status = StatusConnected
		next.Account = &Account{
			Address: active.Address,
			Balance: s.fetchBalance(ctx, chain, net, active.Address),
		}
		logger.Info("Restored wallet session for %s on %s", active.Address, net.ID)
	} else {
		next.Status = StatusDisconnected
		next.Account = nil
	}

	s.mu.Lock()
	s.wallet = w
	s.chain = chain
	s.mu.Unlock()

	s.commit(next)

	unsubscribe := w.SubscribeActiveAccount(s.onAccountChanged)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

// ConnectWallet requests pairing permissions and records the granted account.
// A failed balance fetch connects with a zero balance.
func (s *Store) ConnectWallet(ctx context.Context) (err error) {
	defer func() {
		metrics.WalletOperations.WithLabelValues("connect", metrics.Result(err)).Inc()
	}()

	s.ops.Lock()
	defer s.ops.Unlock()

	w, chain := s.collaborators()
	if w == nil {
		return ErrNotInitialized
	}
	cur := s.Snapshot()

	perm, err := w.RequestPermissions(ctx)
	if err != nil {
		logger.Warn("Wallet connection failed: %v", err)
		return err
	}

	next := cur
	next.Status = StatusConnected
	next.Account = &Account{
		Address: perm.Address,
		Balance: s.fetchBalance(ctx, chain, cur.Network, perm.Address),
	}
	if perm.Network != "" {
		next.WalletNetwork = perm.Network
	}
	s.commit(next)

	logger.Info("Connected wallet %s on %s", perm.Address, cur.Network.ID)
	return nil
}

// DisconnectWallet clears the wallet's active account and drops the account record
func (s *Store) DisconnectWallet(ctx context.Context) (err error) {
	defer func() {
		metrics.WalletOperations.WithLabelValues("disconnect", metrics.Result(err)).Inc()
	}()

	s.ops.Lock()
	defer s.ops.Unlock()

	w, _ := s.collaborators()
	if w == nil {
		return ErrNotInitialized
	}

	if err := w.ClearActiveAccount(ctx); err != nil {
		logger.Error("Failed to clear active account: %v", err)
		return fmt.Errorf("failed to disconnect wallet: %w", err)
	}

	next := s.Snapshot()
	next.Status = StatusDisconnected
	next.Account = nil
	s.commit(next)

	logger.Info("Wallet disconnected")
	return nil
}

// SwitchNetwork selects another network for chain reads. Unknown ids fall back
// to the default testnet. When connected the balance is refetched on the new
// network and reset to zero if that fails. The wallet pairing is left as is.
func (s *Store) SwitchNetwork(ctx context.Context, id network.ID) (err error) {
	defer func() {
		metrics.WalletOperations.WithLabelValues("switch_network", metrics.Result(err)).Inc()
	}()

	s.ops.Lock()
	defer s.ops.Unlock()

	net, ok := s.registry.Get(id)
	if !ok {
		net = s.registry.Lookup(id)
		logger.Warn("Unknown network %q, falling back to %s", id, net.ID)
	}

	cur := s.Snapshot()
	next := cur
	next.Network = net

	if !cur.Initialized() {
		s.commit(next)
		logger.Info("Selected network %s", net.ID)
		return nil
	}

	chain, err := s.newChain(net)
	if err != nil {
		return fmt.Errorf("failed to create RPC client for %s: %w", net.ID, err)
	}

	if cur.Connected() {
		next.Account = &Account{
			Address: cur.Account.Address,
			Balance: s.fetchBalance(ctx, chain, net, cur.Account.Address),
		}
	}

	s.mu.Lock()
	s.chain = chain
	s.mu.Unlock()
	s.commit(next)

	if next.NetworkMismatch() {
		logger.Warn("Selected network %s differs from wallet network %s", net.ID, next.WalletNetwork)
	}
	logger.Info("Switched to network %s", net.ID)
	return nil
}

// RefreshBalance refetches the connected account's balance
func (s *Store) RefreshBalance(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	_, chain := s.collaborators()
	if chain == nil {
		return ErrNotInitialized
	}

	cur := s.Snapshot()
	if !cur.Connected() {
		return nil
	}

	next := cur
	next.Account = &Account{
		Address: cur.Account.Address,
		Balance: s.fetchBalance(ctx, chain, cur.Network, cur.Account.Address),
	}
	s.commit(next)
	return nil
}

// Close drops the wallet subscription and waits for in-flight events
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	s.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.events.Wait()
}

// onAccountChanged runs on the wallet's goroutine; the payload is only a hint
func (s *Store) onAccountChanged(_ *wallet.AccountInfo) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.events.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.events.Done()
		s.reconcile(s.ctx)
	}()
}

// reconcile applies the wallet's current active account. Reading it under the
// operation lock keeps a late event from replacing newer state.
func (s *Store) reconcile(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()

	if s.isClosed() {
		return
	}
	w, chain := s.collaborators()
	if w == nil {
		return
	}

	active, err := w.ActiveAccount(ctx)
	if err != nil {
		logger.Warn("Failed to read active account after change event: %v", err)
		return
	}

	cur := s.Snapshot()
	next := cur
	switch {
	case active == nil && cur.Connected():
		next.Status = StatusDisconnected
		next.Account = nil
		logger.Info("Wallet session cleared externally")
	case active != nil && (!cur.Connected() || cur.Account.Address != active.Address):
		next.Status = StatusConnected
		next.Account = &Account{
			Address: active.Address,
			Balance: s.fetchBalance(ctx, chain, cur.Network, active.Address),
		}
		logger.Info("Active account changed to %s", active.Address)
	default:
		return
	}
	s.commit(next)
}

// fetchBalance never fails: errors are logged, counted and read as zero
func (s *Store) fetchBalance(ctx context.Context, chain rpc.BalanceReader, net network.Network, address string) int64 {
	balance, err := chain.Balance(ctx, address)
	if err != nil {
		metrics.BalanceFetchFailures.WithLabelValues(string(net.ID)).Inc()
		logger.Warn("Failed to fetch balance of %s on %s: %v", address, net.ID, err)
		return 0
	}
	return balance
}

func (s *Store) collaborators() (wallet.Client, rpc.BalanceReader) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet, s.chain
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// commit publishes next as the new state; callers hold ops
func (s *Store) commit(next Session) {
	s.mu.Lock()
	next.Version = s.state.Version + 1
	s.state = next
	snapshot := s.state.clone()
	s.mu.Unlock()

	if snapshot.Connected() {
		metrics.SessionConnected.Set(1)
	} else {
		metrics.SessionConnected.Set(0)
	}

	s.subMu.Lock()
	subs := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot.clone())
	}
}
