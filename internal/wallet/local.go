package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/storage"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// LocalOptions names the dApp in pairing requests
type LocalOptions struct {
	AppName string
	AppURL  string
}

// LocalClient pairs through an Approver and keeps the active account in the
// data directory, so other processes see and can clear the same pairing.
type LocalClient struct {
	net      network.Network
	store    *storage.AccountStore
	approver Approver
	opts     LocalOptions

	mu       sync.Mutex
	subs     map[int]func(*AccountInfo)
	nextSub  int
	watcher  *fsnotify.Watcher
	done     chan struct{}
	lastSeen string
}

// NewLocalClient creates a wallet client bound to one network
func NewLocalClient(net network.Network, store *storage.AccountStore, approver Approver, opts LocalOptions) (*LocalClient, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	if approver == nil {
		return nil, errors.New("pairing approver is required")
	}
	return &LocalClient{
		net:      net,
		store:    store,
		approver: approver,
		opts:     opts,
		subs:     make(map[int]func(*AccountInfo)),
	}, nil
}

// Network returns the network pairings are made for
func (c *LocalClient) Network() network.Network {
	return c.net
}

// RequestPermissions asks the approver to pair and persists the granted account
func (c *LocalClient) RequestPermissions(ctx context.Context) (Permission, error) {
	req := NewPairingRequest(c.opts.AppName, c.opts.AppURL, c.net.ID)
	logger.Info("Requesting wallet permissions on %s (pairing %s)", c.net.ID, req.ID)

	resp, err := c.approver.Approve(ctx, req)
	if err != nil {
		return Permission{}, fmt.Errorf("pairing failed: %w", err)
	}

	address, err := resp.resolve()
	if err != nil {
		return Permission{}, fmt.Errorf("pairing failed: %w", err)
	}

	account := storage.ActiveAccount{
		Address:     address,
		PublicKey:   resp.PublicKey,
		Network:     string(c.net.ID),
		PairingID:   req.ID,
		ConnectedAt: time.Now().UTC(),
	}
	if err := c.store.SaveActiveAccount(account); err != nil {
		return Permission{}, fmt.Errorf("failed to persist active account: %w", err)
	}

	logger.Info("Wallet paired with %s on %s", address, c.net.ID)
	return Permission{Address: address, PublicKey: resp.PublicKey, Network: c.net.ID}, nil
}

// ActiveAccount loads the persisted account for this client's network
func (c *LocalClient) ActiveAccount(ctx context.Context) (*AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, err := c.store.LoadActiveAccount(string(c.net.ID))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}
	if _, err := tezos.ValidateAddress(account.Address); err != nil {
		return nil, fmt.Errorf("stored active account: %w", err)
	}

	return &AccountInfo{
		Address:     account.Address,
		PublicKey:   account.PublicKey,
		Network:     network.ID(account.Network),
		ConnectedAt: account.ConnectedAt,
	}, nil
}

// ClearActiveAccount removes the persisted account
func (c *LocalClient) ClearActiveAccount(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.store.ClearActiveAccount(string(c.net.ID)); err != nil {
		return err
	}
	logger.Info("Cleared active account on %s", c.net.ID)
	return nil
}

// SubscribeActiveAccount registers fn for account file changes. The file
// watcher starts with the first subscriber and stops with the last.
func (c *LocalClient) SubscribeActiveAccount(fn func(*AccountInfo)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher == nil {
		if err := c.startWatcherLocked(); err != nil {
			logger.Warn("Account change notifications disabled: %v", err)
		}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			if len(c.subs) == 0 {
				c.stopWatcherLocked()
			}
		})
	}
}

// Close stops the watcher and drops all subscribers
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[int]func(*AccountInfo))
	c.stopWatcherLocked()
	return nil
}

func (c *LocalClient) startWatcherLocked() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// the account file is replaced by rename, so watch its directory
	if err := w.Add(c.store.Dir()); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", c.store.Dir(), err)
	}

	c.lastSeen = c.currentAddress()
	c.watcher = w
	c.done = make(chan struct{})
	go c.watch(w, c.done)

	logger.Debug("Watching %s for account changes", c.store.AccountFilePath(string(c.net.ID)))
	return nil
}

func (c *LocalClient) stopWatcherLocked() {
	if c.watcher == nil {
		return
	}
	close(c.done)
	if err := c.watcher.Close(); err != nil {
		logger.Warn("Failed to close account watcher: %v", err)
	}
	c.watcher = nil
	c.done = nil
}

func (c *LocalClient) watch(w *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !c.store.IsAccountFile(event.Name, string(c.net.ID)) {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			c.reload(done)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Account watcher error: %v", err)
		}
	}
}

// reload notifies subscribers when the stored address differs from the last one seen
func (c *LocalClient) reload(done chan struct{}) {
	account, err := c.ActiveAccount(context.Background())
	if err != nil {
		// partially written or corrupt; the next event will retry
		logger.Debug("Ignoring unreadable account file: %v", err)
		return
	}

	address := ""
	if account != nil {
		address = account.Address
	}

	c.mu.Lock()
	if c.done != done || address == c.lastSeen {
		c.mu.Unlock()
		return
	}
	c.lastSeen = address
	subs := make([]func(*AccountInfo), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	logger.Debug("Active account on %s changed to %q", c.net.ID, address)
	for _, fn := range subs {
		fn(account)
	}
}

func (c *LocalClient) currentAddress() string {
	account, err := c.store.LoadActiveAccount(string(c.net.ID))
	if err != nil || account == nil {
		return ""
	}
	return account.Address
}
