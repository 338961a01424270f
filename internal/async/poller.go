// Package async runs background refresh loops for data the views display.
package async

import (
	"context"
	"sync"
	"time"

	"github.com/kelsos/tezos-dapp/internal/logger"
)

// FetchFunc loads one fresh value
type FetchFunc[T any] func(ctx context.Context) (*T, error)

// Update is one poll outcome; exactly one of Value and Err is set
type Update[T any] struct {
	Value *T
	Err   error
	At    time.Time
}

// Poller fetches a value on an interval while at least one subscriber is registered
type Poller[T any] struct {
	name          string
	fetch         FetchFunc[T]
	pollInterval  time.Duration
	timeout       time.Duration
	subscribers   map[int]chan Update[T]
	nextID        int
	mu            sync.RWMutex
	stopPolling   chan struct{}
	pollingActive bool
	pollingDone   chan struct{}
	kick          chan struct{}
}

// NewPoller creates a poller; interval <= 0 defaults to 15s
func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T]) *Poller[T] {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Poller[T]{
		name:         name,
		fetch:        fetch,
		pollInterval: interval,
		timeout:      interval,
		subscribers:  make(map[int]chan Update[T]),
		stopPolling:  make(chan struct{}),
		kick:         make(chan struct{}, 1),
	}
}

// Register adds a subscriber and starts polling if needed. The channel holds
// only the latest update; a slow reader skips intermediate ones. Call the
// returned function to unregister.
func (p *Poller[T]) Register() (<-chan Update[T], func()) {
	updates := make(chan Update[T], 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = updates

	if !p.pollingActive {
		p.pollingActive = true
		p.stopPolling = make(chan struct{})
		p.pollingDone = make(chan struct{})
		go p.poll(p.stopPolling, p.pollingDone)
	}
	p.mu.Unlock()

	logger.Debug("Registered subscriber %d for %s updates", id, p.name)

	var once sync.Once
	return updates, func() {
		once.Do(func() { p.unregister(id) })
	}
}

func (p *Poller[T]) unregister(id int) {
	p.mu.Lock()
	updates, ok := p.subscribers[id]
	delete(p.subscribers, id)
	empty := len(p.subscribers) == 0
	p.mu.Unlock()

	if ok {
		close(updates)
	}
	if empty {
		p.Stop()
	}
}

func (p *Poller[T]) poll(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.refresh(stop)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.refresh(stop)
		case <-p.kick:
			p.refresh(stop)
			ticker.Reset(p.pollInterval)
		}
	}
}

// refresh fetches once and fans the result out to every subscriber
func (p *Poller[T]) refresh(stop chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	value, err := p.fetch(ctx)
	update := Update[T]{Value: value, Err: err, At: time.Now()}
	if err != nil {
		update.Value = nil
		logger.Warn("Failed to refresh %s: %v", p.name, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subscribers {
		// drop a stale pending update so the newest one fits
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- update:
		default:
		}
	}
}

// Trigger asks a running poller to refresh now instead of at the next tick
func (p *Poller[T]) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Stop halts polling; a later Register starts it again
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	done := p.pollingDone
	if p.pollingActive {
		close(p.stopPolling)
		p.pollingActive = false
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}
