package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kelsos/tezos-dapp/internal/async"
	"github.com/kelsos/tezos-dapp/internal/blockchain"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/session"
)

// Store is the session store the app runs against
type Store interface {
	SessionStore
	Initialize(ctx context.Context)
	Subscribe(fn func(session.Session)) (cancel func())
}

// AppOptions configures an App
type AppOptions struct {
	Store    Store
	Registry *network.Registry
	// Approver receives pairing prompts once the program runs; may be nil
	Approver *PromptApprover
	// NewExplorer builds the explorer client of a network
	NewExplorer     func(network.Network) *blockchain.Explorer
	RefreshInterval time.Duration
	OverviewLimit   int
	// OpTimeout bounds wallet operations, including the wait for a pairing answer
	OpTimeout time.Duration
}

// App runs the interactive dApp: session header, explorer overview and search
type App struct {
	opts AppOptions

	mu        sync.Mutex
	explorers map[network.ID]*blockchain.Explorer

	overview *async.Poller[models.Overview]
}

func NewApp(opts AppOptions) *App {
	if opts.OverviewLimit <= 0 {
		opts.OverviewLimit = blockchain.DefaultPageSize
	}
	a := &App{
		opts:      opts,
		explorers: make(map[network.ID]*blockchain.Explorer),
	}
	a.overview = async.NewPoller("explorer overview", opts.RefreshInterval, a.fetchOverview)
	return a
}

// explorer returns the cached explorer client for net
func (a *App) explorer(net network.Network) *blockchain.Explorer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.explorers[net.ID]; ok && e.BaseURL() == net.ExplorerAPI {
		return e
	}
	e := a.opts.NewExplorer(net)
	a.explorers[net.ID] = e
	return e
}

func (a *App) fetchOverview(ctx context.Context) (*models.Overview, error) {
	net := a.opts.Store.Snapshot().Network
	return a.explorer(net).Overview(ctx, a.opts.OverviewLimit)
}

// Run shows the TUI until the user quits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(Deps{
		Store:     a.opts.Store,
		Registry:  a.opts.Registry,
		Explorer:  func(net network.Network) Searcher { return a.explorer(net) },
		Refresh:   a.overview.Trigger,
		OpTimeout: a.opts.OpTimeout,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if a.opts.Approver != nil {
		a.opts.Approver.Attach(program.Send)
		defer a.opts.Approver.Attach(nil)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup

	// the hook runs on whatever goroutine logs, including ones Update waits on
	logs := make(chan LogMessage, 64)
	logger.SetHook(func(level zerolog.Level, msg string) {
		if level < zerolog.InfoLevel {
			return
		}
		select {
		case logs <- LogMessage{Level: level.String(), Message: msg}:
		default:
		}
	})
	defer logger.SetHook(nil)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case msg := <-logs:
				program.Send(msg)
			case <-done:
				return
			}
		}
	}()

	var netMu sync.Mutex
	lastNetwork := a.opts.Store.Snapshot().Network.ID
	unsubscribe := a.opts.Store.Subscribe(func(s session.Session) {
		program.Send(SessionMsg{Session: s})

		netMu.Lock()
		changed := lastNetwork != s.Network.ID
		lastNetwork = s.Network.ID
		netMu.Unlock()
		if changed {
			a.overview.Trigger()
		}
	})
	defer unsubscribe()

	updates, unregister := a.overview.Register()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range updates {
			program.Send(OverviewMsg{Overview: u.Value, Err: u.Err})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.opts.Store.Initialize(runCtx)
	}()

	_, err := program.Run()

	cancel()
	unregister()
	close(done)
	wg.Wait()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
