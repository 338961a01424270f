package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

const (
	alice = "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb"
	bob   = "tz1aSkwEot3L2kmUvcoxzjMomb9mvBNuzFK6"
)

type fakeStore struct {
	mu       sync.Mutex
	snapshot session.Session
	calls    []string
	err      error
	deadline time.Time
}

func (s *fakeStore) Snapshot() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *fakeStore) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *fakeStore) ConnectWallet(ctx context.Context) error {
	s.mu.Lock()
	s.deadline, _ = ctx.Deadline()
	s.mu.Unlock()
	return s.record("connect")
}

func (s *fakeStore) DisconnectWallet(context.Context) error { return s.record("disconnect") }
func (s *fakeStore) RefreshBalance(context.Context) error   { return s.record("refresh") }
func (s *fakeStore) SwitchNetwork(_ context.Context, id network.ID) error {
	return s.record("switch:" + string(id))
}

type fakeSearcher struct {
	result *models.QueryResult
	err    error
	seen   []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*models.QueryResult, error) {
	f.seen = append(f.seen, query)
	return f.result, f.err
}

type fixture struct {
	store    *fakeStore
	searcher *fakeSearcher
	registry *network.Registry
	model    Model
}

func newFixture(t *testing.T, s session.Session) *fixture {
	t.Helper()
	f := &fixture{
		store:    &fakeStore{snapshot: s},
		searcher: &fakeSearcher{},
		registry: network.Default(),
	}
	f.model = NewModel(Deps{
		Store:    f.store,
		Registry: f.registry,
		Explorer: func(network.Network) Searcher { return f.searcher },
	})
	return f
}

func connected(balance int64) session.Session {
	return session.Session{
		Status:        session.StatusConnected,
		Account:       &session.Account{Address: alice, Balance: balance},
		Network:       network.Default().Lookup(network.Ghostnet),
		WalletNetwork: network.Ghostnet,
		Version:       3,
	}
}

func disconnected() session.Session {
	return session.Session{
		Status:  session.StatusDisconnected,
		Network: network.Default().Lookup(network.Ghostnet),
		Version: 1,
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func typeText(m Model, text string) Model {
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// run executes cmd and returns the produced messages, expanding batches
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// feed runs cmd and hands its messages back to the model
func feed(m Model, cmd tea.Cmd) Model {
	for _, msg := range run(cmd) {
		m, _ = update(m, msg)
	}
	return m
}

func TestModel_SessionMsgIgnoresOlderVersions(t *testing.T) {
	f := newFixture(t, disconnected())
	m := f.model

	m, _ = update(m, SessionMsg{Session: connected(42_000_000)})
	assert.True(t, m.session.Connected())

	stale := disconnected()
	stale.Version = 2
	m, _ = update(m, SessionMsg{Session: stale})
	assert.True(t, m.session.Connected())
	assert.Equal(t, uint64(3), m.session.Version)
}

func TestModel_ConnectRunsOffTheUpdateLoop(t *testing.T) {
	f := newFixture(t, disconnected())

	m, cmd := update(f.model, key("c"))
	require.NotNil(t, cmd)
	assert.Empty(t, f.store.calls)
	assert.Equal(t, "connect", m.busy)

	m = feed(m, cmd)
	assert.Equal(t, []string{"connect"}, f.store.calls)
	assert.Empty(t, m.busy)
	assert.Equal(t, "Connect done", m.status)
	assert.False(t, m.statusErr)
}

func TestModel_OperationsHonourTimeout(t *testing.T) {
	f := newFixture(t, disconnected())

	m, cmd := update(f.model, key("c"))
	feed(m, cmd)
	assert.True(t, f.store.deadline.IsZero())

	f.model.deps.OpTimeout = time.Minute
	start := time.Now()
	m, cmd = update(f.model, key("c"))
	feed(m, cmd)
	require.False(t, f.store.deadline.IsZero())
	assert.WithinDuration(t, start.Add(time.Minute), f.store.deadline, 5*time.Second)
}

func TestModel_OneOperationAtATime(t *testing.T) {
	f := newFixture(t, connected(1))

	m, first := update(f.model, key("d"))
	require.NotNil(t, first)

	m, second := update(m, key("c"))
	assert.Nil(t, second)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "disconnect")

	feed(m, first)
	assert.Equal(t, []string{"disconnect"}, f.store.calls)
}

func TestModel_NextNetwork(t *testing.T) {
	f := newFixture(t, disconnected())
	next := f.registry.Next(network.Ghostnet)

	m, cmd := update(f.model, key("n"))
	feed(m, cmd)
	assert.Equal(t, []string{"switch:" + string(next.ID)}, f.store.calls)
}

func TestModel_OperationErrors(t *testing.T) {
	f := newFixture(t, session.Session{Network: network.Default().Lookup(network.Ghostnet)})
	f.store.err = session.ErrNotInitialized

	m, cmd := update(f.model, key("c"))
	m = feed(m, cmd)
	assert.True(t, m.statusErr)
	assert.Equal(t, "Wallet client is still loading", m.status)

	f.store.err = errors.New("boom")
	m, cmd = update(m, key("d"))
	m = feed(m, cmd)
	assert.Equal(t, "Disconnect failed: boom", m.status)
}

func TestModel_Search(t *testing.T) {
	f := newFixture(t, disconnected())
	f.searcher.result = &models.QueryResult{
		Kind:    models.QueryAccount,
		Query:   bob,
		Account: &models.Account{Address: bob, Balance: 7_500_000},
	}

	m, _ := update(f.model, key("/"))
	assert.Equal(t, modeSearch, m.mode)

	m = typeText(m, bob)
	m, cmd := update(m, key("enter"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.True(t, m.searching)

	m = feed(m, cmd)
	assert.Equal(t, []string{bob}, f.searcher.seen)
	assert.False(t, m.searching)
	require.NotNil(t, m.result)
	assert.Equal(t, models.QueryAccount, m.result.Kind)
	assert.Contains(t, m.View(), "7.5 ꜩ")
}

func TestModel_SearchFailure(t *testing.T) {
	f := newFixture(t, disconnected())
	f.searcher.err = errors.New("not found")

	m, _ := update(f.model, key("/"))
	m = typeText(m, "123")
	m, cmd := update(m, key("enter"))
	m = feed(m, cmd)

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "not found")
	assert.Nil(t, m.result)
}

func TestModel_EmptySearchDoesNothing(t *testing.T) {
	f := newFixture(t, disconnected())

	m, _ := update(f.model, key("/"))
	m, cmd := update(m, key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
}

func TestModel_PairingApprove(t *testing.T) {
	f := newFixture(t, disconnected())
	reply := make(chan PairingAnswer, 1)
	req := wallet.NewPairingRequest("Test dApp", "", network.Ghostnet)

	m, _ := update(f.model, PairingMsg{Request: req, URI: "tezos://?data=x", QR: "QR", Reply: reply})
	assert.Equal(t, modePairing, m.mode)
	assert.Contains(t, m.View(), "tezos://?data=x")

	m = typeText(m, alice)
	m, _ = update(m, key("enter"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Nil(t, m.pairing)

	select {
	case answer := <-reply:
		require.NoError(t, answer.Err)
		assert.Equal(t, alice, answer.Response.Address)
	default:
		t.Fatal("no pairing answer sent")
	}
}

func TestModel_PairingReject(t *testing.T) {
	for _, k := range []string{"esc", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			f := newFixture(t, disconnected())
			reply := make(chan PairingAnswer, 1)
			req := wallet.NewPairingRequest("Test dApp", "", network.Ghostnet)

			m, _ := update(f.model, PairingMsg{Request: req, Reply: reply})
			update(m, key(k))

			answer := <-reply
			assert.ErrorIs(t, answer.Err, wallet.ErrPairingRejected)
		})
	}
}

func TestModel_PairingCancelled(t *testing.T) {
	f := newFixture(t, disconnected())
	req := wallet.NewPairingRequest("Test dApp", "", network.Ghostnet)

	m, _ := update(f.model, PairingMsg{Request: req, Reply: make(chan PairingAnswer, 1)})
	m, _ = update(m, pairingCancelledMsg{ID: "someone-else"})
	assert.Equal(t, modePairing, m.mode)

	m, _ = update(m, pairingCancelledMsg{ID: req.ID})
	assert.Equal(t, modeBrowse, m.mode)
	assert.True(t, m.statusErr)
}

func TestModel_TransferDraft(t *testing.T) {
	f := newFixture(t, connected(5_000_000))

	m, _ := update(f.model, key("t"))
	require.Equal(t, modeForm, m.mode)

	m = typeText(m, bob)
	m, _ = update(m, key("tab"))
	m = typeText(m, "1.5")
	m, _ = update(m, key("enter"))
	m, _ = update(m, key("enter"))
	m, _ = update(m, key("enter"))

	assert.Equal(t, modeBrowse, m.mode)
	assert.False(t, m.statusErr, m.status)
	assert.Contains(t, m.status, "send 1.5 tez")
}

func TestModel_TransferDraftRequiresConnection(t *testing.T) {
	f := newFixture(t, disconnected())

	m, _ := update(f.model, key("t"))
	m = typeText(m, bob)
	for i := 0; i < 4; i++ {
		m, _ = update(m, key("enter"))
	}

	assert.Equal(t, modeForm, m.mode)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "connect a wallet first")
}

func TestModel_CallDraftPrefilledFromSearch(t *testing.T) {
	f := newFixture(t, disconnected())
	const contract = "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"

	m, _ := update(f.model, searchDoneMsg{query: contract, result: &models.QueryResult{
		Kind:     models.QueryContract,
		Query:    contract,
		Contract: &models.Contract{Address: contract, Entrypoints: []models.Entrypoint{{Name: "mint"}}},
	}})

	m, _ = update(m, key("i"))
	require.Equal(t, modeForm, m.mode)
	assert.Equal(t, contract, m.form.value(0))

	m, _ = update(m, key("enter"))
	m = typeText(m, "mint")
	m, _ = update(m, key("enter"))
	m, _ = update(m, key("enter"))

	assert.False(t, m.statusErr, m.status)
	assert.Contains(t, m.status, "call mint on")
}

func TestModel_OverviewFillsTables(t *testing.T) {
	f := newFixture(t, disconnected())
	now := time.Now()

	m, _ := update(f.model, OverviewMsg{Overview: &models.Overview{
		Blocks: []models.Block{
			{Level: 5_000_001, Hash: "BKqoHEY3C15u8zdGwi9Hhj3ArCz2Q8sRQuHVtcWZqUPopsfNZfh", Timestamp: now.Add(-30 * time.Second)},
		},
		Operations: []models.Operation{
			{Hash: "onuFAL9z4rhSSsXfzZQxNajNzPKArY2qbLoy54ZN3517ZnrUqpH", Sender: &models.Alias{Address: alice}, Target: &models.Alias{Alias: "Bob", Address: bob}, Amount: 2_000_000},
		},
		FetchedAt: now,
	}})

	require.Len(t, m.blocks.Rows(), 1)
	assert.Equal(t, "5000001", m.blocks.Rows()[0][0])
	require.Len(t, m.ops.Rows(), 1)
	assert.Equal(t, "Bob", m.ops.Rows()[0][2])
	assert.Equal(t, "2", m.ops.Rows()[0][3])

	// a failed refresh keeps the last overview
	m, _ = update(m, OverviewMsg{Err: errors.New("timeout")})
	assert.NotNil(t, m.overview)
	assert.Contains(t, m.View(), "refresh failed")
}

func TestModel_LogsAreCapped(t *testing.T) {
	f := newFixture(t, disconnected())
	m := f.model
	for i := 0; i < maxLogLines+5; i++ {
		m, _ = update(m, LogMessage{Level: "info", Message: "line"})
	}
	assert.Len(t, m.logs, maxLogLines)
}

func TestModel_ViewWalletButton(t *testing.T) {
	f := newFixture(t, session.Session{Network: network.Default().Lookup(network.Ghostnet)})
	assert.Contains(t, f.model.View(), "Loading wallet")

	m, _ := update(f.model, SessionMsg{Session: disconnected()})
	assert.Contains(t, m.View(), "Connect Wallet")

	s := connected(42_000_000)
	s.WalletNetwork = network.Mainnet
	m, _ = update(m, SessionMsg{Session: s})
	view := m.View()
	assert.Contains(t, view, "42 ꜩ")
	assert.Contains(t, view, "Wallet is on mainnet")
}
