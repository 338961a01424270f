package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/operation"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/tezos"
	"github.com/kelsos/tezos-dapp/internal/utils"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

const maxLogLines = 8

// SessionStore is the part of the session store the views drive
type SessionStore interface {
	Snapshot() session.Session
	ConnectWallet(ctx context.Context) error
	DisconnectWallet(ctx context.Context) error
	SwitchNetwork(ctx context.Context, id network.ID) error
	RefreshBalance(ctx context.Context) error
}

// Searcher answers explorer searches
type Searcher interface {
	Search(ctx context.Context, query string) (*models.QueryResult, error)
}

// SearcherFor returns the explorer of a network
type SearcherFor func(network.Network) Searcher

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modePairing
	modeForm
)

type pairingPrompt struct {
	request wallet.PairingRequest
	uri     string
	qr      string
	reply   chan<- PairingAnswer
	input   textinput.Model
}

// Deps wires the model to the rest of the application
type Deps struct {
	Store    SessionStore
	Registry *network.Registry
	Explorer SearcherFor
	// Refresh asks the overview poller for an immediate update; may be nil
	Refresh func()
	// OpTimeout bounds each store operation; zero leaves them unbounded
	OpTimeout time.Duration
}

type Model struct {
	deps Deps

	session     session.Session
	overview    *models.Overview
	overviewErr error
	result      *models.QueryResult
	resultErr   error
	status      string
	statusErr   bool
	busy        string
	searching   bool
	logs        []string

	mode    mode
	search  textinput.Model
	pairing *pairingPrompt
	form    *form

	blocks  table.Model
	ops     table.Model
	spinner spinner.Model
	width   int
	height  int
	quit    bool
}

func NewModel(deps Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	search := textinput.New()
	search.Placeholder = "block level, block/operation hash, tz or KT1 address"
	search.Prompt = "🔎 "
	search.CharLimit = 64
	search.Width = 60

	return Model{
		deps:    deps,
		session: deps.Store.Snapshot(),
		logs:    []string{},
		search:  search,
		blocks:  newTable(blockColumns),
		ops:     newTable(operationColumns),
		spinner: sp,
		width:   100,
		height:  30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKeyMsg(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m = m.handleWindowSizeMsg(msg)

	case SessionMsg:
		// snapshots can arrive out of order through the program queue
		if msg.Session.Version >= m.session.Version {
			m.session = msg.Session
		}

	case OverviewMsg:
		m = m.handleOverview(msg)

	case PairingMsg:
		var cmd tea.Cmd
		m, cmd = m.handlePairingRequest(msg)
		cmds = append(cmds, cmd)

	case pairingCancelledMsg:
		if m.pairing != nil && m.pairing.request.ID == msg.ID {
			m.pairing = nil
			m.mode = modeBrowse
			m = m.setStatus("Pairing request timed out", true)
		}

	case opDoneMsg:
		m = m.handleOpDone(msg)

	case searchDoneMsg:
		m.searching = false
		m.result, m.resultErr = msg.result, msg.err
		if msg.err != nil {
			m = m.setStatus(fmt.Sprintf("Search %q failed: %v", msg.query, msg.err), true)
		} else {
			m = m.setStatus(fmt.Sprintf("Found %s %s", msg.result.Kind, msg.query), false)
		}

	case LogMessage:
		m = m.handleLogMessage(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m = m.rejectPairing()
		m.quit = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modePairing:
		return m.handlePairingKey(msg)
	case modeForm:
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		m.quit = true
		return m, tea.Quit
	case "c":
		return m.startOp("connect", func(ctx context.Context) error {
			return m.deps.Store.ConnectWallet(ctx)
		})
	case "d":
		return m.startOp("disconnect", func(ctx context.Context) error {
			return m.deps.Store.DisconnectWallet(ctx)
		})
	case "n":
		next := m.deps.Registry.Next(m.session.Network.ID)
		return m.startOp("switch to "+string(next.ID), func(ctx context.Context) error {
			return m.deps.Store.SwitchNetwork(ctx, next.ID)
		})
	case "r":
		if m.deps.Refresh != nil {
			m.deps.Refresh()
		}
		return m.startOp("refresh", func(ctx context.Context) error {
			return m.deps.Store.RefreshBalance(ctx)
		})
	case "/":
		m.mode = modeSearch
		return m, m.search.Focus()
	case "t":
		m.form = newTransferForm()
		m.mode = modeForm
		return m, textinput.Blink
	case "i":
		contract := ""
		if m.result != nil && m.result.Contract != nil {
			contract = m.result.Contract.Address
		}
		m.form = newCallForm(contract)
		m.mode = modeForm
		return m, textinput.Blink
	}
	return m, nil
}

// startOp runs a store operation off the UI goroutine; one at a time
func (m Model) startOp(name string, run func(ctx context.Context) error) (Model, tea.Cmd) {
	if m.busy != "" {
		return m.setStatus(fmt.Sprintf("Still working on %s", m.busy), true), nil
	}
	m.busy = name
	m = m.setStatus(capitalize(name)+"...", false)
	timeout := m.deps.OpTimeout
	return m, func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return opDoneMsg{op: name, err: run(ctx)}
	}
}

func (m Model) handleOpDone(msg opDoneMsg) Model {
	m.busy = ""
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrNotInitialized) {
			return m.setStatus("Wallet client is still loading", true)
		}
		return m.setStatus(fmt.Sprintf("%s failed: %v", capitalize(msg.op), msg.err), true)
	}
	return m.setStatus(capitalize(msg.op)+" done", false)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		query := m.search.Value()
		m.search.Blur()
		m.mode = modeBrowse
		if query == "" {
			return m, nil
		}
		m.searching = true
		m = m.setStatus(fmt.Sprintf("Searching %s...", query), false)
		explorer := m.deps.Explorer(m.session.Network)
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := explorer.Search(ctx, query)
			return searchDoneMsg{query: query, result: result, err: err}
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handlePairingRequest(msg PairingMsg) (Model, tea.Cmd) {
	m = m.rejectPairing()

	input := textinput.New()
	input.Placeholder = "edpk... public key or tz1... address"
	input.CharLimit = 128
	input.Width = 60

	m.pairing = &pairingPrompt{
		request: msg.Request,
		uri:     msg.URI,
		qr:      msg.QR,
		reply:   msg.Reply,
		input:   input,
	}
	m.form = nil
	m.mode = modePairing
	return m, m.pairing.input.Focus()
}

func (m Model) handlePairingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.rejectPairing()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		resp, err := wallet.ParseResponse(m.pairing.input.Value())
		m.pairing.reply <- PairingAnswer{Response: resp, Err: err}
		m.pairing = nil
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.pairing.input, cmd = m.pairing.input.Update(msg)
	return m, cmd
}

// rejectPairing answers an open prompt with a rejection; reply channels are buffered
func (m Model) rejectPairing() Model {
	if m.pairing != nil {
		m.pairing.reply <- PairingAnswer{Err: wallet.ErrPairingRejected}
		m.pairing = nil
	}
	return m
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.form = nil
		m.mode = modeBrowse
		return m, nil
	case "tab", "down":
		m.form.move(1)
		return m, nil
	case "shift+tab", "up":
		m.form.move(-1)
		return m, nil
	case "enter":
		if !m.form.last() {
			m.form.move(1)
			return m, nil
		}
		summary, err := m.submitForm()
		if err != nil {
			return m.setStatus("Invalid draft: "+err.Error(), true), nil
		}
		m.form = nil
		m.mode = modeBrowse
		return m.setStatus("Draft ready, approve it in your wallet: "+summary, false), nil
	}

	return m, m.form.update(msg)
}

func (m Model) submitForm() (string, error) {
	f := m.form
	switch f.kind {
	case formTransfer:
		var from string
		var balance int64
		if m.session.Account != nil {
			from, balance = m.session.Account.Address, m.session.Account.Balance
		}
		transfer, err := operation.NewTransfer(from, balance, operation.TransferInput{
			Recipient: f.value(0),
			Amount:    f.value(1),
			Asset:     f.value(2),
			Memo:      f.value(3),
		})
		if err != nil {
			return "", err
		}
		return transfer.Summary(), nil
	default:
		contract := f.value(0)
		known := operation.KnownEntrypoints(contract)
		if c := m.resultContract(); c != nil && c.Address == contract && len(c.Entrypoints) > 0 {
			known = make([]string, 0, len(c.Entrypoints))
			for _, e := range c.Entrypoints {
				known = append(known, e.Name)
			}
		}
		call, err := operation.NewContractCall(operation.CallInput{
			Contract:   contract,
			Entrypoint: f.value(1),
			Parameters: f.value(2),
		}, known)
		if err != nil {
			return "", err
		}
		return call.Summary(), nil
	}
}

func (m Model) resultContract() *models.Contract {
	if m.result == nil {
		return nil
	}
	return m.result.Contract
}

func (m Model) handleOverview(msg OverviewMsg) Model {
	m.overviewErr = msg.Err
	if msg.Err != nil || msg.Overview == nil {
		return m
	}
	m.overview = msg.Overview

	blockRows := make([]table.Row, 0, len(msg.Overview.Blocks))
	for _, b := range msg.Overview.Blocks {
		blockRows = append(blockRows, table.Row{
			fmt.Sprintf("%d", b.Level),
			truncate(b.Hash, 14),
			b.Producer.Label(),
			utils.FormatAge(b.Timestamp, time.Now()),
		})
	}
	m.blocks.SetRows(blockRows)

	opRows := make([]table.Row, 0, len(msg.Overview.Operations))
	for _, op := range msg.Overview.Operations {
		opRows = append(opRows, table.Row{
			truncate(op.Hash, 14),
			truncate(op.Sender.Label(), 14),
			truncate(op.Counterparty().Label(), 14),
			tezos.FormatTez(op.Amount),
		})
	}
	m.ops.SetRows(opRows)
	return m
}

func (m Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	return m
}

func (m Model) handleLogMessage(msg LogMessage) Model {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %-5s %s",
		time.Now().Format("15:04:05"), msg.Level, msg.Message))
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	return m
}

func (m Model) setStatus(text string, isErr bool) Model {
	m.status = text
	m.statusErr = isErr
	return m
}
