package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/operation"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/tezos"
	"github.com/kelsos/tezos-dapp/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	logPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

var blockColumns = []table.Column{
	{Title: "Level", Width: 9},
	{Title: "Hash", Width: 14},
	{Title: "Baker", Width: 18},
	{Title: "Age", Width: 8},
}

var operationColumns = []table.Column{
	{Title: "Hash", Width: 14},
	{Title: "From", Width: 14},
	{Title: "To", Width: 14},
	{Title: "Amount ꜩ", Width: 10},
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t
}

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(m.headerView())
	s.WriteString("\n")
	if m.session.NetworkMismatch() {
		s.WriteString(warnStyle.Render(fmt.Sprintf("⚠ Wallet is on %s but the dApp is on %s", m.session.WalletNetwork, m.session.Network.ID)))
		s.WriteString("\n")
	}
	s.WriteString(m.statusView())
	s.WriteString("\n\n")

	switch m.mode {
	case modePairing:
		s.WriteString(m.pairingView())
		s.WriteString("\n\n")
	case modeForm:
		s.WriteString(panelStyle.Width(m.panelWidth()).Render(m.form.view()))
		s.WriteString("\n\n")
	case modeSearch:
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	}

	if m.result != nil {
		s.WriteString(panelStyle.Width(m.panelWidth()).Render(resultView(m.result)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.overviewView())
	s.WriteString("\n\n")

	var logs strings.Builder
	logs.WriteString("📝 Recent Logs\n")
	for _, line := range m.logs {
		logs.WriteString(line + "\n")
	}
	s.WriteString(logPanelStyle.Width(m.panelWidth()).Height(maxLogLines + 1).Render(logs.String()))
	s.WriteString("\n\n")

	s.WriteString(mutedStyle.Render(m.footer()))
	return s.String()
}

func (m Model) panelWidth() int {
	if m.width < 20 {
		return 20
	}
	return m.width - 2
}

func (m Model) headerView() string {
	net := m.session.Network
	label := net.Name
	if net.Testnet {
		label += " (testnet)"
	}
	left := headerStyle.Render("ꜩ Tezos dApp") + "  " + labelStyle.Render("🌐 "+label)
	return left + "  " + m.walletButton()
}

// walletButton mirrors the connect button: loading, connect, or the connected account
func (m Model) walletButton() string {
	switch m.session.Status {
	case session.StatusConnected:
		acc := m.session.Account
		return buttonStyle.Render(fmt.Sprintf("👛 %s · %s ꜩ", tezos.ShortAddress(acc.Address), acc.BalanceTez()))
	case session.StatusDisconnected:
		return buttonStyle.Render("Connect Wallet [c]")
	default:
		return mutedStyle.Render(m.spinner.View() + " Loading wallet...")
	}
}

func (m Model) statusView() string {
	var prefix string
	if m.busy != "" || m.searching {
		prefix = m.spinner.View() + " "
	}
	if m.status == "" {
		return prefix
	}
	if m.statusErr {
		return prefix + errorStyle.Render("✗ "+m.status)
	}
	return prefix + okStyle.Render(m.status)
}

func (m Model) pairingView() string {
	p := m.pairing
	var s strings.Builder
	s.WriteString(titleStyle.Render("🔗 Pair a wallet") + "\n")
	s.WriteString(mutedStyle.Render(fmt.Sprintf("Request %s for %s", truncate(p.request.ID, 13), p.request.Network)) + "\n")
	if p.qr != "" {
		s.WriteString(p.qr + "\n")
	}
	s.WriteString(p.uri + "\n\n")
	s.WriteString("Paste the public key or address your wallet returned:\n")
	s.WriteString(p.input.View() + "\n")
	s.WriteString(mutedStyle.Render("enter approve · esc reject"))
	return panelStyle.Width(m.panelWidth()).Render(s.String())
}

func (m Model) overviewView() string {
	if m.overviewErr != nil && m.overview == nil {
		return errorStyle.Render(fmt.Sprintf("Explorer unavailable: %v", m.overviewErr))
	}
	if m.overview == nil {
		return mutedStyle.Render(m.spinner.View() + " Loading recent blocks...")
	}

	blocks := titleStyle.Render("⛓ Recent Blocks") + "\n" + m.blocks.View()
	ops := titleStyle.Render("💸 Recent Transactions") + "\n" + m.ops.View()
	s := lipgloss.JoinHorizontal(lipgloss.Top, blocks, "   ", ops)

	updated := "updated " + utils.FormatAge(m.overview.FetchedAt, time.Now())
	if m.overviewErr != nil {
		updated = errorStyle.Render(fmt.Sprintf("refresh failed: %v", m.overviewErr))
	}
	return s + "\n" + mutedStyle.Render(updated)
}

func resultView(r *models.QueryResult) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("🔎 %s %s", capitalize(string(r.Kind)), truncate(r.Query, 40))) + "\n")

	switch r.Kind {
	case models.QueryBlock:
		b := r.Block
		s.WriteString(field("Level", fmt.Sprintf("%d (cycle %d)", b.Level, b.Cycle)))
		s.WriteString(field("Hash", b.Hash))
		s.WriteString(field("Time", b.Timestamp.Format("2006-01-02 15:04:05 MST")))
		s.WriteString(field("Baker", b.Producer.Label()))
		s.WriteString(field("Fees", tezos.FormatTez(b.Fees)+" ꜩ"))
		s.WriteString(field("Txs", fmt.Sprintf("%d", len(b.Transactions))))
	case models.QueryOperation:
		for i, op := range r.Operations {
			if i == 5 {
				s.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more", len(r.Operations)-i)) + "\n")
				break
			}
			line := fmt.Sprintf("%-12s %s → %s %s ꜩ [%s]", op.Type,
				truncate(op.Sender.Label(), 16), truncate(op.Counterparty().Label(), 16),
				tezos.FormatTez(op.Amount), op.Status)
			if op.Parameter != nil {
				line += " " + op.Parameter.Entrypoint
			}
			s.WriteString(line + "\n")
		}
	case models.QueryAccount:
		a := r.Account
		s.WriteString(field("Address", a.Address))
		if a.Alias != "" {
			s.WriteString(field("Alias", a.Alias))
		}
		s.WriteString(field("Balance", tezos.FormatTez(a.Balance)+" ꜩ"))
		s.WriteString(field("Revealed", fmt.Sprintf("%t", a.Revealed)))
		s.WriteString(field("Delegate", a.Delegate.Label()))
		s.WriteString(field("Txs", fmt.Sprintf("%d", a.NumTransactions)))
	case models.QueryContract:
		c := r.Contract
		s.WriteString(field("Address", c.Address))
		if c.Alias != "" {
			s.WriteString(field("Alias", c.Alias))
		}
		s.WriteString(field("Kind", c.Kind))
		s.WriteString(field("Balance", tezos.FormatTez(c.Balance)+" ꜩ"))
		if len(c.Tzips) > 0 {
			s.WriteString(field("Standards", strings.Join(c.Tzips, ", ")))
		}
		names := make([]string, 0, len(c.Entrypoints))
		for _, e := range c.Entrypoints {
			names = append(names, e.Name)
		}
		if len(names) == 0 {
			names = operation.KnownEntrypoints(c.Address)
		}
		if len(names) > 0 {
			s.WriteString(field("Entrypoints", strings.Join(names, ", ")))
		}
		s.WriteString(mutedStyle.Render("press i to draft a call to this contract"))
	}
	return strings.TrimRight(s.String(), "\n")
}

func field(label, value string) string {
	if value == "" {
		value = "-"
	}
	return labelStyle.Render(padRight(label, 12)) + value + "\n"
}

func (m Model) footer() string {
	switch m.mode {
	case modeSearch:
		return "enter search · esc cancel"
	case modePairing, modeForm:
		return "esc cancel · ctrl+c quit"
	}
	keys := []string{"c connect", "d disconnect", "n next network", "r refresh", "/ search", "t transfer", "i call contract", "q quit"}
	return strings.Join(keys, " · ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
