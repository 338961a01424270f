package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formTransfer formKind = iota
	formCall
)

// form is a small stack of labelled text inputs submitted with enter on the last one
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(kind formKind, title string, fields [][2]string) *form {
	f := &form{kind: kind, title: title}
	for _, field := range fields {
		ti := textinput.New()
		ti.Placeholder = field[1]
		ti.CharLimit = 512
		ti.Width = 56
		f.labels = append(f.labels, field[0])
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

func newTransferForm() *form {
	return newForm(formTransfer, "Transfer draft", [][2]string{
		{"Recipient", "tz1..."},
		{"Amount", "0.0"},
		{"Asset", "tez | uUSD | tzBTC | QUIPU"},
		{"Memo", "optional note"},
	})
}

func newCallForm(contract string) *form {
	f := newForm(formCall, "Contract call draft", [][2]string{
		{"Contract", "KT1..."},
		{"Entrypoint", "default"},
		{"Parameters", `{"prim":"Unit"}`},
	})
	if contract != "" {
		f.inputs[0].SetValue(contract)
	}
	return f
}

// move shifts focus by delta, wrapping around
func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(f.title) + "\n")
	for i, in := range f.inputs {
		label := labelStyle.Render(padRight(f.labels[i], 11))
		s.WriteString(label + " " + in.View() + "\n")
	}
	s.WriteString(mutedStyle.Render("tab next field · enter on last field validates · esc cancel"))
	return s.String()
}
