package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirmModel is a modal Yes/No dialog centered over the content area.
// While active it consumes every key. Focus starts on No.
type confirmModel struct {
	active    bool
	message   string
	onConfirm tea.Cmd
	focusYes  bool

	width  int
	height int
}

func (m confirmModel) show(message string, onConfirm tea.Cmd) confirmModel {
	m.active = true
	m.message = message
	m.onConfirm = onConfirm
	m.focusYes = false
	return m
}

func (m confirmModel) setSize(width, height int) confirmModel {
	m.width, m.height = width, height
	return m
}

func (m confirmModel) dismiss() confirmModel {
	m.active = false
	m.message = ""
	m.onConfirm = nil
	m.focusYes = false
	return m
}

// update handles a key while the dialog is active. The returned command is
// the stored action when the user confirmed, nil otherwise.
func (m confirmModel) update(msg tea.KeyMsg) (confirmModel, tea.Cmd) {
	switch {
	case key.Matches(msg, confirmYesKey):
		return m.resolve(true)
	case key.Matches(msg, confirmNoKey), key.Matches(msg, keys.Back):
		return m.resolve(false)
	case key.Matches(msg, keys.Enter):
		return m.resolve(m.focusYes)
	case key.Matches(msg, confirmSwitchKey):
		m.focusYes = !m.focusYes
	}
	return m, nil
}

func (m confirmModel) resolve(yes bool) (confirmModel, tea.Cmd) {
	cmd := m.onConfirm
	m = m.dismiss()
	if !yes {
		return m, nil
	}
	return m, cmd
}

func (m confirmModel) view() string {
	if !m.active {
		return ""
	}

	question := lipgloss.NewStyle().Width(40).Align(lipgloss.Center).Render(m.message)

	yesStyle, noStyle := dialogButtonStyle, dialogActiveButtonStyle
	if m.focusYes {
		yesStyle, noStyle = dialogActiveButtonStyle, dialogButtonStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yesStyle.Render("Yes"), "  ", noStyle.Render("No"))
	dialog := dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, question, "", buttons))

	if m.width <= 0 || m.height <= 0 {
		return dialog
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

var (
	confirmYesKey = key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	)
	confirmNoKey = key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "cancel"),
	)
	confirmSwitchKey = key.NewBinding(
		key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"),
	)
)
