package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type statusMsgKind int

const (
	statusSuccess statusMsgKind = iota
	statusError
	statusWarning
)

// statusAutoDismiss is how long transient messages stay visible.
const statusAutoDismiss = 4 * time.Second

// statusBarModel is the bottom line of the watch view.
//
// Layout: [left: transient message or help] [right: busy spinner or watch state]
type statusBarModel struct {
	width int

	msg     string
	msgKind statusMsgKind
	msgID   int // Monotonic; stale dismiss timers carry an older id.
	nextID  int

	busy       string // Label of the in-flight operation, if any.
	unreadable bool
	spinner    spinner.Model
}

type statusDismissMsg struct {
	id int
}

func newStatusBarModel() statusBarModel {
	return statusBarModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(spinnerStyle),
		),
	}
}

// showMsg displays text in the left zone until statusAutoDismiss elapses or
// another message replaces it.
func (m statusBarModel) showMsg(text string, kind statusMsgKind) (statusBarModel, tea.Cmd) {
	m.msg = text
	m.msgKind = kind
	m.msgID = m.nextID
	m.nextID++

	id := m.msgID
	return m, tea.Tick(statusAutoDismiss, func(time.Time) tea.Msg {
		return statusDismissMsg{id: id}
	})
}

// startBusy shows the spinner with label until stopBusy is called.
func (m statusBarModel) startBusy(label string) (statusBarModel, tea.Cmd) {
	m.busy = label
	return m, m.spinner.Tick
}

func (m statusBarModel) stopBusy() statusBarModel {
	m.busy = ""
	return m
}

func (m statusBarModel) update(msg tea.Msg) (statusBarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statusDismissMsg:
		if msg.id == m.msgID {
			m.msg = ""
		}
	case spinner.TickMsg:
		if m.busy != "" {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// view renders the bar. An active message replaces the help content.
func (m statusBarModel) view(helpContent string) string {
	left := helpContent
	switch {
	case m.msg == "":
	case m.msgKind == statusSuccess:
		left = statusSuccessStyle.Render("✓ " + m.msg)
	case m.msgKind == statusError:
		left = statusErrorStyle.Render("✗ " + m.msg)
	default:
		left = statusWarningStyle.Render("⚠ " + m.msg)
	}

	right := m.renderRight()
	if room := m.width - lipgloss.Width(right) - 2; m.width > 0 && lipgloss.Width(left) > room {
		left = ansi.Truncate(left, max(room, 0), "…")
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + fmt.Sprintf("%*s", gap, "") + right
}

func (m statusBarModel) renderRight() string {
	switch {
	case m.busy != "":
		return statusRightStyle.Render(m.spinner.View() + m.busy)
	case m.unreadable:
		return statusWarningStyle.Render("config unreadable")
	default:
		return statusRightStyle.Render("● watching")
	}
}
