package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/ipc"
)

// App is the root Bubbletea model for `mcplink watch`: a live list of the
// servers in the host config, refreshed whenever the file changes.
type App struct {
	bus        *ipc.Bus
	configPath string

	servers map[string]core.ServerLaunchSpec
	names   []string
	cursor  int
	loaded  bool

	// Last watch failure; cleared by the next successful reload.
	watchErr string

	width  int
	height int

	help    help.Model
	status  statusBarModel
	confirm confirmModel
}

// NewApp creates the watch view. All data access goes through bus.
func NewApp(bus *ipc.Bus, configPath string) App {
	h := help.New()
	h.ShortSeparator = "  |  "
	return App{
		bus:        bus,
		configPath: configPath,
		help:       h,
		status:     newStatusBarModel(),
	}
}

// --- Messages ---

type serversLoadedMsg struct {
	servers map[string]core.ServerLaunchSpec
	err     string
}

type removeRequestedMsg struct {
	name string
}

type serverRemovedMsg struct {
	name string
	err  string
}

type configChangedMsg struct {
	doc *core.HostConfig
}

type watchErrorMsg struct {
	message string
}

type notificationMsg struct {
	n core.Notification
}

// Bridge forwards the bus topics the watch view renders into send (usually
// tea.Program.Send) until the returned cancel function is called.
func Bridge(bus *ipc.Bus, send func(tea.Msg)) func() {
	cancels := []func(){
		ipc.Subscribe(bus, ipc.ConfigChanged, func(ev ipc.ConfigChangedEvent) {
			send(configChangedMsg{doc: ev.Document})
		}),
		ipc.Subscribe(bus, ipc.WatchError, func(ev ipc.WatchErrorEvent) {
			send(watchErrorMsg{message: ev.Message})
		}),
		ipc.Subscribe(bus, ipc.Notify, func(n core.Notification) {
			send(notificationMsg{n: n})
		}),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Run shows the watch view until the user quits or ctx is cancelled.
func Run(ctx context.Context, bus *ipc.Bus, configPath string) error {
	p := tea.NewProgram(NewApp(bus, configPath), tea.WithAltScreen(), tea.WithContext(ctx))
	stop := Bridge(bus, p.Send)
	defer stop()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// --- Commands ---

func (a App) loadServersCmd() tea.Msg {
	resp := ipc.Call(context.Background(), a.bus, ipc.GetServers, ipc.Empty{})
	return serversLoadedMsg{servers: resp.Data, err: resp.Error}
}

func (a App) removeServerCmd(name string) tea.Cmd {
	bus := a.bus
	return func() tea.Msg {
		resp := ipc.Call(context.Background(), bus, ipc.DeleteServer, ipc.DeleteServerRequest{ServerName: name})
		return serverRemovedMsg{name: name, err: resp.Error}
	}
}

// --- Init / Update / View ---

func (a App) Init() tea.Cmd {
	return a.loadServersCmd
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.status.width = msg.Width
		return a, nil

	case serversLoadedMsg:
		if msg.err != "" {
			var cmd tea.Cmd
			a.status, cmd = a.status.showMsg(msg.err, statusError)
			return a, cmd
		}
		a.setServers(msg.servers)
		return a, nil

	case configChangedMsg:
		if msg.doc != nil {
			a.setServers(msg.doc.Servers)
		}
		a.watchErr = ""
		a.status.unreadable = false
		var cmd tea.Cmd
		a.status, cmd = a.status.showMsg("Configuration changed on disk", statusWarning)
		return a, cmd

	case watchErrorMsg:
		a.watchErr = msg.message
		a.status.unreadable = true
		return a, nil

	case notificationMsg:
		kind := statusSuccess
		if msg.n.Type == core.NotifyError {
			kind = statusError
		}
		var cmd tea.Cmd
		a.status, cmd = a.status.showMsg(msg.n.Title+": "+msg.n.Message, kind)
		return a, cmd

	case removeRequestedMsg:
		var spin tea.Cmd
		a.status, spin = a.status.startBusy("removing " + msg.name)
		return a, tea.Batch(spin, a.removeServerCmd(msg.name))

	case serverRemovedMsg:
		a.status = a.status.stopBusy()
		var cmd tea.Cmd
		if msg.err != "" {
			a.status, cmd = a.status.showMsg(msg.err, statusError)
			return a, cmd
		}
		a.status, cmd = a.status.showMsg("Removed "+msg.name, statusSuccess)
		return a, tea.Batch(cmd, a.loadServersCmd)

	case spinner.TickMsg, statusDismissMsg:
		var cmd tea.Cmd
		a.status, cmd = a.status.update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.confirm.active {
			var cmd tea.Cmd
			a.confirm, cmd = a.confirm.update(msg)
			return a, cmd
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.names)-1 {
			a.cursor++
		}
	case key.Matches(msg, keys.Refresh):
		return a, a.loadServersCmd
	case key.Matches(msg, keys.Remove):
		name := a.selected()
		if name == "" || a.status.busy != "" {
			return a, nil
		}
		a.confirm = a.confirm.show(
			fmt.Sprintf("Remove %s from the configuration?", name),
			func() tea.Msg { return removeRequestedMsg{name: name} },
		)
	}
	return a, nil
}

// setServers replaces the list, keeping the cursor on the same server
// when it still exists.
func (a *App) setServers(servers map[string]core.ServerLaunchSpec) {
	prev := a.selected()

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	a.servers = servers
	a.names = names
	a.loaded = true

	a.cursor = 0
	for i, name := range a.names {
		if name == prev {
			a.cursor = i
			break
		}
	}
}

func (a App) selected() string {
	if a.cursor < 0 || a.cursor >= len(a.names) {
		return ""
	}
	return a.names[a.cursor]
}

func (a App) View() string {
	header := a.renderHeader()
	footer := a.status.view(a.help.View(serversHelpKeyMap{empty: len(a.names) == 0}))

	bodyHeight := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
	var body string
	if a.confirm.active {
		body = a.confirm.setSize(a.width, bodyHeight).view()
	} else {
		body = a.renderServers()
	}
	if bodyHeight > 0 {
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	}

	return header + "\n" + body + "\n" + footer
}

func (a App) renderHeader() string {
	logo := logoStyle.Render("mcplink")
	path := a.configPath
	if a.width > 0 {
		path = ansi.Truncate(path, max(a.width-lipgloss.Width(logo)-2, 10), "…")
	}
	return logo + headerPathStyle.Render(path)
}

func (a App) renderServers() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(renderSectionHeader(fmt.Sprintf("SERVERS (%d)", len(a.names))))
	b.WriteString("\n\n")

	if a.watchErr != "" {
		b.WriteString(bannerStyle.Render("⚠ " + a.truncate(a.watchErr, 4)))
		b.WriteString("\n\n")
	}

	switch {
	case !a.loaded:
		b.WriteString(mutedStyle.Render("  Loading..."))
		b.WriteString("\n")
	case len(a.names) == 0:
		b.WriteString(mutedStyle.Render("  No servers configured."))
		b.WriteString("\n")
	}

	for i, name := range a.names {
		s := a.servers[name]
		prefix, nameStyle := "   ", normalItemStyle
		if i == a.cursor {
			prefix, nameStyle = cursorStyle.Render(" ▌ "), selectedItemStyle
		}
		launch := strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
		line := prefix + nameStyle.Render(name) + "  " +
			mutedStyle.Render(a.truncate(launch, 3+lipgloss.Width(name)+2))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// truncate shortens s to the terminal width minus used columns.
func (a App) truncate(s string, used int) string {
	if a.width <= 0 {
		return s
	}
	return ansi.Truncate(s, max(a.width-used, 1), "…")
}
