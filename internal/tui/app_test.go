package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/ipc"
)

const testConfig = `{"mcpServers": {
  "spotify": {"command": "/opt/bin/uvx", "args": ["--python", "3.12", "spotify-mcp"]},
  "filesystem": {"command": "npx", "args": ["-y", "server-filesystem"]}
}}`

func newTestApp(t *testing.T) (App, *core.ConfigStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := core.NewConfigStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	bus := ipc.NewBus()
	if _, err := ipc.NewService(bus, store, nil); err != nil {
		t.Fatal(err)
	}
	return NewApp(bus, path), store
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// loaded runs Init and feeds the result back, like the runtime would.
func loaded(t *testing.T, a App) App {
	t.Helper()
	a, _ = update(t, a, a.Init()())
	return a
}

func TestApp_LoadServers(t *testing.T) {
	a, _ := newTestApp(t)
	a = loaded(t, a)

	if !a.loaded {
		t.Fatal("loaded = false after Init")
	}
	want := []string{"filesystem", "spotify"}
	if len(a.names) != 2 || a.names[0] != want[0] || a.names[1] != want[1] {
		t.Errorf("names = %v, want %v", a.names, want)
	}

	view := a.View()
	for _, s := range []string{"SERVERS (2)", "filesystem", "spotify", "spotify-mcp"} {
		if !strings.Contains(view, s) {
			t.Errorf("view missing %q:\n%s", s, view)
		}
	}
}

func TestApp_CursorMovement(t *testing.T) {
	a, _ := newTestApp(t)
	a = loaded(t, a)

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyDown})
	if a.selected() != "spotify" {
		t.Errorf("selected = %q, want spotify", a.selected())
	}
	a, _ = update(t, a, runeKey('j'))
	if a.cursor != 1 {
		t.Errorf("cursor = %d, want 1 (clamped)", a.cursor)
	}
	a, _ = update(t, a, runeKey('k'))
	if a.selected() != "filesystem" {
		t.Errorf("selected = %q, want filesystem", a.selected())
	}
}

func TestApp_RemoveFlow(t *testing.T) {
	a, store := newTestApp(t)
	a = loaded(t, a)
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyDown})

	a, _ = update(t, a, runeKey('d'))
	if !a.confirm.active {
		t.Fatal("confirm dialog should open on d")
	}
	if !strings.Contains(a.View(), "Remove spotify") {
		t.Errorf("view should show the confirm prompt:\n%s", a.View())
	}

	a, cmd := update(t, a, runeKey('y'))
	if a.confirm.active {
		t.Error("confirm should close after y")
	}
	if cmd == nil {
		t.Fatal("confirming should return the remove request")
	}
	req, ok := cmd().(removeRequestedMsg)
	if !ok || req.name != "spotify" {
		t.Fatalf("cmd() = %#v, want removeRequestedMsg{spotify}", req)
	}

	a, _ = update(t, a, req)
	if a.status.busy == "" {
		t.Error("status should show a busy indicator while removing")
	}

	done := a.removeServerCmd("spotify")().(serverRemovedMsg)
	if done.err != "" {
		t.Fatalf("remove error = %q", done.err)
	}
	a, _ = update(t, a, done)
	if a.status.busy != "" {
		t.Error("busy indicator should clear after removal")
	}
	if !strings.Contains(a.status.msg, "Removed spotify") {
		t.Errorf("status msg = %q", a.status.msg)
	}

	servers, err := store.Get(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := servers["spotify"]; ok {
		t.Error("spotify still configured after removal")
	}
}

func TestApp_RemoveCancelled(t *testing.T) {
	a, _ := newTestApp(t)
	a = loaded(t, a)

	a, _ = update(t, a, runeKey('d'))
	a, cmd := update(t, a, runeKey('n'))
	if a.confirm.active {
		t.Error("confirm should close after n")
	}
	if cmd != nil {
		t.Error("cancel should not return a command")
	}
}

func TestApp_ConfigChangedAndWatchError(t *testing.T) {
	a, _ := newTestApp(t)
	a = loaded(t, a)
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyDown}) // select spotify

	a, _ = update(t, a, watchErrorMsg{message: "The app's configuration file is not valid JSON."})
	if !a.status.unreadable {
		t.Error("status should mark the config unreadable")
	}
	if !strings.Contains(a.View(), "not valid JSON") {
		t.Errorf("view should show the watch error:\n%s", a.View())
	}

	doc := &core.HostConfig{Servers: map[string]core.ServerLaunchSpec{
		"alpha":   {Command: "x"},
		"spotify": {Command: "y"},
		"zeta":    {Command: "z"},
	}}
	a, _ = update(t, a, configChangedMsg{doc: doc})
	if a.watchErr != "" || a.status.unreadable {
		t.Error("config change should clear the watch error")
	}
	if len(a.names) != 3 {
		t.Errorf("names = %v, want 3 servers", a.names)
	}
	if a.selected() != "spotify" {
		t.Errorf("selected = %q, want spotify kept", a.selected())
	}
}

func TestApp_Notification(t *testing.T) {
	a, _ := newTestApp(t)
	a, cmd := update(t, a, notificationMsg{n: core.Notification{
		Type: core.NotifyError, Title: "Download Failed", Message: "Try again later.",
	}})
	if cmd == nil {
		t.Error("notification should schedule a dismiss")
	}
	if a.status.msgKind != statusError {
		t.Errorf("msgKind = %d, want statusError", a.status.msgKind)
	}
	if a.status.msg != "Download Failed: Try again later." {
		t.Errorf("msg = %q", a.status.msg)
	}
}

func TestApp_Quit(t *testing.T) {
	a, _ := newTestApp(t)
	_, cmd := update(t, a, runeKey('q'))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestApp_ViewTruncatesToWidth(t *testing.T) {
	a, _ := newTestApp(t)
	a = loaded(t, a)
	a, _ = update(t, a, tea.WindowSizeMsg{Width: 30, Height: 20})

	for _, line := range strings.Split(a.View(), "\n") {
		if w := ansi.StringWidth(line); w > 30 {
			t.Errorf("line too wide (%d): %q", w, line)
		}
	}
}

func TestBridge(t *testing.T) {
	bus := ipc.NewBus()
	var got []tea.Msg
	stop := Bridge(bus, func(m tea.Msg) { got = append(got, m) })

	ipc.Publish(bus, ipc.ConfigChanged, ipc.ConfigChangedEvent{Document: &core.HostConfig{}})
	ipc.Publish(bus, ipc.WatchError, ipc.WatchErrorEvent{Message: "bad"})
	bus.Notifier().Notify(core.Notification{Type: core.NotifySuccess, Message: "ok"})
	stop()
	ipc.Publish(bus, ipc.WatchError, ipc.WatchErrorEvent{Message: "after stop"})

	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3: %#v", len(got), got)
	}
	if _, ok := got[0].(configChangedMsg); !ok {
		t.Errorf("got[0] = %T, want configChangedMsg", got[0])
	}
	if m, ok := got[1].(watchErrorMsg); !ok || m.message != "bad" {
		t.Errorf("got[1] = %#v", got[1])
	}
	if _, ok := got[2].(notificationMsg); !ok {
		t.Errorf("got[2] = %T, want notificationMsg", got[2])
	}
}
