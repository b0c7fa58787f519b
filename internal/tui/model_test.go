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

	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/dbus"
)

type fakeClient struct {
	mu      sync.Mutex
	windows []dbus.WindowInfo
	calls   []string
	err     error
}

func (f *fakeClient) ListWindows(ctx context.Context) ([]dbus.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows, nil
}

func (f *fakeClient) record(method, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+":"+id)
	return f.err
}

func (f *fakeClient) Activate(ctx context.Context, id string) error {
	return f.record("activate", id)
}

func (f *fakeClient) Toggle(ctx context.Context, id string) error {
	return f.record("toggle", id)
}

func (f *fakeClient) Minimize(ctx context.Context, id string) error {
	return f.record("minimize", id)
}

func (f *fakeClient) CloseWindow(ctx context.Context, id string) error {
	return f.record("close", id)
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	m := New(config.DefaultConfig(), client)
	m.now = func() time.Time { return time.Unix(1_700_000_600, 0) }

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	updated, _ = m.Update(m.loadWindows())
	return updated.(Model)
}

func testWindows() []dbus.WindowInfo {
	return []dbus.WindowInfo{
		{ID: "W1", AppID: "firefox", Title: "Inbox", States: []string{"activated"}, FirstSeen: 1_700_000_000},
		{ID: "W2", AppID: "kitty", Title: "", States: []string{"minimized"}},
	}
}

func TestModel_LoadsWindows(t *testing.T) {
	m := newTestModel(t, &fakeClient{windows: testWindows()})

	require.Len(t, m.list.Items(), 2)
	first := m.list.Items()[0].(windowItem)
	assert.Equal(t, "Inbox", first.Title())
	assert.Equal(t, "[firefox] activated · 10 minutes ago", first.Description())

	second := m.list.Items()[1].(windowItem)
	assert.Equal(t, "(untitled)", second.Title())
	assert.Equal(t, "[kitty] minimized", second.Description())
}

func TestModel_WindowActions(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"activate", tea.KeyMsg{Type: tea.KeyEnter}, "activate:W1"},
		{"toggle", runeKey("t"), "toggle:W1"},
		{"minimize", runeKey("m"), "minimize:W1"},
		{"close", runeKey("x"), "close:W1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{windows: testWindows()}
			m := newTestModel(t, client)

			_, cmd := m.Update(tt.key)
			require.NotNil(t, cmd)
			msg := cmd()

			result, ok := msg.(actionResultMsg)
			require.True(t, ok, "got %T", msg)
			assert.NoError(t, result.err)
			assert.Equal(t, []string{tt.want}, client.calls)
		})
	}
}

func TestModel_ActionErrorShowsStatus(t *testing.T) {
	client := &fakeClient{windows: testWindows(), err: dbus.ErrNotReady}
	m := newTestModel(t, client)

	_, cmd := m.Update(runeKey("t"))
	result := cmd().(actionResultMsg)
	require.ErrorIs(t, result.err, dbus.ErrNotReady)

	_, cmd = m.Update(result)
	status := cmd().(statusMsg)
	assert.True(t, status.isErr)
	assert.Contains(t, status.text, "Toggle failed")
}

func TestModel_ListErrorShowsStatus(t *testing.T) {
	m := New(config.DefaultConfig(), &fakeClient{})
	_, cmd := m.Update(windowsMsg{err: errors.New("no panel")})
	require.NotNil(t, cmd)

	status := cmd().(statusMsg)
	assert.True(t, status.isErr)
	assert.Contains(t, status.text, "no panel")
}

func TestModel_Search(t *testing.T) {
	m := newTestModel(t, &fakeClient{windows: testWindows()})

	updated, _ := m.Update(runeKey("/"))
	m = updated.(Model)
	assert.Equal(t, ModeSearch, m.mode)

	for _, r := range "app=kitty" {
		updated, _ = m.Update(runeKey(string(r)))
		m = updated.(Model)
	}
	assert.Equal(t, "app=kitty", m.searchQuery)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "W2", m.list.Items()[0].(windowItem).window.ID)

	// Typing "q" in search must not quit.
	updated, _ = m.Update(runeKey("q"))
	m = updated.(Model)
	assert.Equal(t, ModeSearch, m.mode)
	assert.Equal(t, "app=kittyq", m.searchQuery)
	assert.Empty(t, m.list.Items())

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, ModeList, m.mode)
	assert.Empty(t, m.searchQuery)
	assert.Len(t, m.list.Items(), 2)
}

func TestModel_Details(t *testing.T) {
	m := newTestModel(t, &fakeClient{windows: testWindows()})

	updated, _ := m.Update(runeKey("i"))
	m = updated.(Model)
	require.Equal(t, ModeDetail, m.mode)
	require.NotNil(t, m.selected)
	assert.Equal(t, "W1", m.selected.ID)
	assert.Contains(t, m.renderDetail(*m.selected), "firefox")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, ModeList, m.mode)
	assert.Nil(t, m.selected)
}

func TestModel_RefreshChannel(t *testing.T) {
	ch := make(chan struct{}, 1)
	m := New(config.DefaultConfig(), &fakeClient{}).WithRefresh(ch)

	ch <- struct{}{}
	assert.Equal(t, refreshMsg{}, m.watchForChanges())

	close(ch)
	assert.Nil(t, m.watchForChanges())
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	_, cmd := m.Update(runeKey("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestBuildKeybindBar_FitsWidth(t *testing.T) {
	m := New(config.DefaultConfig(), nil)
	full := m.buildKeybindBar(0, ModeList)
	narrow := m.buildKeybindBar(20, ModeList)

	assert.Contains(t, full, "refresh")
	assert.Contains(t, narrow, "quit")
	assert.NotContains(t, narrow, "refresh")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
	assert.Equal(t, "any", truncate("any", 0))
}
