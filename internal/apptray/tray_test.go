package apptray

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

type testHandle struct{ id uint32 }

func (h *testHandle) ProtocolID() uint32 { return h.id }

type testOutput struct{ id uint32 }

func (o *testOutput) ProtocolID() uint32 { return o.id }

type testWorkspace struct{ id uint32 }

func (w *testWorkspace) ProtocolID() uint32 { return w.id }

type launchCall struct {
	argv []string
	env  []string
}

type fakeLauncher struct {
	calls []launchCall
	err   error
}

func (f *fakeLauncher) Launch(argv, env []string) error {
	f.calls = append(f.calls, launchCall{argv: argv, env: env})
	return f.err
}

type fixture struct {
	tray     *Tray
	commands *compositor.Mailbox[compositor.Command]
	launcher *fakeLauncher
}

func newFixture(t *testing.T, trackWorkspaces bool) *fixture {
	t.Helper()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		commands: compositor.NewMailbox[compositor.Command](),
		launcher: &fakeLauncher{},
	}
	f.tray = New(Options{
		TrackWorkspaces: trackWorkspaces,
		Launcher:        f.launcher,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	f.tray.Apply(compositor.Init{Commands: compositor.NewCommandSender(f.commands)})
	return f
}

func info(appID, title string, outputs []toplevel.Output, states ...toplevel.State) toplevel.Info {
	i := toplevel.NewInfo()
	i.AppID = appID
	i.Title = title
	i.State = toplevel.NewStateSet(states...)
	for _, o := range outputs {
		i.Outputs[o] = struct{}{}
	}
	return i
}

func (f *fixture) add(h toplevel.Handle, i toplevel.Info) {
	f.tray.Apply(compositor.Toplevel{Update: toplevel.Update{Kind: toplevel.UpdateAdd, Handle: h, Info: i}})
}

func (f *fixture) update(h toplevel.Handle, i toplevel.Info) {
	f.tray.Apply(compositor.Toplevel{Update: toplevel.Update{Kind: toplevel.UpdateUpdate, Handle: h, Info: i}})
}

func (f *fixture) remove(h toplevel.Handle) {
	f.tray.Apply(compositor.Toplevel{Update: toplevel.Update{Kind: toplevel.UpdateRemove, Handle: h}})
}

func (f *fixture) sent() []compositor.Command {
	cmds, _ := f.commands.Drain()
	return cmds
}

func TestTray_AddUpdateRemove(t *testing.T) {
	f := newFixture(t, false)
	out := &testOutput{id: 1}
	h := &testHandle{id: 10}

	f.add(h, info("firefox", "Mozilla Firefox", []toplevel.Output{out}, toplevel.Activated))
	f.tray.Apply(compositor.Output{Kind: toplevel.UpdateAdd, Output: out, Info: toplevel.OutputInfo{Name: "DP-1"}})

	groups := f.tray.ActiveToplevels()
	require.Contains(t, groups, "firefox")
	assert.Equal(t, "Mozilla Firefox", groups["firefox"][h].Title)

	active, ok := f.tray.ActiveWindow()
	require.True(t, ok)
	assert.Same(t, h, active.Handle)

	f.update(h, info("firefox", "Mozilla Firefox", []toplevel.Output{out}))
	_, ok = f.tray.ActiveWindow()
	assert.False(t, ok)

	f.remove(h)
	assert.NotContains(t, f.tray.ActiveToplevels(), "firefox")
	assert.Empty(t, f.tray.AppIDs())
}

func TestTray_GroupDeletedOnlyWhenEmpty(t *testing.T) {
	f := newFixture(t, false)
	a, b := &testHandle{id: 1}, &testHandle{id: 2}

	f.add(a, info("foot", "one", nil))
	f.add(b, info("foot", "two", nil))

	f.remove(a)
	require.Contains(t, f.tray.ActiveToplevels(), "foot")
	assert.Len(t, f.tray.ActiveToplevels()["foot"], 1)

	f.remove(b)
	assert.NotContains(t, f.tray.ActiveToplevels(), "foot")

	// Removing again is harmless.
	f.remove(b)
	assert.Empty(t, f.tray.ActiveToplevels())
}

func TestTray_RemovedGroupNotResurrectedByRelatedAppID(t *testing.T) {
	f := newFixture(t, false)
	old, esr := &testHandle{id: 1}, &testHandle{id: 2}

	f.add(old, info("firefox", "Mozilla Firefox", nil))
	f.remove(old)
	f.add(esr, info("firefox-esr", "Mozilla Firefox ESR", nil))
	// A late update for the closed window must not bring its group back.
	f.update(old, info("firefox", "Mozilla Firefox", nil))

	groups := f.tray.ActiveToplevels()
	assert.NotContains(t, groups, "firefox")
	require.Contains(t, groups, "firefox-esr")
	assert.Len(t, groups["firefox-esr"], 1)
	assert.Contains(t, groups["firefox-esr"], toplevel.Handle(esr))
	assert.NotContains(t, groups["firefox-esr"], toplevel.Handle(old))
	assert.Equal(t, []string{"firefox-esr"}, f.tray.AppIDs())
}

func TestTray_UpdateIgnoresEmptyOrUnknownAppID(t *testing.T) {
	f := newFixture(t, false)
	h := &testHandle{id: 1}

	f.add(h, info("foot", "shell", nil))
	f.update(h, info("", "renamed", nil))
	f.update(h, info("kitty", "renamed", nil))

	groups := f.tray.ActiveToplevels()
	require.Contains(t, groups, "foot")
	assert.Equal(t, "shell", groups["foot"][h].Title)
	assert.NotContains(t, groups, "kitty")
}

func TestTray_SnapshotIsolation(t *testing.T) {
	f := newFixture(t, false)
	h := &testHandle{id: 1}
	f.add(h, info("foot", "shell", nil))

	snap := f.tray.ActiveToplevels()
	delete(snap, "foot")
	assert.Contains(t, f.tray.ActiveToplevels(), "foot")
}

func TestTray_ActiveWindowFocusScope(t *testing.T) {
	f := newFixture(t, false)
	dp1, dp2 := &testOutput{id: 1}, &testOutput{id: 2}
	h := &testHandle{id: 10}

	f.tray.Apply(compositor.Output{Kind: toplevel.UpdateAdd, Output: dp1})
	f.add(h, info("firefox", "web", []toplevel.Output{dp2}, toplevel.Activated))

	_, ok := f.tray.ActiveWindow()
	assert.False(t, ok, "window on an unknown output is outside the focus scope")

	f.tray.Apply(compositor.Output{Kind: toplevel.UpdateAdd, Output: dp2})
	w, ok := f.tray.ActiveWindow()
	require.True(t, ok)
	assert.Same(t, h, w.Handle)
}

func TestTray_ActiveWindowWorkspaceScope(t *testing.T) {
	f := newFixture(t, true)
	dp1, dp2 := &testOutput{id: 1}, &testOutput{id: 2}
	ws := &testWorkspace{id: 5}
	a, b := &testHandle{id: 1}, &testHandle{id: 2}

	f.tray.Apply(compositor.Output{Kind: toplevel.UpdateAdd, Output: dp1})
	f.tray.Apply(compositor.Output{Kind: toplevel.UpdateAdd, Output: dp2})
	f.add(a, info("alpha", "a", []toplevel.Output{dp1}, toplevel.Activated))
	f.add(b, info("beta", "b", []toplevel.Output{dp2}, toplevel.Activated))

	f.tray.Apply(compositor.Workspaces{Active: []compositor.ActiveWorkspace{
		{Workspace: ws, Outputs: []toplevel.Output{dp2}},
	}})

	w, ok := f.tray.ActiveWindow()
	require.True(t, ok)
	assert.Same(t, b, w.Handle)
}

func TestTray_ActiveWindowDeterministic(t *testing.T) {
	f := newFixture(t, false)
	a, b := &testHandle{id: 1}, &testHandle{id: 2}

	f.add(b, info("zeta", "z", nil, toplevel.Activated))
	f.add(a, info("alpha", "a", nil, toplevel.Activated))

	for range 10 {
		w, ok := f.tray.ActiveWindow()
		require.True(t, ok)
		assert.Same(t, a, w.Handle)
	}
}

func TestTray_Toggle(t *testing.T) {
	f := newFixture(t, false)
	h := &testHandle{id: 1}

	f.add(h, info("foot", "shell", nil, toplevel.Activated))
	require.True(t, f.tray.Toggle(h))
	f.update(h, info("foot", "shell", nil, toplevel.Minimized))
	require.True(t, f.tray.Toggle(h))

	assert.Equal(t, []compositor.Command{
		compositor.Minimize{Handle: h},
		compositor.Activate{Handle: h},
	}, f.sent())
}

func TestTray_CommandsAfterFinishedAreDropped(t *testing.T) {
	f := newFixture(t, false)
	h := &testHandle{id: 1}

	var finishedErr error
	called := false
	f.tray.OnFinished(func(err error) {
		called = true
		finishedErr = err
	})

	f.commands.Close()
	f.tray.Apply(compositor.Finished{Err: errors.New("boom")})

	assert.True(t, called)
	assert.EqualError(t, finishedErr, "boom")
	assert.False(t, f.tray.Activate(h))
	done, err := f.tray.Finished()
	assert.True(t, done)
	assert.Error(t, err)

	// Launching still works, without an activation token.
	_, ok := f.tray.Exec("foot", "foot --server", nil)
	require.True(t, ok)
	require.Len(t, f.launcher.calls, 1)
	assert.Equal(t, []string{"foot", "--server"}, f.launcher.calls[0].argv)
	for _, kv := range f.launcher.calls[0].env {
		assert.NotContains(t, kv, "XDG_ACTIVATION_TOKEN=")
	}
	assert.Empty(t, f.sent())
}

func TestTray_ExecBeforeInitLaunchesDirectly(t *testing.T) {
	launcher := &fakeLauncher{}
	tray := New(Options{Launcher: launcher})

	_, ok := tray.Exec("foot", "foot", nil)
	require.True(t, ok)
	require.Len(t, launcher.calls, 1)

	launcher.err = errors.New("not found")
	_, ok = tray.Exec("ghost", "ghost", nil)
	assert.False(t, ok)
}

func TestTray_ExecLaunchesOnToken(t *testing.T) {
	f := newFixture(t, false)
	gpu := 1

	id, ok := f.tray.Exec("firefox", "firefox %u", &gpu)
	require.True(t, ok)

	cmds := f.sent()
	require.Len(t, cmds, 1)
	launch, ok := cmds[0].(compositor.LaunchWithToken)
	require.True(t, ok)
	assert.Equal(t, id, launch.RequestID)

	f.tray.Apply(compositor.ActivationToken{RequestID: id, Token: "tok-1", AppID: "firefox", Exec: launch.Exec, GPU: launch.GPU})

	require.Len(t, f.launcher.calls, 1)
	call := f.launcher.calls[0]
	assert.Equal(t, []string{"firefox"}, call.argv)
	assert.Contains(t, call.env, "XDG_ACTIVATION_TOKEN=tok-1")
	assert.Contains(t, call.env, "DESKTOP_STARTUP_ID=tok-1")
	assert.Contains(t, call.env, "DRI_PRIME=1")
}

func TestTray_LaunchWithoutToken(t *testing.T) {
	f := newFixture(t, false)
	f.tray.Apply(compositor.ActivationToken{AppID: "foot", Exec: "foot"})

	require.Len(t, f.launcher.calls, 1)
	for _, kv := range f.launcher.calls[0].env {
		assert.NotContains(t, kv, "XDG_ACTIVATION_TOKEN=")
	}
}

func TestTray_LaunchFailureListeners(t *testing.T) {
	f := newFixture(t, false)
	f.launcher.err = errors.New("no such file")

	var failed []string
	f.tray.OnLaunchFailed(func(appID string, err error) {
		failed = append(failed, appID+": "+err.Error())
	})

	f.tray.Apply(compositor.ActivationToken{AppID: "ghost", Exec: "ghost --new"})
	f.tray.Apply(compositor.ActivationToken{AppID: "broken", Exec: `broken "unterminated`})

	require.Len(t, failed, 2)
	assert.Equal(t, "ghost: no such file", failed[0])
	assert.Contains(t, failed[1], "broken: ")
}

func TestTray_LookupByID(t *testing.T) {
	f := newFixture(t, false)
	h := &testHandle{id: 1}
	f.add(h, info("foot", "shell", nil))

	ws := f.tray.Windows()
	require.Len(t, ws, 1)
	w, ok := f.tray.Lookup(ws[0].ID)
	require.True(t, ok)
	assert.Same(t, h, w.Handle)

	f.remove(h)
	_, ok = f.tray.Lookup(ws[0].ID)
	assert.False(t, ok)
}

func TestTray_OnChange(t *testing.T) {
	f := newFixture(t, false)
	count := 0
	f.tray.OnChange(func() { count++ })

	h := &testHandle{id: 1}
	f.add(h, info("foot", "shell", nil))
	f.update(h, info("", "ignored", nil))
	f.remove(h)

	assert.Equal(t, 2, count)
}

func TestButtons(t *testing.T) {
	f := newFixture(t, false)
	a, b := &testHandle{id: 1}, &testHandle{id: 2}
	f.add(a, info("foot", "shell", nil, toplevel.Activated))
	f.add(b, info("code", "editor", nil))

	buttons := f.tray.Buttons([]string{"firefox", "foot", "firefox"})
	require.Len(t, buttons, 3)

	assert.Equal(t, "firefox", buttons[0].AppID)
	assert.True(t, buttons[0].Pinned)
	assert.False(t, buttons[0].Running())

	assert.Equal(t, "foot", buttons[1].AppID)
	assert.True(t, buttons[1].Focused)

	assert.Equal(t, "code", buttons[2].AppID)
	assert.False(t, buttons[2].Pinned)
}

func TestClick(t *testing.T) {
	f := newFixture(t, false)
	a, b := &testHandle{id: 1}, &testHandle{id: 2}
	f.add(a, info("foot", "one", nil, toplevel.Activated))
	f.add(b, info("foot", "two", nil))

	buttons := f.tray.Buttons([]string{"firefox"})
	require.Len(t, buttons, 2)

	assert.True(t, f.tray.Click(buttons[0], "firefox", nil))
	assert.True(t, f.tray.Click(buttons[1], "", nil))

	cmds := f.sent()
	require.Len(t, cmds, 2)
	assert.IsType(t, compositor.LaunchWithToken{}, cmds[0])
	assert.Equal(t, compositor.Activate{Handle: b}, cmds[1])

	assert.False(t, f.tray.Click(Button{AppID: "none", Pinned: true}, "", nil))
}

func TestPreferredGPU(t *testing.T) {
	assert.Nil(t, PreferredGPU(nil, false))

	gpu := PreferredGPU(nil, true)
	require.NotNil(t, gpu)
	assert.Equal(t, 1, *gpu)

	configured := 0
	assert.Same(t, &configured, PreferredGPU(&configured, true))
}

func TestLaunchEnv(t *testing.T) {
	env := LaunchEnv([]string{"PATH=/bin"}, "", nil)
	assert.Equal(t, []string{"PATH=/bin"}, env)

	gpu := 0
	env = LaunchEnv(nil, "t", &gpu)
	assert.Equal(t, []string{"XDG_ACTIVATION_TOKEN=t", "DESKTOP_STARTUP_ID=t", "DRI_PRIME=0"}, env)
}
