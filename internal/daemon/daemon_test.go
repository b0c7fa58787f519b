package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/wlpanel/internal/apptray"
	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/desktopentry"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
	"github.com/jmylchreest/wlpanel/internal/uiloop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testHandle struct{ id uint32 }

func (h *testHandle) ProtocolID() uint32 { return h.id }

type nopLauncher struct{}

func (nopLauncher) Launch([]string, []string) error { return nil }

type recordingLauncher struct{ argv [][]string }

func (l *recordingLauncher) Launch(argv, _ []string) error {
	l.argv = append(l.argv, argv)
	return nil
}

// controllerFixture runs a tray on a uiloop.Loop, the way wlpaneld does
// when headless.
type controllerFixture struct {
	loop     *uiloop.Loop
	tray     *apptray.Tray
	commands *compositor.Mailbox[compositor.Command]
	ctrl     *TrayController
}

func newControllerFixture(t *testing.T, entries *desktopentry.Cache) *controllerFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &controllerFixture{
		loop:     uiloop.New(),
		tray:     apptray.New(apptray.Options{Launcher: nopLauncher{}, Logger: discardLogger()}),
		commands: compositor.NewMailbox[compositor.Command](),
	}
	f.ctrl = NewTrayController(f.loop, f.tray, entries)
	go f.loop.Run(ctx)
	return f
}

// apply feeds msg to the tray on the UI thread and waits for it.
func (f *controllerFixture) apply(t *testing.T, msg compositor.Message) {
	t.Helper()
	_, err := uiloop.Call(context.Background(), f.loop, func() struct{} {
		f.tray.Apply(msg)
		return struct{}{}
	})
	require.NoError(t, err)
}

func (f *controllerFixture) init(t *testing.T) {
	f.apply(t, compositor.Init{Commands: compositor.NewCommandSender(f.commands)})
}

func (f *controllerFixture) add(t *testing.T, h toplevel.Handle, appID, title string, states ...toplevel.State) {
	i := toplevel.NewInfo()
	i.AppID = appID
	i.Title = title
	i.State = toplevel.NewStateSet(states...)
	f.apply(t, compositor.Toplevel{Update: toplevel.Update{Kind: toplevel.UpdateAdd, Handle: h, Info: i}})
}

func (f *controllerFixture) sent() []compositor.Command {
	cmds, _ := f.commands.Drain()
	return cmds
}

func TestTrayController_Windows(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.init(t)
	f.add(t, &testHandle{id: 1}, "foot", "shell", toplevel.Activated, toplevel.Maximized)
	f.add(t, &testHandle{id: 2}, "firefox", "Mozilla Firefox")

	ctx := context.Background()
	windows, err := f.ctrl.Windows(ctx)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, "firefox", windows[0].AppID)
	assert.Equal(t, []string{}, windows[0].States)
	assert.Equal(t, "foot", windows[1].AppID)
	assert.Equal(t, "shell", windows[1].Title)
	assert.True(t, windows[1].HasState("activated"))
	assert.True(t, windows[1].HasState("maximized"))
	assert.NotZero(t, windows[1].FirstSeen)

	active, err := f.ctrl.ActiveWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, windows[1].ID, active)
}

func TestTrayController_ActionsResolveIDs(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.init(t)
	h := &testHandle{id: 7}
	f.add(t, h, "foot", "shell", toplevel.Activated)

	ctx := context.Background()
	windows, err := f.ctrl.Windows(ctx)
	require.NoError(t, err)
	id := windows[0].ID

	require.NoError(t, f.ctrl.Activate(ctx, id))
	require.NoError(t, f.ctrl.Toggle(ctx, id))
	require.NoError(t, f.ctrl.Close(ctx, id))

	cmds := f.sent()
	require.Len(t, cmds, 3)
	assert.Equal(t, compositor.Activate{Handle: h}, cmds[0])
	// The window is activated, so toggling minimizes it.
	assert.Equal(t, compositor.Minimize{Handle: h}, cmds[1])
	assert.Equal(t, compositor.Close{Handle: h}, cmds[2])

	err = f.ctrl.Minimize(ctx, "does-not-exist")
	assert.ErrorIs(t, err, dbus.ErrUnknownWindow)
}

func TestTrayController_NotReady(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.init(t)
	f.add(t, &testHandle{id: 1}, "foot", "shell")

	ctx := context.Background()
	windows, err := f.ctrl.Windows(ctx)
	require.NoError(t, err)

	f.apply(t, compositor.Finished{Err: errors.New("gone")})
	assert.ErrorIs(t, f.ctrl.Activate(ctx, windows[0].ID), dbus.ErrNotReady)
}

func TestTrayController_CallTimesOutWithoutLoop(t *testing.T) {
	tray := apptray.New(apptray.Options{Logger: discardLogger()})
	ctrl := NewTrayController(uiloop.New(), tray, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ctrl.Windows(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTrayController_Launch(t *testing.T) {
	entries := desktopentry.NewCache(nil, discardLogger())
	entries.Add(&desktopentry.Entry{ID: "org.mozilla.firefox", Name: "Firefox", Exec: "firefox %u"})
	entries.Add(&desktopentry.Entry{ID: "steam", Name: "Steam", Exec: "steam", PrefersNonDefaultGPU: true})

	f := newControllerFixture(t, entries)
	ctx := context.Background()

	f.init(t)
	require.NoError(t, f.ctrl.Launch(ctx, "firefox"))
	require.NoError(t, f.ctrl.Launch(ctx, "steam"))
	assert.ErrorIs(t, f.ctrl.Launch(ctx, "zzzzqqqq"), dbus.ErrUnknownApplication)

	cmds := f.sent()
	require.Len(t, cmds, 2)
	firefox, ok := cmds[0].(compositor.LaunchWithToken)
	require.True(t, ok)
	assert.Equal(t, "org.mozilla.firefox", firefox.AppID)
	assert.Equal(t, "firefox %u", firefox.Exec)
	assert.Nil(t, firefox.GPU)

	steam, ok := cmds[1].(compositor.LaunchWithToken)
	require.True(t, ok)
	require.NotNil(t, steam.GPU)
	assert.Equal(t, 1, *steam.GPU)
}

func TestTrayController_LaunchWithoutTracker(t *testing.T) {
	entries := desktopentry.NewCache(nil, discardLogger())
	entries.Add(&desktopentry.Entry{ID: "foot", Name: "Foot", Exec: "foot --server"})

	launcher := &recordingLauncher{}
	f := newControllerFixture(t, entries)
	f.tray = apptray.New(apptray.Options{Launcher: launcher, Logger: discardLogger()})
	f.ctrl = NewTrayController(f.loop, f.tray, entries)
	ctx := context.Background()

	// Before Init there is no worker; the entry is started directly.
	require.NoError(t, f.ctrl.Launch(ctx, "foot"))

	f.init(t)
	f.commands.Close()
	f.apply(t, compositor.Finished{Err: errors.New("no display")})
	require.NoError(t, f.ctrl.Launch(ctx, "foot"))

	assert.Empty(t, f.sent())
	_, err := uiloop.Call(ctx, f.loop, func() struct{} {
		assert.Equal(t, [][]string{{"foot", "--server"}, {"foot", "--server"}}, launcher.argv)
		return struct{}{}
	})
	require.NoError(t, err)
}

func TestTrayController_LaunchWithoutEntries(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.init(t)
	assert.ErrorIs(t, f.ctrl.Launch(context.Background(), "firefox"), dbus.ErrUnknownApplication)
}

func TestInternalNotifier_RateLimit(t *testing.T) {
	n := NewInternalNotifier(discardLogger())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	var sent []*dbus.Notification
	n.SetNotifyHandler(func(notification *dbus.Notification) (uint32, error) {
		sent = append(sent, notification)
		return uint32(len(sent)), nil
	})

	assert.True(t, n.Notify("k", "first", "", NotificationLevelInfo))
	assert.False(t, n.Notify("k", "again", "", NotificationLevelInfo))
	assert.True(t, n.Notify("other", "different key", "", NotificationLevelInfo))

	clock = clock.Add(6 * time.Second)
	assert.True(t, n.Notify("k", "later", "", NotificationLevelInfo))

	require.Len(t, sent, 3)
	assert.Equal(t, appName, sent[0].AppName)
	assert.True(t, sent[0].Transient())
	assert.Equal(t, dbus.UrgencyLow, sent[0].Urgency())
}

func TestInternalNotifier_Levels(t *testing.T) {
	n := NewInternalNotifier(discardLogger())
	var last *dbus.Notification
	n.SetNotifyHandler(func(notification *dbus.Notification) (uint32, error) {
		last = notification
		return 1, nil
	})

	n.NotifyTrackingStopped(errors.New("broken pipe"))
	require.NotNil(t, last)
	assert.Equal(t, dbus.UrgencyCritical, last.Urgency())
	assert.Equal(t, "dialog-error", last.AppIcon)
	assert.Contains(t, last.Body, "broken pipe")

	n.NotifyConfigError(errors.New("bad position"))
	assert.Equal(t, dbus.UrgencyNormal, last.Urgency())
	assert.Equal(t, "dialog-warning", last.AppIcon)
}

func TestInternalNotifier_DisabledOrNoHandler(t *testing.T) {
	n := NewInternalNotifier(discardLogger())
	assert.False(t, n.Notify("k", "no handler", "", NotificationLevelInfo))

	calls := 0
	n.SetNotifyHandler(func(*dbus.Notification) (uint32, error) {
		calls++
		return 0, errors.New("no notification daemon")
	})
	assert.False(t, n.Notify("k", "fails", "", NotificationLevelInfo))

	n.SetEnabled(false)
	assert.False(t, n.Notify("k2", "disabled", "", NotificationLevelInfo))
	assert.Equal(t, 1, calls)
}

type failingBackend struct{ err error }

func (b failingBackend) Name() string { return "failing" }

func (b failingBackend) Connect(context.Context, *slog.Logger) (compositor.Session, error) {
	return nil, b.err
}

func TestPanel_RequireConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := uiloop.New()
	go loop.Run(ctx)

	cfg := config.DefaultPanelConfig()
	cfg.Compositor.RequireConnection = true
	cfg.DBus.Enabled = false
	cfg.DBus.Notify = false

	fatal := make(chan error, 1)
	p := NewPanel(Options{
		Config:    cfg,
		Backend:   failingBackend{err: errors.New("no display")},
		Scheduler: loop,
		Logger:    discardLogger(),
		Launcher:  nopLauncher{},
		DataDirs:  []string{t.TempDir()},
		OnFatal:   func(err error) { fatal <- err },
	})
	require.NoError(t, p.Start(ctx))
	defer p.Stop()

	select {
	case err := <-fatal:
		assert.ErrorContains(t, err, "no display")
	case <-time.After(2 * time.Second):
		t.Fatal("OnFatal was not called")
	}

	finished, err := uiloop.Call(ctx, loop, func() bool {
		done, _ := p.Tray().Finished()
		return done
	})
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Error(t, p.Start(ctx), "starting twice fails")
}

func TestPanel_ConfigReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := uiloop.New()
	go loop.Run(ctx)

	path := filepath.Join(t.TempDir(), "wlpanel.toml")
	cfg := config.DefaultPanelConfig()
	cfg.DBus.Enabled = false
	cfg.DBus.Notify = false
	require.NoError(t, config.SavePanelConfig(cfg, path))

	p := NewPanel(Options{
		Config:     cfg,
		ConfigPath: path,
		Backend:    compositor.NoneBackend{},
		Scheduler:  loop,
		Logger:     discardLogger(),
		Launcher:   nopLauncher{},
		DataDirs:   []string{t.TempDir()},
	})
	reloaded := make(chan *config.PanelConfig, 1)
	p.OnConfigChange(func(c *config.PanelConfig) { reloaded <- c })
	require.NoError(t, p.Start(ctx))
	defer p.Stop()

	next := config.DefaultPanelConfig()
	next.DBus.Enabled = false
	next.DBus.Notify = false
	next.AppTray.LaunchGPU = 1
	next.Panel.Height = 48
	require.NoError(t, config.SavePanelConfig(next, path))

	select {
	case c := <-reloaded:
		assert.Equal(t, 48, c.Panel.Height)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	gpu, err := uiloop.Call(ctx, loop, func() *int { return p.Controller().launchGPU })
	require.NoError(t, err)
	require.NotNil(t, gpu)
	assert.Equal(t, 1, *gpu)
	assert.Same(t, p.Config(), p.configWatcher.GetCurrentConfig())
}

func TestConfigWatcher_InvalidConfigKeepsPrevious(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "wlpanel.toml")
	initial := config.DefaultPanelConfig()
	require.NoError(t, config.SavePanelConfig(initial, path))

	w, err := NewConfigWatcher(path, discardLogger())
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	errs := make(chan error, 1)
	w.SetErrorCallback(func(err error) { errs <- err })
	w.SetReloadCallback(func(*config.PanelConfig) { t.Error("invalid config must not be applied") })
	require.NoError(t, w.Start(ctx, initial))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[panel]\nposition = \"left\"\n"), 0o600))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("no validation error reported")
	}
	assert.Same(t, initial, w.GetCurrentConfig())
}

