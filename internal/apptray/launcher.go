package apptray

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/jmylchreest/wlpanel/internal/desktopentry"
)

// Launcher starts application processes.
type Launcher interface {
	Launch(argv []string, env []string) error
}

// ProcessLauncher starts detached child processes in their own session.
type ProcessLauncher struct {
	Logger *slog.Logger
}

// Launch implements Launcher. The child is not waited on beyond reaping.
func (l ProcessLauncher) Launch(argv []string, env []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	go func() {
		if err := cmd.Wait(); err != nil && l.Logger != nil {
			l.Logger.Debug("launched process exited", "program", argv[0], "error", err)
		}
	}()
	return nil
}

// LaunchEnv returns base extended with the activation token and GPU
// selection variables. An empty token adds no token variables.
func LaunchEnv(base []string, token string, gpu *int) []string {
	env := make([]string, 0, len(base)+3)
	env = append(env, base...)
	if token != "" {
		env = append(env, "XDG_ACTIVATION_TOKEN="+token, "DESKTOP_STARTUP_ID="+token)
	}
	if gpu != nil {
		env = append(env, "DRI_PRIME="+strconv.Itoa(*gpu))
	}
	return env
}

// PreferredGPU picks the GPU for a launch: the configured one, or the first
// non-default GPU for applications that ask for it.
func PreferredGPU(configured *int, prefersNonDefault bool) *int {
	if configured != nil || !prefersNonDefault {
		return configured
	}
	one := 1
	return &one
}

func (t *Tray) launch(appID, execLine, token string, gpu *int) bool {
	argv, err := desktopentry.ExecArgs(execLine)
	if err == nil {
		err = t.launcher.Launch(argv, LaunchEnv(os.Environ(), token, gpu))
	}
	if err != nil {
		t.logger.Warn("failed to launch application", "app_id", appID, "exec", execLine, "error", err)
		for _, fn := range t.launchFailedListeners {
			fn(appID, err)
		}
		return false
	}
	t.logger.Info("launched application", "program", argv[0], "token", token != "")
	return true
}
