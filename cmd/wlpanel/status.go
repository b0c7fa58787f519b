package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wlpanel/internal/dbus"
)

var statusOpts struct {
	follow    bool
	maxLength int
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the focused window in Waybar's custom module JSON format.

With --follow, a new line is printed whenever the window list changes, which
suits Waybar's continuous mode:

  "custom/window": {
    "exec": "wlpanel status --follow",
    "return-type": "json",
    "on-click": "wlpanel tui"
  }

The output includes:
  - text: Title of the focused window
  - alt: App id of the focused window, "empty" or "offline"
  - tooltip: Number of windows per application
  - class: Same as alt`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.follow, "follow", false,
		"Print a new status line on every change")
	statusCmd.Flags().IntVar(&statusOpts.maxLength, "max-length", 60,
		"Truncate the title to this many characters (0=unlimited)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return outputStatus(os.Stdout, WaybarStatus{Alt: "offline", Class: "offline"})
	}
	defer func() { _ = client.Close() }()

	if !statusOpts.follow {
		return outputStatus(os.Stdout, fetchStatus(context.Background(), client))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	changes, err := client.Watch(ctx)
	if err != nil {
		return err
	}
	if err := outputStatus(os.Stdout, fetchStatus(ctx, client)); err != nil {
		return err
	}
	for range changes {
		if err := outputStatus(os.Stdout, fetchStatus(ctx, client)); err != nil {
			return err
		}
	}
	return nil
}

// fetchStatus queries the panel. A panel that is not running yields the
// "offline" status rather than an error.
func fetchStatus(ctx context.Context, client *dbus.Client) WaybarStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	windows, err := client.ListWindows(ctx)
	if err != nil {
		logger.Debug("failed to list windows", "error", err)
		return WaybarStatus{Alt: "offline", Class: "offline"}
	}
	return generateStatus(windows, statusOpts.maxLength)
}

// generateStatus creates a WaybarStatus from the window list.
func generateStatus(windows []dbus.WindowInfo, maxLength int) WaybarStatus {
	if len(windows) == 0 {
		return WaybarStatus{Alt: "empty", Class: "empty", Tooltip: "No windows"}
	}

	status := WaybarStatus{
		Alt:     "empty",
		Class:   "empty",
		Tooltip: buildCountsTooltip(windows),
	}
	for _, w := range windows {
		if w.HasState("activated") {
			status.Text = truncateTitle(w.Title, maxLength)
			status.Alt = w.AppID
			status.Class = w.AppID
			break
		}
	}
	return status
}

// buildCountsTooltip lists window counts per app id, in first-seen order.
func buildCountsTooltip(windows []dbus.WindowInfo) string {
	var order []string
	counts := make(map[string]int)
	for _, w := range windows {
		if counts[w.AppID] == 0 {
			order = append(order, w.AppID)
		}
		counts[w.AppID]++
	}

	lines := make([]string, 0, len(order)+1)
	lines = append(lines, fmt.Sprintf("%d windows", len(windows)))
	for _, app := range order {
		lines = append(lines, fmt.Sprintf("%s: %d", app, counts[app]))
	}
	return strings.Join(lines, "\n")
}

func truncateTitle(title string, maxLength int) string {
	r := []rune(title)
	if maxLength <= 0 || len(r) <= maxLength {
		return title
	}
	return string(r[:maxLength-1]) + "…"
}

// outputStatus writes the status as a JSON line.
func outputStatus(w io.Writer, status WaybarStatus) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(status)
}
