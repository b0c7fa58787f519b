package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/output"
)

// windowAction is a bus method taking a window id.
type windowAction func(c *dbus.Client, ctx context.Context, id string) error

func newWindowCmd(use, short string, action windowAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|->",
		Short: short,
		Long: short + `.

The id is a window id as printed by "wlpanel list". Pass "-" to read ids from
stdin, one per line; dmenu lines ("id | app | title") are accepted too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := windowIDs(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runWindowAction(use, ids, action)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newWindowCmd("activate", "Focus a window", (*dbus.Client).Activate),
		newWindowCmd("toggle", "Minimize a focused window or focus it", (*dbus.Client).Toggle),
		newWindowCmd("minimize", "Minimize a window", (*dbus.Client).Minimize),
		newWindowCmd("close", "Ask a window to close", (*dbus.Client).CloseWindow),
	)
}

// windowIDs resolves the id argument.
func windowIDs(arg string, stdin io.Reader) ([]string, error) {
	if arg != "-" {
		return []string{output.ParseDmenuSelection(arg)}, nil
	}

	var ids []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if id := output.ParseDmenuSelection(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(ids) == 0 {
		return nil, errors.New("no window ids on stdin")
	}
	return ids, nil
}

func runWindowAction(name string, ids []string, action windowAction) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var errs []error
	for _, id := range ids {
		logger.Debug("window action", "action", name, "id", id)
		if err := action(client, ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", name, id, err))
		}
	}
	return errors.Join(errs...)
}

var activeOpts struct {
	format string
	field  string
}

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Print the focused window",
	Long: `Print the window wlpaneld considers focused.

Exits with an error when no window is focused.

Examples:
  wlpanel active --field title
  wlpanel active --format json`,
	RunE: runActive,
}

func init() {
	rootCmd.AddCommand(activeCmd)

	activeCmd.Flags().StringVarP(&activeOpts.format, "format", "f", "",
		"Output format (table, json, yaml, template, dmenu, ids)")
	activeCmd.Flags().StringVar(&activeOpts.field, "field", "",
		"Print a single field (id, app, title, states, first_seen)")
}

func runActive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	w, ok, err := activeWindow(ctx, client)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no focused window")
	}

	if activeOpts.field != "" {
		fmt.Println(output.FormatField(w, activeOpts.field))
		return nil
	}

	formatter, err := newFormatter(activeOpts.format, "", false)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, []dbus.WindowInfo{w})
}

// activeWindow returns the focused window, if any.
func activeWindow(ctx context.Context, client *dbus.Client) (dbus.WindowInfo, bool, error) {
	id, err := client.ActiveWindow(ctx)
	if err != nil || id == "" {
		return dbus.WindowInfo{}, false, err
	}

	windows, err := client.ListWindows(ctx)
	if err != nil {
		return dbus.WindowInfo{}, false, err
	}
	for _, w := range windows {
		if w.ID == id {
			return w, true, nil
		}
	}
	// Closed between the two calls
	return dbus.WindowInfo{}, false, nil
}

var launchCmd = &cobra.Command{
	Use:   "launch <app-id>",
	Short: "Launch an application",
	Long: `Launch an application by desktop entry id, e.g. "firefox" or
"org.gnome.Nautilus". wlpaneld requests an activation token so the new window
receives focus.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		appID := strings.TrimSuffix(args[0], ".desktop")
		if err := client.Launch(ctx, appID); err != nil {
			if errors.Is(err, dbus.ErrUnknownApplication) {
				return fmt.Errorf("no desktop entry for %q", appID)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
}
