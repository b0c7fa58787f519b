package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/wlpanel/internal/dbus"
	"github.com/jmylchreest/wlpanel/internal/output"
)

var listOpts struct {
	// Filter options
	app    string
	state  string
	search string
	limit  int

	// Output options
	format   string
	template string
	absolute bool
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked windows",
	Long: `List the windows wlpaneld tracks.

The default format comes from cli.toml ([output] format). The dmenu format
prints "id | app | title" lines that other commands accept on stdin.

Examples:
  # Table of all windows
  wlpanel list

  # Only minimized Firefox windows, as JSON
  wlpanel list --app firefox --state minimized --format json

  # Pick a window with fuzzel and focus it
  wlpanel list -f dmenu | fuzzel -d | wlpanel activate -

  # Custom template
  wlpanel list --format template --template '{{.AppID}}: {{.Title}} ({{.Seen}})'`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listOpts.app, "app", "",
		"Filter by app id (exact match, case-insensitive)")
	listCmd.Flags().StringVar(&listOpts.state, "state", "",
		"Filter by state (activated, minimized, maximized, fullscreen)")
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "",
		"Fuzzy search in app id and title")
	listCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0,
		"Maximum number of windows to show (0=unlimited)")

	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "",
		"Output format (table, json, yaml, template, dmenu, ids)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Go template for --format template")
	listCmd.Flags().BoolVar(&listOpts.absolute, "absolute", false,
		"Print first-seen timestamps instead of relative times")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	windows, err := client.ListWindows(ctx)
	if err != nil {
		return err
	}
	logger.Debug("fetched windows", "count", len(windows))

	windows = filterWindows(windows)

	formatter, err := newFormatter(listOpts.format, listOpts.template, listOpts.absolute)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, windows)
}

// filterWindows applies the filter flags.
func filterWindows(windows []dbus.WindowInfo) []dbus.WindowInfo {
	var out []dbus.WindowInfo
	for _, w := range windows {
		if listOpts.app != "" && !strings.EqualFold(w.AppID, listOpts.app) {
			continue
		}
		if listOpts.state != "" && !w.HasState(strings.ToLower(listOpts.state)) {
			continue
		}
		if listOpts.search != "" && !fuzzy.MatchNormalizedFold(listOpts.search, w.AppID+" "+w.Title) {
			continue
		}
		out = append(out, w)
		if listOpts.limit > 0 && len(out) >= listOpts.limit {
			break
		}
	}
	return out
}

// newFormatter builds a formatter from flags, falling back to cli.toml.
func newFormatter(format, tmpl string, absolute bool) (output.Formatter, error) {
	opts := output.DefaultFormatterOptions()
	opts.Humanize = cfg.Output.Humanize && !absolute
	opts.Width = terminalWidth()

	if format == "" {
		format = cfg.Output.Format
	}
	opts.Template = tmpl
	if opts.Template == "" && output.FormatType(format) == output.FormatTemplate {
		opts.Template = cfg.Output.Template
	}

	return output.NewFormatter(output.FormatType(format), opts)
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
