package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wlpanel/internal/tui"
)

var tuiOpts struct {
	noWatch bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive window browser",
	Long: `Launch the interactive terminal user interface for browsing windows.

The TUI provides:
  - Live list of tracked windows
  - Search with field filters (app=, title=, state=, id=) or fuzzy text
  - Detail view
  - Copy to clipboard support

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       Activate window
  t           Toggle (minimize if focused)
  m           Minimize
  x           Close
  i           Show details
  c           Copy app id to clipboard
  /           Search windows
  r           Refresh
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiOpts.noWatch, "no-watch", false,
		"Do not refresh on WindowsChanged signals")
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return tui.Run(context.Background(), tui.RunOptions{
		Config: cfg,
		Client: client,
		Watch:  !tuiOpts.noWatch,
	})
}
