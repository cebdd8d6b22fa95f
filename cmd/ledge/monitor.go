package main

import (
	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the interactive monitor",
	Long: `Launch the interactive terminal monitor for ledged.

The monitor shows:
  - Daemon status (version, uptime, lock, shelf, inhibitors)
  - Per-display surface state, refreshed every second
  - A live log of StateChanged and SurfacePhase signals
  - Open/close controls for the selected display

Key bindings:
  j/k, ↑/↓    Navigate displays
  enter       View display details
  e, tab      View the live event log
  o / x       Open / close surface on selected display
  c           Copy display snapshot as JSON
  f           Follow new events (event log)
  r           Refresh now
  ?           Show help
  q           Quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	return tui.Run(tui.RunOptions{})
}
