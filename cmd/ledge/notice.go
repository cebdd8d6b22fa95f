package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/state"
)

var noticeOpts struct {
	icon string
}

var noticeCmd = &cobra.Command{
	Use:   "notice <event> [value]",
	Short: "Show an inline HUD notice",
	Long: `Show an inline HUD notice: a transient rendered inside the open
surface instead of on the compact strip. Falls back to a sneak-peek
when the surface is closed.

The event is one of: ` + strings.Join(state.ValidEventKinds(), ", ") + `.

Examples:
  # Pomodoro timer finished
  ledge notice timer

  # Brightness changed to 80%
  ledge notice brightness 0.8`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNotice,
}

func init() {
	rootCmd.AddCommand(noticeCmd)

	noticeCmd.Flags().StringVar(&noticeOpts.icon, "icon", "",
		"Icon name for the renderer (defaults to the event's standard icon)")
}

func runNotice(cmd *cobra.Command, args []string) error {
	kind, value, err := parseTransientArgs(args)
	if err != nil {
		return err
	}
	return withClient(func(c *dbus.Client) error {
		return c.Notice(kind, value, noticeOpts.icon)
	})
}
