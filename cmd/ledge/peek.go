package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/state"
)

var peekOpts struct {
	icon string
}

var peekCmd = &cobra.Command{
	Use:   "peek <event> [value]",
	Short: "Show a sneak-peek transient",
	Long: `Show a sneak-peek transient on the compact surface: a short-lived
overlay for one event, cleared automatically after the configured hold.

The event is one of: ` + strings.Join(state.ValidEventKinds(), ", ") + `.
The value is a fraction between 0 and 1 (a volume of 40% is 0.4) and
defaults to 0 for events that carry no level.

Examples:
  # Volume changed to 65%
  ledge peek volume 0.65

  # Microphone muted, custom icon
  ledge peek microphone 0 --icon mic-muted`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPeek,
}

func init() {
	rootCmd.AddCommand(peekCmd)

	peekCmd.Flags().StringVar(&peekOpts.icon, "icon", "",
		"Icon name for the renderer (defaults to the event's standard icon)")
}

func runPeek(cmd *cobra.Command, args []string) error {
	kind, value, err := parseTransientArgs(args)
	if err != nil {
		return err
	}
	return withClient(func(c *dbus.Client) error {
		return c.Peek(kind, value, peekOpts.icon)
	})
}

// parseTransientArgs validates the shared <event> [value] argument shape.
func parseTransientArgs(args []string) (string, float64, error) {
	kind := args[0]
	if _, err := dbus.ParseEventKind(kind); err != nil {
		return "", 0, err
	}

	value := 0.0
	if len(args) == 2 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", 0, fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		if v < 0 || v > 1 {
			return "", 0, fmt.Errorf("value %v out of range, must be between 0 and 1", v)
		}
		value = v
	}
	return kind, value, nil
}
