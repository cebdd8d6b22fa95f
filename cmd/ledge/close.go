package main

import (
	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
)

var closeCmd = &cobra.Command{
	Use:   "close [display]",
	Short: "Close the surface",
	Long: `Close the surface on one display, or on every display when no
display ID is given. A locked display stays open until it is
unlocked or closed over D-Bus, so close also releases locks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	displayID := ""
	if len(args) == 1 {
		displayID = args[0]
	}
	return withClient(func(c *dbus.Client) error {
		return c.CloseDisplay(displayID)
	})
}
