package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/state"
)

var openOpts struct {
	view string
}

var openCmd = &cobra.Command{
	Use:   "open [display]",
	Short: "Open the surface",
	Long: `Open the surface on one display, or on every display when no
display ID is given. Display IDs are listed by "ledge displays".

The view is one of: ` + strings.Join(state.ValidViews(), ", ") + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&openOpts.view, "view", string(state.ViewHome),
		"View to open ("+strings.Join(state.ValidViews(), ", ")+")")
}

func runOpen(cmd *cobra.Command, args []string) error {
	displayID := ""
	if len(args) == 1 {
		displayID = args[0]
	}
	return withClient(func(c *dbus.Client) error {
		return c.Open(displayID, openOpts.view)
	})
}
