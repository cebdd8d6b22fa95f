package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
)

// inhibitCmd represents the inhibit command group.
var inhibitCmd = &cobra.Command{
	Use:   "inhibit",
	Short: "Manage hover inhibitors",
	Long: `Manage hover inhibitors for ledged.

While any inhibitor is held, hover does not open the surface. Explicit
opens over D-Bus and transients still work, so a game or screen-share
script can park the surface out of the way without disabling it.

Inhibitors are named so independent scripts can hold them without
clobbering each other:

  ledge inhibit add screenshare
  ledge inhibit remove screenshare`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to listing inhibitors
		return inhibitListRun(cmd, args)
	},
}

// inhibitAddCmd adds a named inhibitor.
var inhibitAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a named inhibitor",
	Long:  `Add a named inhibitor. Adding the same name twice holds a single inhibitor.`,
	Args:  cobra.ExactArgs(1),
	RunE:  inhibitAddRun,
}

// inhibitRemoveCmd removes a named inhibitor.
var inhibitRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named inhibitor",
	Long:  `Remove a named inhibitor. Removing a name that is not held is not an error.`,
	Args:  cobra.ExactArgs(1),
	RunE:  inhibitRemoveRun,
}

// inhibitClearCmd removes all inhibitors.
var inhibitClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all inhibitors",
	Long:  `Remove every held inhibitor, regardless of who added it.`,
	RunE:  inhibitClearRun,
}

// inhibitListCmd lists held inhibitors.
var inhibitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List held inhibitors",
	Long:  `List the names of all currently held inhibitors.`,
	RunE:  inhibitListRun,
}

func init() {
	inhibitCmd.AddCommand(inhibitAddCmd)
	inhibitCmd.AddCommand(inhibitRemoveCmd)
	inhibitCmd.AddCommand(inhibitClearCmd)
	inhibitCmd.AddCommand(inhibitListCmd)

	rootCmd.AddCommand(inhibitCmd)
}

func inhibitAddRun(cmd *cobra.Command, args []string) error {
	return withClient(func(c *dbus.Client) error {
		return c.AddInhibitor(args[0])
	})
}

func inhibitRemoveRun(cmd *cobra.Command, args []string) error {
	return withClient(func(c *dbus.Client) error {
		return c.RemoveInhibitor(args[0])
	})
}

func inhibitClearRun(cmd *cobra.Command, args []string) error {
	return withClient(func(c *dbus.Client) error {
		report, err := c.Status()
		if err != nil {
			return err
		}
		for _, name := range report.Inhibitors {
			if err := c.RemoveInhibitor(name); err != nil {
				return fmt.Errorf("failed to remove inhibitor %q: %w", name, err)
			}
		}
		return nil
	})
}

func inhibitListRun(cmd *cobra.Command, args []string) error {
	return withClient(func(c *dbus.Client) error {
		report, err := c.Status()
		if err != nil {
			return err
		}
		if len(report.Inhibitors) == 0 {
			fmt.Println("No inhibitors held")
			return nil
		}
		for _, name := range report.Inhibitors {
			fmt.Println(name)
		}
		return nil
	})
}
