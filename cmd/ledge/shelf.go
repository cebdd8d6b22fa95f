package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
)

var shelfOpts struct {
	quiet bool // Suppress output, return exit code only
}

// shelfCmd represents the shelf command group.
var shelfCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Manage the drag-and-drop shelf",
	Long: `Manage the drag-and-drop shelf for ledged.

While the shelf is active, every display opens on the shelf view and
stays open until the shelf is cleared, so items can be dragged across
workspaces without the surface closing underneath the cursor.

Use 'ledge shelf status' to check the current state.
Use 'ledge shelf on' to activate the shelf.
Use 'ledge shelf off' to clear the shelf.
Use 'ledge shelf toggle' to toggle the shelf.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to showing status
		return shelfStatusRun(cmd, args)
	},
}

// shelfOnCmd activates the shelf.
var shelfOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Activate the shelf",
	Long:  `Activate the shelf. Every display opens on the shelf view and holds it.`,
	RunE:  shelfOnRun,
}

// shelfOffCmd clears the shelf.
var shelfOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Clear the shelf",
	Long:  `Clear the shelf. Displays return to their normal open and close behaviour.`,
	RunE:  shelfOffRun,
}

// shelfToggleCmd toggles the shelf.
var shelfToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle the shelf",
	Long:  `Toggle the shelf between active and cleared.`,
	RunE:  shelfToggleRun,
}

// shelfStatusCmd shows shelf status.
var shelfStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show shelf status",
	Long:  `Show whether the shelf is currently active or cleared.`,
	RunE:  shelfStatusRun,
}

func init() {
	// Add subcommands
	shelfCmd.AddCommand(shelfOnCmd)
	shelfCmd.AddCommand(shelfOffCmd)
	shelfCmd.AddCommand(shelfToggleCmd)
	shelfCmd.AddCommand(shelfStatusCmd)

	// Add flags to all subcommands
	for _, cmd := range []*cobra.Command{shelfCmd, shelfOnCmd, shelfOffCmd, shelfToggleCmd, shelfStatusCmd} {
		cmd.Flags().BoolVarP(&shelfOpts.quiet, "quiet", "q", false,
			"Suppress output, return exit code only (0=cleared, 1=active)")
	}

	// Add to root
	rootCmd.AddCommand(shelfCmd)
}

func shelfOnRun(cmd *cobra.Command, args []string) error {
	if err := setShelf(true); err != nil {
		return err
	}

	if !shelfOpts.quiet {
		fmt.Println("Shelf: active")
	}

	// Exit code 1 means the shelf is now active
	os.Exit(1)
	return nil
}

func shelfOffRun(cmd *cobra.Command, args []string) error {
	if err := setShelf(false); err != nil {
		return err
	}

	if !shelfOpts.quiet {
		fmt.Println("Shelf: cleared")
	}

	// Exit code 0 means the shelf is now cleared
	return nil
}

func shelfToggleRun(cmd *cobra.Command, args []string) error {
	var active bool
	err := withClient(func(c *dbus.Client) error {
		report, err := c.Status()
		if err != nil {
			return err
		}
		active = !report.Shelf
		return c.SetShelf(active)
	})
	if err != nil {
		if !shelfOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to toggle shelf: %v\n", err)
		}
		return err
	}

	if !shelfOpts.quiet {
		if active {
			fmt.Println("Shelf: active")
		} else {
			fmt.Println("Shelf: cleared")
		}
	}

	// Exit code: 0=cleared, 1=active
	if active {
		os.Exit(1)
	}
	return nil
}

func shelfStatusRun(cmd *cobra.Command, args []string) error {
	var report *dbus.StatusReport
	err := withClient(func(c *dbus.Client) error {
		var err error
		report, err = c.Status()
		return err
	})
	if err != nil {
		if !shelfOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to query ledged: %v\n", err)
		}
		return err
	}

	if !shelfOpts.quiet {
		if report.Shelf {
			fmt.Println("Shelf: active")
		} else {
			fmt.Println("Shelf: cleared")
		}

		held := 0
		for _, d := range report.Displays {
			if d.Open {
				held++
			}
		}
		if report.Shelf && held > 0 {
			fmt.Printf("  Held open on %d display(s)\n", held)
		}
	}

	// Exit code: 0=cleared, 1=active
	if report.Shelf {
		os.Exit(1)
	}
	return nil
}

func setShelf(active bool) error {
	err := withClient(func(c *dbus.Client) error {
		return c.SetShelf(active)
	})
	if err != nil {
		if !shelfOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to set shelf: %v\n", err)
		}
		return err
	}
	return nil
}
