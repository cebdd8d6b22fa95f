package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show client and daemon versions",
	Long: `Show the version of this client and, when ledged is reachable over
D-Bus, the version of the running daemon.`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("ledge %s (commit: %s, built: %s)\n", version, commit, buildTime)

	err := withClient(func(c *dbus.Client) error {
		v, err := c.Version()
		if err != nil {
			return err
		}
		fmt.Printf("ledged %s\n", v)
		return nil
	})
	if err != nil {
		fmt.Println("ledged not running")
	}
	return nil
}
