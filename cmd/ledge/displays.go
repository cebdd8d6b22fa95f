package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/display"
)

var displaysOpts struct {
	jsonOut bool
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List tracked displays",
	Long: `List the displays ledged currently tracks, one line per display
with the surface's phase, hover state, and display state. Display
IDs printed here are the IDs accepted by 'ledge open' and
'ledge close'.`,
	RunE: runDisplays,
}

func init() {
	rootCmd.AddCommand(displaysCmd)

	displaysCmd.Flags().BoolVar(&displaysOpts.jsonOut, "json", false,
		"Output as JSON")
}

func runDisplays(cmd *cobra.Command, args []string) error {
	var infos []display.ContextInfo
	err := withClient(func(c *dbus.Client) error {
		var err error
		infos, err = c.ListDisplays()
		return err
	})
	if err != nil {
		return err
	}

	if displaysOpts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No displays tracked")
		return nil
	}

	for _, info := range infos {
		name := info.Display.Name
		if name == "" {
			name = "-"
		}
		focus := " "
		if info.Display.Focused {
			focus = "*"
		}
		fmt.Printf("%s %-12s %-10s %4dx%-4d  phase=%-11s hover=%-9s %s\n",
			focus, info.Display.ID, name,
			int(info.Display.Bounds.W), int(info.Display.Bounds.H),
			info.Phase, info.Hover, info.State)
	}
	return nil
}
