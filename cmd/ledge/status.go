package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/registry"
	"github.com/ledge-desktop/ledge/internal/state"
)

var statusOpts struct {
	jsonOut bool
	waybar  bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the ledged daemon status: uptime, lock and shelf state,
inhibitors, and the current state of every display surface.

With --waybar, outputs Waybar's custom module JSON format:

  "custom/ledge": {
    "exec": "ledge status --waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "ledge open"
  }

The waybar output includes:
  - text: the primary display's surface state
  - alt/class: CSS class (locked, open, active, idle)
  - tooltip: per-display breakdown`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.jsonOut, "json", false,
		"Output raw status as JSON")
	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(func(c *dbus.Client) error {
		report, err := c.Status()
		if err != nil {
			if statusOpts.waybar {
				// Waybar keeps polling; feed it an error class instead
				// of a broken module.
				return outputWaybar(WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
			}
			return err
		}

		switch {
		case statusOpts.jsonOut:
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		case statusOpts.waybar:
			return outputWaybar(waybarFromReport(report))
		default:
			printStatus(report)
			return nil
		}
	})
}

// printStatus renders the human-readable report.
func printStatus(r *dbus.StatusReport) {
	fmt.Printf("ledged %s (pid %d), up %s\n", r.Version, r.PID, humanize.RelTime(r.StartedAt, time.Now(), "", ""))
	fmt.Printf("locked: %s   shelf: %s   inhibitors: %s\n",
		yesNo(r.Locked), onOff(r.Shelf), inhibitorList(r.Inhibitors))

	if r.Music != nil && r.Music.Present {
		line := string(r.Music.Status)
		if r.Music.Title != "" {
			line += "  " + r.Music.Title
			if r.Music.Artist != "" {
				line += " - " + r.Music.Artist
			}
		}
		if r.Music.Player != "" {
			line += " (" + r.Music.Player + ")"
		}
		fmt.Println("music: " + line)
	}
	if r.Battery != nil && r.Battery.Present {
		fmt.Printf("battery: %.0f%% %s\n", r.Battery.Percentage, r.Battery.State)
	}
	if line := winnersLine(r.Winners); line != "" {
		fmt.Println("winners: " + line)
	}

	if len(r.Displays) == 0 {
		fmt.Println("no displays")
		return
	}
	fmt.Println("displays:")
	for _, d := range r.Displays {
		fmt.Printf("  %-12s %-22s phase=%s hover=%s frame=%dx%d\n",
			d.Display.ID, d.State.String(), d.Phase, d.Hover,
			int(d.Frame.W), int(d.Frame.H))
	}
}

// winnersLine renders the per-anchor winners, empty if none.
func winnersLine(res *registry.Resolution) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, anchor := range registry.ValidAnchors() {
		w := res.ForAnchor(registry.Anchor(anchor))
		if w == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s(%s)", anchor, w.Producer, w.Request.Priority))
	}
	return strings.Join(parts, " ")
}

// waybarFromReport condenses the report into one Waybar entry.
func waybarFromReport(r *dbus.StatusReport) WaybarStatus {
	class := "idle"
	text := ""
	openCount := 0
	for _, d := range r.Displays {
		if d.Open {
			openCount++
		}
	}

	switch {
	case r.Locked:
		class = "locked"
	case openCount > 0:
		class = "open"
		text = fmt.Sprintf("%d", openCount)
	case len(r.Displays) > 0 && r.Displays[0].State.Kind == state.KindClosed && r.Displays[0].State.Content != state.ContentIdle:
		class = "active"
		text = string(r.Displays[0].State.Content)
	}

	var lines []string
	for _, d := range r.Displays {
		lines = append(lines, fmt.Sprintf("%s: %s", d.Display.ID, d.State.String()))
	}
	if len(r.Inhibitors) > 0 {
		lines = append(lines, "inhibitors: "+strings.Join(r.Inhibitors, ", "))
	}

	return WaybarStatus{
		Text:    text,
		Alt:     class,
		Tooltip: strings.Join(lines, "\n"),
		Class:   class,
	}
}

// outputWaybar writes the status as single-line JSON.
func outputWaybar(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func inhibitorList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
