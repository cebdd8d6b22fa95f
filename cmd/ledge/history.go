package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/journal"
)

var historyOpts struct {
	file    string
	since   string
	limit   int
	jsonOut bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded state transitions",
	Long: `Show display-state transitions recorded in the transition journal.

The journal is written by ledged when [debug] journal is enabled in
ledged.toml. This command reads the journal file directly, so it works
whether or not the daemon is running.

Examples:
  # Last 20 transitions
  ledge history --limit 20

  # Everything from the past week
  ledge history --since 1w

  # A specific journal file, as JSON
  ledge history --file /tmp/journal.jsonl --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOpts.file, "file", "",
		"Journal file to read (default from ledged.toml)")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only show transitions newer than this (e.g. 30m, 12h, 7d, 1w)")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
		"Only show the newest N transitions (0 = all)")
	historyCmd.Flags().BoolVar(&historyOpts.jsonOut, "json", false,
		"Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyOpts.file
	if path == "" {
		cfg, err := config.LoadDaemonConfig("")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.JournalPath()
	}

	records, err := journal.ReadAll(path)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if historyOpts.since != "" {
		age, err := parseSince(historyOpts.since)
		if err != nil {
			return err
		}
		if age > 0 {
			cutoff := time.Now().Add(-age)
			filtered := records[:0]
			for _, r := range records {
				if r.Time.After(cutoff) {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}
	}

	if historyOpts.limit > 0 && len(records) > historyOpts.limit {
		records = records[len(records)-historyOpts.limit:]
	}

	if historyOpts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No transitions recorded")
		return nil
	}

	for _, r := range records {
		from := r.From
		if from == "" {
			from = "-"
		}
		cause := r.Cause
		if cause == "" {
			cause = "-"
		}
		fmt.Printf("%-14s %-12s %-24s -> %-24s %s\n",
			humanize.Time(r.Time), r.Display, from, r.To, cause)
	}
	return nil
}

// parseSince parses a duration string, additionally accepting day and
// week suffixes (7d, 1w) on top of time.ParseDuration syntax.
func parseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
