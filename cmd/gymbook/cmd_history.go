package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gymbook/internal/config"
	"gymbook/internal/history"
	"gymbook/internal/schedule"
)

var historyLimit int

// historyCmd lists recent booking attempts
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent booking attempts",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of attempts to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	attempts, err := store.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No booking attempts recorded.")
		return nil
	}

	fmt.Fprintln(out, "Booking Attempts")
	fmt.Fprintln(out, strings.Repeat("─", 70))
	for _, a := range attempts {
		status := "FAILED"
		if a.Success {
			status = "OK"
		}
		fmt.Fprintf(out, "  %s  %-6s  %s %s  %s  retries=%d\n",
			schedule.FormatBeijing(a.StartedAt), status,
			a.FacilityName, a.DateNumber, a.TimeSlot, a.Retries)
		if a.ErrorMessage != "" {
			fmt.Fprintf(out, "      %s\n", a.ErrorMessage)
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", 70))
	fmt.Fprintf(out, "Total: %d attempts\n", len(attempts))
	return nil
}
