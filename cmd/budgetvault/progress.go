package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var progressJSON bool

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show experience, level and badges",
	RunE:  runProgress,
}

func init() {
	progressCmd.Flags().BoolVar(&progressJSON, "json", false, "Output in JSON format")
}

func runProgress(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.tracker.Summarize(context.Background(), a.ownerID())
	if err != nil {
		return err
	}

	if progressJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"xp":            summary.XP,
			"level":         summary.Level,
			"next_level_at": summary.NextLevelAt,
			"at_cap":        summary.AtCap,
			"badges":        summary.Badges,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Level %d (%d XP)\n", summary.Level, summary.XP)
	if summary.AtCap {
		fmt.Fprintln(out, "Maximum level reached")
	} else {
		fmt.Fprintf(out, "Next level at %d XP\n", summary.NextLevelAt)
	}
	if len(summary.Badges) > 0 {
		fmt.Fprintf(out, "Badges: %s\n", strings.Join(summary.Badges, ", "))
	}
	return nil
}
