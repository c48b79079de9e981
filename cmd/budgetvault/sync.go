package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull new records from the remote ledger",
	Long:  "Fetch records other devices pushed since the last successful sync. Pulls are rate limited per record kind; a run inside the cooldown window is a quiet no-op.",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	owner := a.ownerID()

	total := 0
	for _, kind := range []types.RecordKind{types.KindExpense, types.KindIncome} {
		pulled, err := a.engine.PullIncremental(ctx, owner, kind)
		if err != nil {
			return fmt.Errorf("sync %s: %w", kind, err)
		}
		total += len(pulled)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new\n", kind, len(pulled))
	}

	if total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Up to date")
	}
	return nil
}
