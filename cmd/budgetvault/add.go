package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/types"
)

var (
	addAmount      string
	addCategory    string
	addDate        string
	addDescription string
	addStartTime   string
	addEndTime     string
	addPhotoURI    string
)

var addCmd = &cobra.Command{
	Use:   "add <expense|income>",
	Short: "Record an expense or income",
	Long:  "Record an entry in the local ledger. When signed in, the entry is also pushed to the remote ledger service; a failed push never fails the command.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addAmount, "amount", "", "Amount, e.g. 12.50 (required)")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Category, e.g. food (required)")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date as dd/mm/yyyy (default: today)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Free-form description")
	addCmd.Flags().StringVar(&addStartTime, "start", "", "Start time, e.g. 09:00")
	addCmd.Flags().StringVar(&addEndTime, "end", "", "End time, e.g. 10:30")
	addCmd.Flags().StringVar(&addPhotoURI, "photo", "", "Receipt photo URI")
	addCmd.MarkFlagRequired("amount")
	addCmd.MarkFlagRequired("category")
}

func runAdd(cmd *cobra.Command, args []string) error {
	kind := types.RecordKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown record kind %q: use expense or income", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	amount, err := decimal.NewFromString(addAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", addAmount, err)
	}

	date := addDate
	if date == "" {
		date = time.Now().Format(types.DisplayDateLayout)
	}

	record := types.Record{
		Kind:         kind,
		OwnerID:      a.ownerID(),
		OccurredDate: date,
		Amount:       amount,
		Category:     addCategory,
	}
	if cmd.Flags().Changed("description") {
		record.Description = types.StringPtr(addDescription)
	}
	if addStartTime != "" {
		record.StartTime = types.StringPtr(addStartTime)
	}
	if addEndTime != "" {
		record.EndTime = types.StringPtr(addEndTime)
	}
	if addPhotoURI != "" {
		record.PhotoURI = types.StringPtr(addPhotoURI)
	}

	if err := a.engine.Add(context.Background(), record); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s of %s in %s on %s\n",
		kind, amount.StringFixed(2), record.DisplayCategory(), date)
	return nil
}
