package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/types"
)

var (
	reportFrom     string
	reportTo       string
	reportCategory string
	reportSearch   string
	reportJSON     bool
)

var reportCmd = &cobra.Command{
	Use:   "report <expense|income>",
	Short: "Summarize recorded entries",
	Long:  "Show the total and per-category breakdown for one record kind, optionally restricted by date range (ISO dates), category or description search.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Start date (yyyy-mm-dd, inclusive)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "End date (yyyy-mm-dd, inclusive)")
	reportCmd.Flags().StringVar(&reportCategory, "category", "", "Only this category")
	reportCmd.Flags().StringVar(&reportSearch, "search", "", "Substring match on description and category")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output in JSON format")
}

func runReport(cmd *cobra.Command, args []string) error {
	kind := types.RecordKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown record kind %q: use expense or income", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	owner := a.ownerID()
	filter := store.Filter{
		StartDate: reportFrom,
		EndDate:   reportTo,
		Category:  reportCategory,
		Search:    reportSearch,
	}

	total, err := a.store.TotalAmount(ctx, owner, kind, filter)
	if err != nil {
		return err
	}
	byCategory, err := a.store.SumByCategory(ctx, owner, kind, filter)
	if err != nil {
		return err
	}

	if reportJSON {
		out := map[string]any{
			"kind":  kind,
			"total": total.StringFixed(2),
		}
		categories := map[string]string{}
		for category, sum := range byCategory {
			categories[category] = sum.StringFixed(2)
		}
		out["by_category"] = categories
		return printJSON(cmd.OutOrStdout(), out)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TOTAL\t%s\n", total.StringFixed(2))
	for _, category := range sortedCategories(byCategory) {
		fmt.Fprintf(w, "%s\t%s\n", category, byCategory[category].StringFixed(2))
	}
	return w.Flush()
}

func sortedCategories[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
