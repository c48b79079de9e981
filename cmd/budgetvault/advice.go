package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var errMissingAdviceKey = errors.New("OPENAI_API_KEY is required for advice")

var adviceCmd = &cobra.Command{
	Use:   "advice <question...>",
	Short: "Ask the financial advisor",
	Long:  "Ask a budgeting question. The advisor sees your recorded totals and per-category spending, never individual entries.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdvice,
}

func runAdvice(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	advisor, err := a.advisor()
	if err != nil {
		return err
	}

	answer, err := advisor.Ask(context.Background(), a.ownerID(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
