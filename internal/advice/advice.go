// Package advice generates financial guidance from the user's recorded
// spending using a chat completion model. The advisor is strictly
// presentational: it reads the local store, never writes, and its failures
// surface as errors the caller can show or ignore.
package advice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/types"
)

const systemPrompt = `You are a helpful and knowledgeable financial advisor for a personal budget tracking app.

Provide practical, actionable advice on budgeting strategies, savings, emergency funds, debt management and expense analysis. Keep responses concise, encouraging and specific to the numbers the user shares. If asked about non-financial topics, politely redirect to financial advice.`

// ChatService defines the interface for making chat completion API calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// LedgerReader is the read-only slice of the local store the advisor uses
// to ground its advice in actual spending.
type LedgerReader interface {
	TotalAmount(ctx context.Context, ownerID string, kind types.RecordKind, filter store.Filter) (decimal.Decimal, error)
	SumByCategory(ctx context.Context, ownerID string, kind types.RecordKind, filter store.Filter) (map[string]decimal.Decimal, error)
}

// Advisor answers financial questions with the user's ledger as context.
type Advisor struct {
	chat   ChatService
	ledger LedgerReader
	model  openai.ChatModel
}

// New creates an Advisor talking to the OpenAI API.
func New(apiKey, model string, ledger LedgerReader) *Advisor {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Advisor{
		chat:   client.Chat.Completions,
		ledger: ledger,
		model:  openai.ChatModel(model),
	}
}

// Ask sends the user's question together with a summary of their recorded
// spending and returns the model's advice.
func (a *Advisor) Ask(ctx context.Context, ownerID, question string) (string, error) {
	summary, err := a.spendingSummary(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("advice context: %w", err)
	}

	resp, err := a.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(summary + "\n\nQuestion: " + question),
		}),
		Model: openai.F(a.model),
	})
	if err != nil {
		return "", fmt.Errorf("advice generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("advice generation failed: no choices returned")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("advice generation failed: empty response")
	}
	return answer, nil
}

// spendingSummary renders the owner's totals and per-category expense
// breakdown as prompt context.
func (a *Advisor) spendingSummary(ctx context.Context, ownerID string) (string, error) {
	expenses, err := a.ledger.TotalAmount(ctx, ownerID, types.KindExpense, store.Filter{})
	if err != nil {
		return "", err
	}
	income, err := a.ledger.TotalAmount(ctx, ownerID, types.KindIncome, store.Filter{})
	if err != nil {
		return "", err
	}
	byCategory, err := a.ledger.SumByCategory(ctx, ownerID, types.KindExpense, store.Filter{})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "My recorded totals: income %s, expenses %s.", income.StringFixed(2), expenses.StringFixed(2))
	if len(byCategory) > 0 {
		b.WriteString(" Expenses by category:")
		for _, category := range sortedKeys(byCategory) {
			fmt.Fprintf(&b, " %s %s;", category, byCategory[category].StringFixed(2))
		}
	}
	return b.String(), nil
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic prompt ordering
	sort.Strings(keys)
	return keys
}
