package advice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/types"
)

// mockChatService implements ChatService for testing
type mockChatService struct {
	response *openai.ChatCompletion
	err      error

	callCount  int
	lastPrompt string
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++

	var b strings.Builder
	for _, msg := range params.Messages.Value {
		if user, ok := msg.(openai.ChatCompletionUserMessageParam); ok {
			for _, part := range user.Content.Value {
				if text, ok := part.(openai.ChatCompletionContentPartTextParam); ok {
					b.WriteString(text.Text.Value)
				}
			}
		}
	}
	m.lastPrompt = b.String()

	return m.response, m.err
}

func chatResponse(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

// fakeLedger returns fixed totals without a database.
type fakeLedger struct {
	expenses   decimal.Decimal
	income     decimal.Decimal
	byCategory map[string]decimal.Decimal
	err        error
}

func (f *fakeLedger) TotalAmount(_ context.Context, _ string, kind types.RecordKind, _ store.Filter) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	if kind == types.KindIncome {
		return f.income, nil
	}
	return f.expenses, nil
}

func (f *fakeLedger) SumByCategory(_ context.Context, _ string, _ types.RecordKind, _ store.Filter) (map[string]decimal.Decimal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCategory, nil
}

func newTestAdvisor(chat ChatService, ledger LedgerReader) *Advisor {
	return &Advisor{chat: chat, ledger: ledger, model: "gpt-4o-mini"}
}

func TestAsk_ReturnsAdvice(t *testing.T) {
	chat := &mockChatService{response: chatResponse("  Save 20% of your income.  ")}
	advisor := newTestAdvisor(chat, &fakeLedger{
		expenses: decimal.RequireFromString("300.00"),
		income:   decimal.RequireFromString("1200.00"),
	})

	answer, err := advisor.Ask(context.Background(), "u1", "How much should I save?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "Save 20% of your income." {
		t.Errorf("expected trimmed advice, got %q", answer)
	}
	if chat.callCount != 1 {
		t.Errorf("expected 1 API call, got %d", chat.callCount)
	}
}

func TestAsk_PromptCarriesLedgerContext(t *testing.T) {
	chat := &mockChatService{response: chatResponse("ok")}
	advisor := newTestAdvisor(chat, &fakeLedger{
		expenses: decimal.RequireFromString("80.50"),
		income:   decimal.RequireFromString("1000.00"),
		byCategory: map[string]decimal.Decimal{
			"food":      decimal.RequireFromString("50.00"),
			"transport": decimal.RequireFromString("30.50"),
		},
	})

	if _, err := advisor.Ask(context.Background(), "u1", "Where does my money go?"); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"income 1000.00", "expenses 80.50", "food 50.00", "transport 30.50", "Where does my money go?"} {
		if !strings.Contains(chat.lastPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, chat.lastPrompt)
		}
	}
}

func TestAsk_LedgerFailure(t *testing.T) {
	chat := &mockChatService{response: chatResponse("ok")}
	advisor := newTestAdvisor(chat, &fakeLedger{err: errors.New("database locked")})

	if _, err := advisor.Ask(context.Background(), "u1", "help"); err == nil {
		t.Fatal("expected error when the ledger cannot be read")
	}
	if chat.callCount != 0 {
		t.Error("no API call may happen without ledger context")
	}
}

func TestAsk_APIFailure(t *testing.T) {
	chat := &mockChatService{err: errors.New("rate limited")}
	advisor := newTestAdvisor(chat, &fakeLedger{})

	if _, err := advisor.Ask(context.Background(), "u1", "help"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAsk_EmptyResponse(t *testing.T) {
	cases := []struct {
		name     string
		response *openai.ChatCompletion
	}{
		{"no choices", &openai.ChatCompletion{}},
		{"blank content", chatResponse("   ")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			advisor := newTestAdvisor(&mockChatService{response: tc.response}, &fakeLedger{})
			if _, err := advisor.Ask(context.Background(), "u1", "help"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAsk_CancelledContext(t *testing.T) {
	chat := &mockChatService{response: chatResponse("ok")}
	advisor := newTestAdvisor(chat, &fakeLedger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := advisor.Ask(ctx, "u1", "help"); err == nil {
		t.Fatal("expected context error")
	}
}
