package categorizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"till/internal/llm"

	"github.com/shopspring/decimal"
)

type fakeGenerator struct {
	response string
	err      error

	gotPrompt string
	gotOpts   llm.Options
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.gotPrompt = prompt
	f.gotOpts = opts
	return f.response, f.err
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		response string
		isIncome bool
		want     string
	}{
		{
			name:     "exact label",
			response: "Food & Dining",
			want:     "Food & Dining",
		},
		{
			name:     "close match by substring",
			response: "food and dining? Food & Dining fits best",
			want:     "Food & Dining",
		},
		{
			name:     "case insensitive",
			response: "transportation",
			want:     "Transportation",
		},
		{
			name:     "unknown expense label falls back",
			response: "Groceries",
			want:     "Other",
		},
		{
			name:     "unknown income label falls back",
			response: "Wages",
			isIncome: true,
			want:     "Income - Other",
		},
		{
			name:     "empty response falls back",
			response: "",
			want:     "Other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{response: tt.response}
			c := New(gen, time.Second)

			got, err := c.Categorize(context.Background(), "coffee", decimal.RequireFromString("5.00"), tt.isIncome)
			if err != nil {
				t.Fatalf("Categorize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorizeGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	c := New(gen, time.Second)

	if _, err := c.Categorize(context.Background(), "coffee", decimal.RequireFromString("5.00"), false); err == nil {
		t.Error("Categorize() expected error when generator fails, got nil")
	}
}

func TestCategorizePromptContents(t *testing.T) {
	gen := &fakeGenerator{response: "Income - Salary"}
	c := New(gen, time.Second)

	if _, err := c.Categorize(context.Background(), "monthly paycheck", decimal.RequireFromString("2500.00"), true); err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	for _, want := range []string{
		"monthly paycheck",
		"$2500.00",
		"Type: income",
		"Income - Freelance",
		"Return ONLY the category name",
	} {
		if !strings.Contains(gen.gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if gen.gotOpts.Temperature != 0.1 || gen.gotOpts.MaxTokens != 30 {
		t.Errorf("options = %+v, want temperature 0.1 max tokens 30", gen.gotOpts)
	}
}
