package extract

import (
	"errors"
	"strings"
	"testing"
	"time"

	"voicebudget/internal/core"
)

func TestDecodeCandidate(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 12.50, "category": "food", "description": "lunch"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c == nil {
			t.Fatal("expected candidate")
		}
		if c.Amount.Cents != 1250 {
			t.Errorf("expected 1250 cents, got %d", c.Amount.Cents)
		}
		if c.Category != core.CategoryFood {
			t.Errorf("expected food, got %s", c.Category)
		}
		if c.Description != "lunch" {
			t.Errorf("expected lunch, got %q", c.Description)
		}
		if !c.Date.IsZero() {
			t.Errorf("expected zero date, got %v", c.Date)
		}
	})

	t.Run("with date", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 50, "category": "transportation", "description": "gas", "date": "2026-08-30"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
		if !c.Date.Equal(want) {
			t.Errorf("expected %v, got %v", want, c.Date)
		}
	})

	t.Run("with RFC3339 timestamp", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 50, "category": "transportation", "description": "gas", "date": "2026-08-30T12:00:00Z"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		if !c.Date.Equal(want) {
			t.Errorf("expected %v, got %v", want, c.Date)
		}
	})

	t.Run("garbled date is dropped not fatal", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 5, "category": "food", "description": "coffee", "date": "yesterday-ish"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !c.Date.IsZero() {
			t.Errorf("expected zero date, got %v", c.Date)
		}
	})

	t.Run("null means no expense", func(t *testing.T) {
		for _, raw := range []string{"null", "  null  ", "", "```json\nnull\n```"} {
			c, err := decodeCandidate(raw)
			if err != nil {
				t.Fatalf("raw %q: unexpected error: %v", raw, err)
			}
			if c != nil {
				t.Fatalf("raw %q: expected nil candidate", raw)
			}
		}
	})

	t.Run("fenced object", func(t *testing.T) {
		raw := "```json\n{\"amount\": 3.20, \"category\": \"food\", \"description\": \"espresso\"}\n```"
		c, err := decodeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Amount.Cents != 320 {
			t.Errorf("expected 320 cents, got %d", c.Amount.Cents)
		}
	})

	t.Run("object buried in prose", func(t *testing.T) {
		raw := `Here is the extracted expense: {"amount": 9.99, "category": "entertainment", "description": "movie rental"} Hope that helps!`
		c, err := decodeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Category != core.CategoryEntertainment {
			t.Errorf("expected entertainment, got %s", c.Category)
		}
	})

	t.Run("out-of-enum category passes through", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 10, "category": "groceries", "description": "weekly shop"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Category != core.Category("groceries") {
			t.Errorf("expected groceries to pass through, got %s", c.Category)
		}
		if c.Category.Valid() {
			t.Error("groceries should not be a valid category")
		}
	})

	t.Run("category normalized to lower case", func(t *testing.T) {
		c, err := decodeCandidate(`{"amount": 10, "category": " Food ", "description": "snacks"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Category != core.CategoryFood {
			t.Errorf("expected food, got %q", c.Category)
		}
	})

	t.Run("parse failures", func(t *testing.T) {
		cases := []struct {
			name string
			raw  string
		}{
			{"prose only", "I could not find an expense in that transcript."},
			{"truncated json", `{"amount": 12.5, "category": "foo`},
			{"amount as string", `{"amount": "12.50", "category": "food", "description": "lunch"}`},
			{"missing required field", `{"amount": 12.5, "description": "lunch"}`},
			{"array instead of object", `[{"amount": 12.5}]`},
			{"extra fields", `{"amount": 12.5, "category": "food", "description": "lunch", "merchant": "cafe"}`},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := decodeCandidate(tc.raw)
				if !errors.Is(err, ErrExtractionParse) {
					t.Fatalf("expected ErrExtractionParse, got %v", err)
				}
			})
		}
	})
}

func TestCleanModelJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fence with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"null stays null", "null", "null"},
		{"prose around object", `sure: {"a":1} done`, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanModelJSON(tc.raw); got != tc.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestBuildSystemPromptListsCategories(t *testing.T) {
	prompt := buildSystemPrompt()
	for _, name := range core.CategoryNames() {
		if !strings.Contains(prompt, name) {
			t.Errorf("prompt missing category %q", name)
		}
	}
}
