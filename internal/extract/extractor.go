package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voicebudget/internal/core"
)

var (
	// ErrExtractionService wraps transport and provider failures. The
	// pipeline treats it as fatal.
	ErrExtractionService = errors.New("extraction service failed")

	// ErrExtractionParse means the model answered but not with usable JSON.
	// The pipeline downgrades it to a rejection so the user keeps the
	// transcript.
	ErrExtractionParse = errors.New("extraction output not parseable")
)

// Extractor turns a transcript into an expense candidate. A nil candidate
// with a nil error means the model decided the transcript contains no
// expense; that is a normal outcome, not a failure. The raw model output
// is returned for audit regardless of the outcome.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*core.ExpenseCandidate, string, error)
}

// buildSystemPrompt pins the model to the JSON contract. The category enum
// is embedded in the prompt, but the decoder does not enforce it: an
// out-of-enum category flows through so the validator can name the reject.
func buildSystemPrompt() string {
	parts := []string{
		"You are an expense extraction assistant for a personal finance app.",
		"The user message is a voice transcript. Extract the single expense it describes.",
		"Return ONLY JSON, no prose, no code fences.",
		`The JSON object has these fields: "amount" (number, the amount spent), "category" (string), "description" (string, a short label for the purchase), "date" (string, ISO format YYYY-MM-DD, omit if the transcript does not say when).`,
		"Categories: " + strings.Join(core.CategoryNames(), ", ") + ".",
		"If the transcript does not describe an expense, return exactly: null",
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(transcript string) string {
	return fmt.Sprintf("Transcript:\n%s", transcript)
}
