package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voicebudget/internal/core"
)

// buildCandidateJSONSchema returns the schema (draft 2020-12 subset) the
// model output must satisfy. Category is deliberately a free string here;
// enum enforcement belongs to the domain validator so a bad category is
// reported as such instead of as a parse failure.
func buildCandidateJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"amount":      map[string]any{"type": "number"},
			"category":    map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"date":        map[string]any{"type": "string"},
		},
		"required": []string{"amount", "category", "description"},
	}
}

var candidateSchema = mustCompileSchema(buildCandidateJSONSchema())

func mustCompileSchema(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("candidate.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	schema, err := compiler.Compile("candidate.json")
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// decodeCandidate parses raw model output into a candidate.
//
//   - "null", "", or JSON null  -> (nil, nil): the model saw no expense
//   - valid candidate JSON      -> (&candidate, nil)
//   - anything else             -> (nil, ErrExtractionParse)
//
// Markdown fences are stripped first; models add them no matter how firmly
// the prompt forbids it.
func decodeCandidate(raw string) (*core.ExpenseCandidate, error) {
	s := cleanModelJSON(raw)
	if s == "" || s == "null" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}
	if v == nil {
		return nil, nil
	}
	if err := candidateSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	var wire struct {
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
	}
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	candidate := &core.ExpenseCandidate{
		Amount:      core.Money{Cents: core.CentsFromFloat(wire.Amount)},
		Category:    core.Category(strings.ToLower(strings.TrimSpace(wire.Category))),
		Description: strings.TrimSpace(wire.Description),
	}
	// A garbled date is not worth failing the whole extraction over; the
	// validator defaults a zero date to now. Models answer either a full
	// timestamp or a bare date depending on mood.
	if wire.Date != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if d, err := time.Parse(layout, wire.Date); err == nil {
				candidate.Date = d
				break
			}
		}
	}
	return candidate, nil
}

// cleanModelJSON strips markdown fences and surrounding junk from model
// output, keeping only the first top-level JSON value when possible.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// If there's still prose around the JSON object, keep only from the
	// first '{' to the last '}'. Never do this for null responses.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
