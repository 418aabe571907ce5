package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// OpenAIExtractor asks an OpenAI-compatible chat/completions endpoint for
// the expense candidate.
type OpenAIExtractor struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	log         *log.Logger
}

func NewOpenAIExtractor(apiKey, baseURL, model string, temperature float64, logger *log.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 45 * time.Second},
		log:         logger.WithComponent(log.ComponentExtract),
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, transcript string) (*core.ExpenseCandidate, string, error) {
	start := time.Now()

	body := map[string]any{
		"model":       e.model,
		"temperature": e.temperature,
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt()},
			{"role": "user", "content": buildUserPrompt(transcript)},
		},
	}

	raw, err := e.post(ctx, e.baseURL+"/chat/completions", body)
	if err != nil {
		e.log.ErrorContext(ctx, "extraction request failed",
			log.FieldError, err.Error(),
			log.FieldProvider, "openai",
			log.FieldModel, e.model)
		return nil, "", fmt.Errorf("%w: %v", ErrExtractionService, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, "", fmt.Errorf("%w: decode response: %v", ErrExtractionService, err)
	}
	if len(cc.Choices) == 0 {
		return nil, "", fmt.Errorf("%w: no choices in response", ErrExtractionService)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	candidate, err := decodeCandidate(content)
	if err != nil {
		e.log.WarnContext(ctx, "model output failed to parse",
			log.FieldError, err.Error(),
			log.FieldModel, e.model,
			"output", truncate(content, 500))
		return nil, content, err
	}

	e.log.InfoContext(ctx, "extraction completed",
		log.FieldProvider, "openai",
		log.FieldModel, e.model,
		"candidate_present", candidate != nil,
		log.FieldDuration, time.Since(start).Milliseconds())

	return candidate, content, nil
}

func (e *OpenAIExtractor) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
