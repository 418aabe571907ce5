package extract

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// GeminiExtractor runs extraction against the Gemini API. The genai client
// reads GEMINI_API_KEY from the environment.
type GeminiExtractor struct {
	model       string
	temperature float64
	log         *log.Logger
}

func NewGeminiExtractor(model string, temperature float64, logger *log.Logger) *GeminiExtractor {
	return &GeminiExtractor{
		model:       model,
		temperature: temperature,
		log:         logger.WithComponent(log.ComponentExtract),
	}
}

func (e *GeminiExtractor) Extract(ctx context.Context, transcript string) (*core.ExpenseCandidate, string, error) {
	start := time.Now()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: create genai client: %v", ErrExtractionService, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildSystemPrompt() + "\n\n" + buildUserPrompt(transcript)},
			},
		},
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(e.temperature)),
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, cfg)
	if err != nil {
		e.log.ErrorContext(ctx, "extraction request failed",
			log.FieldError, err.Error(),
			log.FieldProvider, "gemini",
			log.FieldModel, e.model)
		return nil, "", fmt.Errorf("%w: generate content: %v", ErrExtractionService, err)
	}

	content := resp.Text()
	if content == "" {
		return nil, "", fmt.Errorf("%w: empty response from model", ErrExtractionService)
	}

	candidate, err := decodeCandidate(content)
	if err != nil {
		e.log.WarnContext(ctx, "model output failed to parse",
			log.FieldError, err.Error(),
			log.FieldModel, e.model,
			"output", truncate(content, 500))
		return nil, content, err
	}

	e.log.InfoContext(ctx, "extraction completed",
		log.FieldProvider, "gemini",
		log.FieldModel, e.model,
		"candidate_present", candidate != nil,
		log.FieldDuration, time.Since(start).Milliseconds())

	return candidate, content, nil
}
