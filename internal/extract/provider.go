package extract

import (
	"fmt"

	"voicebudget/internal/config"
	"voicebudget/internal/log"
)

// NewFromConfig picks the extraction provider from configuration.
func NewFromConfig(cfg *config.Config, logger *log.Logger) (Extractor, error) {
	switch cfg.ExtractorProvider {
	case "openai":
		return NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.ExtractTemperature, logger), nil
	case "gemini":
		return NewGeminiExtractor(cfg.GeminiModel, cfg.ExtractTemperature, logger), nil
	}
	return nil, fmt.Errorf("unknown extractor provider %q", cfg.ExtractorProvider)
}
