package external

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// Provider names accepted in configuration.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// NewModelClient builds the configured provider client wrapped with the resilience
// layer. cache may be nil.
func NewModelClient(config domain.LLMConfig, cache ResponseCache, cacheTTL time.Duration, logger *logrus.Logger) (*ResilientModelClient, error) {
	var inner domain.ModelClient

	switch strings.ToLower(config.Provider) {
	case "", ProviderGemini:
		inner = NewGeminiClient(GeminiConfig{
			BaseURL:     config.GeminiBaseURL,
			APIKey:      config.GeminiAPIKey,
			Model:       config.Model,
			Timeout:     config.Timeout,
			Temperature: config.Temperature,
			MaxTokens:   config.MaxTokens,
		}, logger)
	case ProviderAnthropic:
		inner = NewAnthropicClient(AnthropicConfig{
			APIKey:    config.AnthropicAPIKey,
			Model:     config.AnthropicModel,
			MaxTokens: config.MaxTokens,
			Timeout:   config.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", config.Provider)
	}

	return NewResilientModelClient(inner, cache, ResilientConfig{
		Breaker:   DefaultCircuitBreakerConfig(),
		RateLimit: config.RateLimit,
		RateBurst: config.RateBurst,
		CacheTTL:  cacheTTL,
	}, logger), nil
}

// DecodeJSON unmarshals model output into v, tolerating a surrounding markdown code
// fence and leading prose before the first brace.
func DecodeJSON(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if i := strings.IndexAny(cleaned, "{["); i > 0 {
		cleaned = cleaned[i:]
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parsing model response: %w", err)
	}
	return nil
}
