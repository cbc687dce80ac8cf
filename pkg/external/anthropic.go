package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// AnthropicConfig configures the Anthropic Messages client
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	BaseURL   string
}

// AnthropicClient calls the Anthropic Messages API. Structured output is requested by
// embedding the response schema in the system prompt.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *logrus.Logger
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(config AnthropicConfig, logger *logrus.Logger) *AnthropicClient {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithRequestTimeout(config.Timeout),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     config.Model,
		maxTokens: int64(config.MaxTokens),
		logger:    logger,
	}
}

// Name identifies the provider and model
func (a *AnthropicClient) Name() string {
	return "anthropic/" + a.model
}

// Generate sends one Messages call and returns the first text block.
func (a *AnthropicClient) Generate(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	system, err := anthropicSystemPrompt(req)
	if err != nil {
		return nil, err
	}

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == "model" || m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	start := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			a.logger.WithFields(logrus.Fields{
				"flow":        req.Name,
				"model":       a.model,
				"tokens_in":   message.Usage.InputTokens,
				"tokens_out":  message.Usage.OutputTokens,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("Anthropic response received")

			return &domain.ModelResponse{
				Text:         block.Text,
				Model:        a.model,
				Provider:     "anthropic",
				InputTokens:  message.Usage.InputTokens,
				OutputTokens: message.Usage.OutputTokens,
			}, nil
		}
	}
	return nil, domain.ErrEmptyModelOutput
}

func anthropicSystemPrompt(req *domain.ModelRequest) (string, error) {
	if req.ResponseSchema == nil {
		return req.SystemPrompt, nil
	}
	schema, err := json.MarshalIndent(req.ResponseSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling response schema: %w", err)
	}

	var b strings.Builder
	if req.SystemPrompt != "" {
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Balas hanya dengan satu objek JSON yang valid sesuai skema berikut, tanpa teks lain:\n")
	b.Write(schema)
	return b.String(), nil
}
