package domain

import (
	"context"
)

// ChatMessage is a single turn in a conversational flow.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// ModelRequest is a rendered prompt plus the JSON schema the response must follow.
type ModelRequest struct {
	// Name identifies the flow, used for logging and cache keys.
	Name           string
	SystemPrompt   string
	Prompt         string
	History        []ChatMessage
	ResponseSchema map[string]any
	Temperature    float64
}

// ModelResponse is the raw text returned by the hosted model.
type ModelResponse struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Cached       bool   `json:"cached"`
}

// ModelClient performs one text-completion call against a hosted language model.
type ModelClient interface {
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
	Name() string
}

// RecommendationRepository persists audit records of routed recommendations.
type RecommendationRepository interface {
	SaveRecommendation(ctx context.Context, record *RecommendationRecord) error
	GetRecommendation(ctx context.Context, id string) (*RecommendationRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetLLMConfig() *LLMConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
