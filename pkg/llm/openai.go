package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	ollamaBaseURL     = "http://localhost:11434/v1"
)

// OpenAIProvider implements Provider for the OpenAI chat completions API and
// compatible endpoints (OpenRouter, Ollama).
type OpenAIProvider struct {
	client openai.Client
	name   string
	model  string
	cfg    ProviderConfig
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4o)
	}
	return newOpenAICompatible("openai", cfg), nil
}

// NewOpenRouterProvider creates a provider for OpenRouter's OpenAI-compatible API.
func NewOpenRouterProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: %w", ErrMissingAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels["openrouter"]
	}
	return newOpenAICompatible("openrouter", cfg), nil
}

// NewOllamaProvider creates a provider for a local Ollama server. No API key
// is needed.
func NewOllamaProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ollamaBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels["ollama"]
	}
	return newOpenAICompatible("ollama", cfg), nil
}

func newOpenAICompatible(name string, cfg ProviderConfig) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		name:   name,
		model:  cfg.Model,
		cfg:    cfg,
	}
}

// Execute sends a completion request.
func (p *OpenAIProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
	}

	if req.JSONSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName(req),
					Schema: req.JSONSchema,
					Strict: openai.Bool(false),
				},
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

var _ Provider = (*OpenAIProvider)(nil)
