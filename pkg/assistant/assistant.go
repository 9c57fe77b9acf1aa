// Package assistant implements the LLM-backed pipeline stages: recipe
// extraction, serving scaling and shopping list building. Each stage sends one
// structured request through an llm.Provider and validates the decoded reply.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/llm"
	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/schema"
)

// Config holds settings shared by all stages.
type Config struct {
	// MaxTokens caps the response length (default: 4096).
	MaxTokens int

	// Temperature for LLM responses (default: 0.1).
	Temperature float64

	// MaxContentSize limits recipe text in bytes (default: 100000, 0 = unlimited).
	MaxContentSize int

	// Timeout bounds a single LLM call (default: 120s, 0 = none).
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      4096,
		Temperature:    0.1,
		MaxContentSize: 100_000,
		Timeout:        120 * time.Second,
	}
}

// client is the request/response plumbing shared by the stages.
type client struct {
	provider llm.Provider
	cfg      Config
}

func newClient(p llm.Provider, cfg Config) client {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = def.Temperature
	}
	return client{provider: p, cfg: cfg}
}

// complete sends one request constrained by s and decodes the reply into out.
// The raw reply is returned for error reporting.
func (c client) complete(ctx context.Context, stage string, s schema.Schema, prompt string, out any) (recipe.TokenUsage, string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: prompt + "\n\n" + s.ToPromptDescription() + "\nRespond with valid JSON only, no markdown formatting."},
	}

	logger.Debug("llm request",
		"stage", stage,
		"provider", c.provider.Name(),
		"model", c.provider.Model(),
		"prompt_size", len(prompt))

	resp, err := c.provider.Execute(ctx, llm.Request{
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		JSONSchema:  s.ToJSONSchema(),
		SchemaName:  s.Name,
	})
	if err != nil {
		return recipe.TokenUsage{}, "", fmt.Errorf("LLM completion failed: %w", err)
	}

	usage := recipe.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}

	logger.Debug("llm response",
		"stage", stage,
		"response_size", len(resp.Content),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"finish_reason", resp.FinishReason,
		"duration", resp.Duration)

	if err := s.Decode([]byte(ExtractJSON(resp.Content)), out); err != nil {
		if resp.FinishReason == "max_tokens" || resp.FinishReason == "length" {
			err = fmt.Errorf("%w (response truncated at max_tokens=%d)", err, c.cfg.MaxTokens)
		}
		return usage, resp.Content, err
	}
	return usage, resp.Content, nil
}

// StripMarkdownCodeBlock removes markdown code block wrappers from JSON responses.
// Some models wrap their JSON output in ```json ... ``` blocks.
func StripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, whatever language tag it carries.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the JSON object in a model reply, tolerating code
// fences and leading or trailing prose.
func ExtractJSON(s string) string {
	s = StripMarkdownCodeBlock(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// TruncateContent limits content to maxLen bytes without splitting a UTF-8
// sequence. maxLen of 0 means no limit.
func TruncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "\n\n[Content truncated due to length...]"
}

// truncateForError shortens a raw reply for error messages.
func truncateForError(s string) string {
	if len(s) <= 200 {
		return s
	}
	return TruncateContent(s, 200)
}
