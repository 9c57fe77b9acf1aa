package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"anthropic":  "claude-sonnet-4-20250514",
	"openai":     "gpt-4o",
	"openrouter": "anthropic/claude-sonnet-4",
	"ollama":     "llama3.2",
}

var registry = map[string]ProviderFactory{}

func init() {
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("openrouter", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the registered provider names, sorted.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// providerEnvKeys lists provider API key variables in detection priority.
var providerEnvKeys = []struct {
	provider string
	env      string
}{
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

// DetectProvider picks a provider from the API keys present in the environment.
// Priority: ANTHROPIC_API_KEY > OPENAI_API_KEY > OPENROUTER_API_KEY > ollama.
func DetectProvider() (provider string, apiKey string) {
	for _, k := range providerEnvKeys {
		if key := os.Getenv(k.env); key != "" {
			return k.provider, key
		}
	}
	return "ollama", ""
}

// APIKeyFromEnv returns the provider-specific key variable, if set.
func APIKeyFromEnv(provider string) string {
	for _, k := range providerEnvKeys {
		if k.provider == provider {
			return os.Getenv(k.env)
		}
	}
	return ""
}
