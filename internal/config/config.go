// Package config loads recipescale settings from flags, environment, an
// optional .recipescale.yaml file and .env files, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/pkg/assistant"
	"github.com/jmylchreest/recipescale/pkg/fetcher"
	"github.com/jmylchreest/recipescale/pkg/matcher"
	"github.com/jmylchreest/recipescale/pkg/pipeline"
)

// Config is the complete application configuration.
type Config struct {
	APIKey   string `mapstructure:"api_key"`
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=anthropic openai openrouter ollama"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`

	NumMeals       int    `mapstructure:"num_meals" validate:"gt=0"`
	SearchEnabled  bool   `mapstructure:"search_enabled"`
	MaxContentSize string `mapstructure:"max_content_size"`
	Cleaner        string `mapstructure:"cleaner" validate:"oneof=readability markdown text none"`
	Output         string `mapstructure:"output" validate:"required"`
	Format         string `mapstructure:"format" validate:"oneof=json jsonl yaml chat"`

	Fetch  FetchConfig  `mapstructure:"fetch"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Retail RetailConfig `mapstructure:"retail"`

	// MaxContentBytes is MaxContentSize parsed; 0 means unlimited.
	MaxContentBytes int `mapstructure:"-"`
}

// FetchConfig controls recipe page fetching.
type FetchConfig struct {
	Mode      string        `mapstructure:"mode" validate:"oneof=static dynamic"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LLMConfig controls model requests.
type LLMConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gt=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// RetailConfig controls product matching.
type RetailConfig struct {
	Mode          string        `mapstructure:"mode" validate:"oneof=api browser"`
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey        string        `mapstructure:"api_key"`
	RateInterval  time.Duration `mapstructure:"rate_interval" validate:"gte=0"`
	Concurrency   int           `mapstructure:"concurrency" validate:"gt=0"`
	MinConfidence float64       `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// FileName is the config file searched for in $HOME and the working directory.
const FileName = ".recipescale"

// EnvPrefix prefixes every environment variable, e.g. RECIPESCALE_FETCH_MODE.
const EnvPrefix = "RECIPESCALE"

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing .env files.
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "API_KEY")
	_ = v.BindEnv("num_meals", EnvPrefix+"_NUM_MEALS", "NUM_MEALS")
	_ = v.BindEnv("search_enabled", EnvPrefix+"_SEARCH_ENABLED", "SEARCH_ENABLED")
	_ = v.BindEnv("retail.api_key", EnvPrefix+"_RETAIL_API_KEY", "RETAIL_API_KEY")

	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	mdef := matcher.DefaultConfig()
	adef := assistant.DefaultConfig()

	v.SetDefault("api_key", "")
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("num_meals", 7)
	v.SetDefault("search_enabled", false)
	v.SetDefault("max_content_size", "100KB")
	v.SetDefault("cleaner", "readability")
	v.SetDefault("output", output.DefaultPath)
	v.SetDefault("format", string(output.FormatJSON))

	v.SetDefault("fetch.mode", fetcher.ModeStatic)
	v.SetDefault("fetch.timeout", fetcher.DefaultConfig().Timeout)
	v.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)

	v.SetDefault("llm.timeout", adef.Timeout)
	v.SetDefault("llm.max_tokens", adef.MaxTokens)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.temperature", adef.Temperature)

	v.SetDefault("retail.mode", "browser")
	v.SetDefault("retail.base_url", "")
	v.SetDefault("retail.api_key", "")
	v.SetDefault("retail.rate_interval", mdef.RateInterval)
	v.SetDefault("retail.concurrency", mdef.Concurrency)
	v.SetDefault("retail.min_confidence", mdef.MinConfidence)
	v.SetDefault("retail.timeout", mdef.Timeout)
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ReadFile reads path, or searches $HOME and the working directory for
// .recipescale.yaml when path is empty. A missing default file is not an
// error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.Cleaner = strings.ToLower(strings.TrimSpace(cfg.Cleaner))

	if err := validate.Struct(cfg); err != nil {
		return cfg, validationError(err)
	}
	if cfg.Output == output.DefaultPath {
		cfg.Output = output.PathFor(output.Format(cfg.Format))
	}
	if err := output.CheckPath(cfg.Output, output.Format(cfg.Format)); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.SearchEnabled && cfg.Retail.Mode == "api" && cfg.Retail.BaseURL == "" {
		return cfg, errors.New("invalid config: retail.base_url is required when retail.mode is api")
	}

	size, err := ParseSize(cfg.MaxContentSize)
	if err != nil {
		return cfg, fmt.Errorf("invalid config: max_content_size: %w", err)
	}
	cfg.MaxContentBytes = size

	return cfg, nil
}

// ParseSize parses a human-readable byte size ("100KB", "1MB"). Empty and
// "0" mean unlimited.
func ParseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "gt", "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Pipeline converts the configuration into pipeline settings.
func (c Config) Pipeline() pipeline.Config {
	pc := pipeline.DefaultConfig()

	pc.Provider = c.Provider
	pc.Model = c.Model
	pc.APIKey = c.APIKey
	pc.BaseURL = c.BaseURL
	pc.MaxRetries = c.LLM.MaxRetries
	pc.Assistant = assistant.Config{
		MaxTokens:      c.LLM.MaxTokens,
		Temperature:    c.LLM.Temperature,
		MaxContentSize: c.MaxContentBytes,
		Timeout:        c.LLM.Timeout,
	}

	pc.FetchMode = c.Fetch.Mode
	pc.FetchTimeout = c.Fetch.Timeout
	if c.Fetch.UserAgent != "" {
		pc.UserAgent = c.Fetch.UserAgent
	}
	pc.Cleaner = c.Cleaner

	pc.SearchEnabled = c.SearchEnabled
	pc.RetailMode = c.Retail.Mode
	pc.RetailBaseURL = c.Retail.BaseURL
	pc.RetailAPIKey = c.Retail.APIKey
	pc.Match = matcher.Config{
		MinConfidence: c.Retail.MinConfidence,
		RateInterval:  c.Retail.RateInterval,
		Concurrency:   c.Retail.Concurrency,
		Timeout:       c.Retail.Timeout,
	}
	if c.Retail.RateInterval == 0 {
		pc.Match.RateInterval = -1
	}

	pc.Format = output.Format(c.Format)
	return pc
}
