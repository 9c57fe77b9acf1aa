// Package pipeline runs the recipe stages end to end: fetch the page, extract
// the recipe, scale it, build the shopping list, optionally match retailer
// products, and write the result.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/pkg/assistant"
	"github.com/jmylchreest/recipescale/pkg/cleaner"
	"github.com/jmylchreest/recipescale/pkg/fetcher"
	"github.com/jmylchreest/recipescale/pkg/llm"
	"github.com/jmylchreest/recipescale/pkg/matcher"
	"github.com/jmylchreest/recipescale/pkg/retail"
)

// Config holds all pipeline configuration.
type Config struct {
	// LLM settings. An empty Provider is detected from the environment.
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	MaxRetries int
	Assistant  assistant.Config

	// Fetch settings
	FetchMode    string
	FetchTimeout time.Duration
	UserAgent    string
	Cleaner      string

	// Product matching
	SearchEnabled bool
	RetailMode    string
	RetailBaseURL string
	RetailAPIKey  string
	Match         matcher.Config

	// Output
	Format output.Format

	// MatchOnly skips LLM setup; only Rematch can be used.
	MatchOnly bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   llm.DefaultProviderConfig().MaxRetries,
		Assistant:    assistant.DefaultConfig(),
		FetchMode:    fetcher.ModeStatic,
		FetchTimeout: fetcher.DefaultConfig().Timeout,
		UserAgent:    fetcher.DefaultUserAgent,
		Cleaner:      cleaner.NameReadability,
		RetailMode:   retail.ModeBrowser,
		Match:        matcher.DefaultConfig(),
		Format:       output.FormatJSON,
	}
}

// Option injects a component in place of the one Config would build.
type Option func(*Pipeline)

// WithFetcher sets the recipe page fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithCleaner sets the HTML cleaner used for every page.
func WithCleaner(c cleaner.Cleaner) Option {
	return func(p *Pipeline) { p.cleaner = c }
}

// WithProvider sets the LLM provider.
func WithProvider(provider llm.Provider) Option {
	return func(p *Pipeline) { p.provider = provider }
}

// WithSearcher sets the retailer searcher.
func WithSearcher(s retail.Searcher) Option {
	return func(p *Pipeline) { p.searcher = s }
}

// WithObserver registers a stage transition callback.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// Pipeline wires the stages together. It is safe to Run sequentially many
// times; Close releases browsers it started.
type Pipeline struct {
	cfg      Config
	fetcher  fetcher.Fetcher
	cleaner  cleaner.Cleaner
	provider llm.Provider
	searcher retail.Searcher
	observer Observer

	extractor *assistant.Extractor
	scaler    *assistant.Scaler
	builder   *assistant.ShoppingListBuilder
	matcher   *matcher.Matcher

	closers []func() error
}

// New builds a pipeline from cfg, using injected components where given.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		f, err := fetcher.New(cfg.FetchMode, fetcher.Config{UserAgent: cfg.UserAgent, Timeout: cfg.FetchTimeout})
		if err != nil {
			return nil, err
		}
		p.fetcher = f
		p.closers = append(p.closers, f.Close)
	}

	if !cfg.MatchOnly {
		if p.provider == nil {
			provider, err := newProvider(cfg)
			if err != nil {
				p.Close()
				return nil, err
			}
			p.provider = provider
		}
		p.extractor = assistant.NewExtractor(p.provider, cfg.Assistant)
		p.scaler = assistant.NewScaler(p.provider, cfg.Assistant)
		p.builder = assistant.NewShoppingListBuilder(p.provider, cfg.Assistant)
	}

	if cfg.SearchEnabled || cfg.MatchOnly {
		if p.searcher == nil {
			s, err := p.newSearcher()
			if err != nil {
				p.Close()
				return nil, err
			}
			p.searcher = s
		}
		p.matcher = matcher.New(p.searcher, cfg.Match)
	}

	return p, nil
}

func newProvider(cfg Config) (llm.Provider, error) {
	name, key := cfg.Provider, cfg.APIKey
	if name == "" {
		var detected string
		name, detected = llm.DetectProvider()
		if key == "" {
			key = detected
		}
		logger.Debug("auto-detected provider", "provider", name)
	}
	if key == "" {
		key = llm.APIKeyFromEnv(name)
	}

	pcfg := llm.DefaultProviderConfig()
	pcfg.APIKey = key
	pcfg.BaseURL = cfg.BaseURL
	pcfg.Model = cfg.Model
	if cfg.MaxRetries > 0 {
		pcfg.MaxRetries = cfg.MaxRetries
	}
	if cfg.Assistant.Timeout > 0 {
		pcfg.Timeout = cfg.Assistant.Timeout
	}

	provider, err := llm.NewProvider(name, pcfg)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w for %s (set --api-key or the provider's API key variable)", err, name)
		}
		return nil, err
	}
	return provider, nil
}

func (p *Pipeline) newSearcher() (retail.Searcher, error) {
	switch p.cfg.RetailMode {
	case retail.ModeAPI:
		if p.cfg.RetailBaseURL == "" {
			return nil, errors.New("retail api mode requires a base URL")
		}
		return retail.NewAPIClient(p.cfg.RetailBaseURL, p.cfg.RetailAPIKey, p.cfg.Match.Timeout), nil
	case retail.ModeBrowser, "":
		// The storefront renders results client-side.
		f, err := fetcher.NewDynamic(fetcher.Config{UserAgent: p.cfg.UserAgent, Timeout: p.cfg.Match.Timeout})
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, f.Close)
		return retail.NewBrowserSearcher(f, retail.WithBaseURL(p.cfg.RetailBaseURL), retail.WithSettleTime(2*time.Second)), nil
	default:
		return nil, fmt.Errorf("unknown retail mode: %q (want api or browser)", p.cfg.RetailMode)
	}
}

// Provider returns the LLM provider in use, or nil for a match-only pipeline.
func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// Close releases resources created by New. Injected components are left to
// their owners.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
