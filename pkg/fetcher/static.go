package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/recipescale/internal/logger"
)

// StaticFetcher uses Colly for static HTML fetching.
type StaticFetcher struct {
	config Config
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *StaticFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves page content using Colly. Non-2xx responses, transport
// errors and empty bodies are returned as *FetchError.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{URL: targetURL}

	if err := ctx.Err(); err != nil {
		return result, &FetchError{URL: targetURL, Err: err}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}

	// A fresh collector per request keeps visited-URL state from leaking.
	c := colly.NewCollector(
		colly.UserAgent(coalesce(opts.UserAgent, f.config.UserAgent)),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		for k, v := range opts.Headers {
			r.Headers.Set(k, v)
		}
	})

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.HTML = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	logger.Debug("static fetch", "url", targetURL, "timeout", timeout)

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}

	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(fetchErr, ctxErr) {
			fetchErr = fmt.Errorf("%w: %v", ctxErr, fetchErr)
		}
		return result, &FetchError{URL: targetURL, StatusCode: result.StatusCode, Err: fetchErr}
	}

	if err := checkStatus(targetURL, result.StatusCode); err != nil {
		return result, err
	}

	if strings.TrimSpace(result.HTML) == "" {
		return result, &FetchError{URL: targetURL, StatusCode: result.StatusCode, Err: ErrEmptyContent}
	}

	if err := parseContent(&result); err != nil {
		return result, &FetchError{URL: targetURL, StatusCode: result.StatusCode, Err: fmt.Errorf("failed to parse content: %w", err)}
	}

	logger.Debug("static fetch complete",
		"url", targetURL,
		"status", result.StatusCode,
		"title", result.Title,
		"html_size", len(result.HTML),
		"text_size", len(result.Text))

	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return ModeStatic
}
