// Package fetcher retrieves recipe and retailer pages. A static fetcher covers
// plain HTML; a headless-browser fetcher covers JavaScript-rendered pages.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls a single fetch.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content represents fetched page data.
type Content struct {
	URL        string
	HTML       string
	Text       string // Visible text with page chrome stripped
	Title      string
	StatusCode int
}

// Config holds fetcher construction settings.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// DefaultUserAgent is a desktop browser agent; many recipe sites reject
// obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Modes accepted by New.
const (
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

// New returns a fetcher for mode ("static" or "dynamic").
func New(mode string, cfg Config) (Fetcher, error) {
	switch mode {
	case "", ModeStatic:
		return NewStatic(cfg), nil
	case ModeDynamic:
		return NewDynamic(cfg)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %q (want static or dynamic)", mode)
	}
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrAntiBot).
var (
	// ErrAntiBot indicates the site's anti-bot protection blocked the request.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrChallengeTimeout indicates the browser timed out, usually on a challenge page.
	ErrChallengeTimeout = errors.New("challenge timeout")
	// ErrEmptyContent indicates the page had no usable body.
	ErrEmptyContent = errors.New("empty page content")
)

// FetchError reports a failed fetch. StatusCode is zero for transport errors.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
