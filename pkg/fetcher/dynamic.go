package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/recipescale/internal/logger"
)

// DynamicFetcher uses chromedp for JavaScript-rendered pages.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// Common Chrome/Chromium binary names across different systems.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/snap/bin/chromium",
}

// FindChromePath searches PATH and common install locations for a
// Chrome/Chromium binary. Returns "" if none is found.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	return ""
}

// NewDynamic creates a dynamic fetcher. The browser starts lazily on the
// first Fetch.
func NewDynamic(cfg Config) (*DynamicFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)

	if chromePath := FindChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	} else {
		logger.Warn("no Chrome binary found - dynamic fetch mode may not work")
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancel,
	}, nil
}

// Fetch retrieves page content using a headless browser.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{URL: targetURL}

	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return result, &FetchError{URL: targetURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	// Tie the browser tab to the caller's context.
	stop := context.AfterFunc(ctx, cancelBrowser)
	defer stop()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var status documentStatus
	chromedp.ListenTarget(browserCtx, status.observe)

	var html, title string
	actions := []chromedp.Action{network.Enable()}

	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	actions = append(actions, chromedp.Navigate(targetURL))

	// WaitVisible can poll forever on some pages; WaitReady does not.
	actions = append(actions, chromedp.WaitReady(coalesce(opts.WaitForSelector, "body")))

	if opts.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(opts.WaitDuration))
	}

	actions = append(actions,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	logger.Debug("dynamic fetch", "url", targetURL, "actions", len(actions), "timeout", timeout)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, &FetchError{URL: targetURL, Err: ctxErr}
		}
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
			logger.Warn("browser timeout - possible anti-bot protection", "url", targetURL)
			return result, &FetchError{URL: targetURL, Err: fmt.Errorf("%w: %v", ErrChallengeTimeout, err)}
		}
		return result, &FetchError{URL: targetURL, Err: fmt.Errorf("browser automation failed: %w", err)}
	}

	result.HTML = html
	result.Title = title
	result.StatusCode = status.code()

	if challenge := DetectChallengePage(title, html); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return result, &FetchError{URL: targetURL, StatusCode: result.StatusCode, Err: fmt.Errorf("%w: %s", ErrAntiBot, challenge)}
	}
	if err := checkStatus(targetURL, result.StatusCode); err != nil {
		return result, err
	}

	if err := parseContent(&result); err != nil {
		return result, &FetchError{URL: targetURL, Err: fmt.Errorf("failed to parse content: %w", err)}
	}
	if result.Text == "" {
		return result, &FetchError{URL: targetURL, StatusCode: result.StatusCode, Err: ErrEmptyContent}
	}

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"status", result.StatusCode,
		"title", title,
		"text_size", len(result.Text))

	return result, nil
}

// DetectChallengePage names the bot-protection page in title/html, or
// returns "" for a normal page.
func DetectChallengePage(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	switch {
	case strings.Contains(titleLower, "just a moment"),
		strings.Contains(titleLower, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile"),
		strings.Contains(htmlLower, "cf-turnstile"):
		return "cloudflare-turnstile"
	case strings.Contains(htmlLower, "hcaptcha.com"),
		strings.Contains(htmlLower, "h-captcha"):
		return "hcaptcha"
	case strings.Contains(htmlLower, "google.com/recaptcha"),
		strings.Contains(htmlLower, "g-recaptcha"):
		return "recaptcha"
	case strings.Contains(titleLower, "access denied"),
		strings.Contains(titleLower, "bot detection"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}
	return ""
}

// Close releases browser resources.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return ModeDynamic
}

// documentStatus records the HTTP status of the first document response a
// browser tab receives. Events arrive on chromedp's listener goroutine.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) observe(ev any) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == 0 {
		d.status = int(e.Response.Status)
	}
}

func (d *documentStatus) code() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// checkStatus rejects non-2xx document responses. Zero means no response
// event was seen and is let through.
func checkStatus(targetURL string, status int) error {
	if status == 0 {
		logger.Debug("no document response observed", "url", targetURL)
		return nil
	}
	if status < 200 || status > 299 {
		return &FetchError{URL: targetURL, StatusCode: status, Err: errors.New("unexpected status")}
	}
	return nil
}
