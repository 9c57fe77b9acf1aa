package retail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/internal/version"
)

// APIClient searches a retailer's JSON product search endpoint:
//
//	GET {base}/search?query=...&apiKey=...
//	{"items": [{"itemId": "...", "name": "...", "salePrice": 1.23, "productUrl": "..."}]}
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAPIClient creates a client for baseURL. An empty apiKey omits the
// parameter; a zero timeout defaults to 30s.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type searchResponse struct {
	Items []Product `json:"items"`
}

// Search implements Searcher.
func (c *APIClient) Search(ctx context.Context, query string) ([]Product, error) {
	params := url.Values{}
	params.Set("query", query)
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	logger.Debug("retail api search", "query", query)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retail search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retail search returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(sr.Items) == 0 {
		return nil, ErrNoResults
	}

	logger.Debug("retail api results", "query", query, "count", len(sr.Items))
	return sr.Items, nil
}

// Name implements Searcher.
func (c *APIClient) Name() string {
	return ModeAPI
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
