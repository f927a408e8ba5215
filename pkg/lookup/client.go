package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/httpclient"
	"github.com/claimsight-ai/platform/pkg/common/logger"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrRemoteUnavailable marks a failed or timed-out remote lookup. Best-effort
// only: callers degrade to local results, they never fail the case.
var ErrRemoteUnavailable = errors.New("remote policy lookup unavailable")

// Snippet is one ranked result from the remote policy source.
type Snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxResults   int
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client queries an external keyword-based policy search API. When OAuth2
// client credentials are configured, requests carry a bearer token.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *Cache
}

func NewClient(cfg Config, cache *Cache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}

	var client *http.Client
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = creds.Client(context.Background())
		client.Timeout = cfg.Timeout
	} else {
		client = httpclient.New(cfg.Timeout)
	}

	return &Client{cfg: cfg, httpClient: client, cache: cache}
}

// Enabled reports whether a remote source is configured at all.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

type searchResponse struct {
	Results []Snippet `json:"results"`
}

// Search performs a keyword lookup against the remote policy source. Cached
// responses are served from redis when available; cache failures are ignored.
func (c *Client) Search(ctx context.Context, keywords string, maxResults int) ([]Snippet, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no remote source configured", ErrRemoteUnavailable)
	}
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}

	if c.cache != nil {
		if snippets, ok := c.cache.Get(ctx, keywords, maxResults); ok {
			return snippets, nil
		}
	}

	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrRemoteUnavailable, err)
	}
	query := endpoint.Query()
	query.Set("q", keywords)
	query.Set("max_results", strconv.Itoa(maxResults))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Log.WithError(err).Warn("remote policy lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
	}

	snippets := parsed.Results
	if len(snippets) > maxResults {
		snippets = snippets[:maxResults]
	}

	if c.cache != nil {
		c.cache.Put(ctx, keywords, maxResults, snippets)
	}
	return snippets, nil
}
