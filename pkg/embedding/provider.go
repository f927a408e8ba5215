package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/httpclient"
	"github.com/claimsight-ai/platform/pkg/common/logger"
)

// ErrDimensionMismatch marks a vector whose length differs from the dimension
// pinned at index-build time. Fatal configuration error; vectors are never
// truncated or padded.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider turns text into a fixed-length numeric vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Client    *http.Client
}

// HTTPProvider calls a REST embedding endpoint. The wire format follows the
// common embedContent shape: {"model": ..., "text": ...} in,
// {"embedding": {"values": [...]}} out.
type HTTPProvider struct {
	cfg    Config
	client *http.Client
}

func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base URL required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}
	client := cfg.Client
	if client == nil {
		client = httpclient.New(0)
	}
	return &HTTPProvider{cfg: cfg, client: client}, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.cfg.Dimension
}

type embedRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.cfg.Model, Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshalling embed request: %w", err)
	}

	var resp *http.Response
	var permanent error
	err = httpclient.Retry(ctx, 3, 100*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			permanent = err
			return nil
		}
		req.Header.Set("Content-Type", "application/json")
		if p.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		}

		r, err := p.client.Do(req)
		if err != nil {
			if httpclient.IsRetriable(err) {
				return err
			}
			permanent = err
			return nil
		}
		resp = r
		return nil
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Log.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(payload),
		}).Warn("embedding provider returned non-200")
		return nil, fmt.Errorf("embedding provider status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	vector := parsed.Embedding.Values
	if len(vector) != p.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), p.cfg.Dimension)
	}

	Normalize(vector)
	return vector, nil
}

// Normalize scales the vector to unit length in place. Zero vectors are left
// untouched.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
