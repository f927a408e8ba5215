package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/claimsight-ai/platform/pkg/common/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func embedServer(t *testing.T, values []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Text == "" {
			t.Error("expected text in embed request")
		}

		var resp embedResponse
		resp.Embedding.Values = values
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedReturnsNormalizedVector(t *testing.T) {
	server := embedServer(t, []float32{3, 4, 0})
	defer server.Close()

	provider, err := NewHTTPProvider(Config{BaseURL: server.URL, Dimension: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector, err := provider.Embed(context.Background(), "lumbar spine mri")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}

	var norm float64
	for _, x := range vector {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Fatalf("expected unit vector, squared norm %f", norm)
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	server := embedServer(t, []float32{1, 0})
	defer server.Close()

	provider, err := NewHTTPProvider(Config{BaseURL: server.URL, Dimension: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := provider.Embed(context.Background(), "query"); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbedFailsOnProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(Config{BaseURL: server.URL, Dimension: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := provider.Embed(context.Background(), "query"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewHTTPProviderValidatesConfig(t *testing.T) {
	if _, err := NewHTTPProvider(Config{Dimension: 3}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewHTTPProvider(Config{BaseURL: "http://localhost", Dimension: 0}); err == nil {
		t.Fatal("expected error for non-positive dimension")
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("unexpected normalized vector %v", v)
	}

	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("expected zero vector untouched, got %v", zero)
	}
}
