package lookup

import (
	"context"
	"encoding/json"
	"errors"
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

func TestSearchReturnsSnippets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "lumbar mri coverage" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("max_results"); got != "2" {
			t.Errorf("unexpected max_results %q", got)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Snippet{
			{Title: "Lumbar MRI Policy", Snippet: "conservative therapy required", URL: "https://example.com/a"},
			{Title: "Imaging Guidelines", Snippet: "six week trial", URL: "https://example.com/b"},
		}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	if !client.Enabled() {
		t.Fatal("expected client to be enabled")
	}

	snippets, err := client.Search(context.Background(), "lumbar mri coverage", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(snippets))
	}
	if snippets[0].Title != "Lumbar MRI Policy" {
		t.Fatalf("unexpected first snippet %+v", snippets[0])
	}
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Results: []Snippet{
			{Title: "a"}, {Title: "b"}, {Title: "c"},
		}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	snippets, err := client.Search(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
}

func TestSearchWrapsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	if _, err := client.Search(context.Background(), "query", 2); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestSearchDisabledWithoutBaseURL(t *testing.T) {
	client := NewClient(Config{}, nil)
	if client.Enabled() {
		t.Fatal("expected client to be disabled")
	}
	if _, err := client.Search(context.Background(), "query", 2); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestNewCacheRequiresClientAndTTL(t *testing.T) {
	if c := NewCache(nil, 0); c != nil {
		t.Fatal("expected nil cache without redis client")
	}
}
