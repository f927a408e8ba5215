package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/embedding"
	"github.com/claimsight-ai/platform/pkg/lookup"
	"github.com/claimsight-ai/platform/pkg/policy"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fixedEmbedder struct{ dim int }

func (e fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	v := make([]float32, e.dim)
	v[0] = 1
	return v, nil
}

func (e fixedEmbedder) Dimension() int { return e.dim }

type fakeIndex struct {
	results []policy.SearchResult
	err     error
}

func (f fakeIndex) Search([]float32, int, string) ([]policy.SearchResult, error) {
	return f.results, f.err
}

type fakeRemote struct {
	snippets []lookup.Snippet
	err      error
	enabled  bool
	delay    time.Duration
}

func (f fakeRemote) Enabled() bool { return f.enabled }

func (f fakeRemote) Search(ctx context.Context, _ string, _ int) ([]lookup.Snippet, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", lookup.ErrRemoteUnavailable, ctx.Err())
		}
	}
	return f.snippets, f.err
}

func localResult(doc, text string, similarity float64) policy.SearchResult {
	return policy.SearchResult{
		Chunk: policy.Chunk{
			DocumentID:   doc,
			DocumentName: doc,
			Text:         text,
		},
		Similarity: similarity,
	}
}

func testCase() models.ClinicalCase {
	return models.ClinicalCase{
		DiagnosisCodes: []string{"M54.5"},
		ProcedureName:  "lumbar mri",
	}
}

func TestRetrieveMergesBothSources(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{results: []policy.SearchResult{
		localResult("Lumbar MRI Policy", "conservative therapy required", 0.9),
	}}, fakeRemote{enabled: true, snippets: []lookup.Snippet{
		{Title: "Imaging Guidelines", Snippet: "lumbar mri coverage criteria", URL: "https://example.com/g"},
	}}, Config{})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if result.Degraded {
		t.Fatal("expected non-degraded result")
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}

	sources := map[string]bool{}
	for _, c := range result.Candidates {
		sources[c.Source] = true
		if c.Score < 0 || c.Score > 1 {
			t.Fatalf("score %f out of [0,1]", c.Score)
		}
	}
	if !sources[SourceLocal] || !sources[SourceRemote] {
		t.Fatalf("expected both sources, got %v", sources)
	}
}

func TestRetrieveDedupesPreferringLocal(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{results: []policy.SearchResult{
		localResult("Lumbar MRI Policy", "local chunk text", 0.9),
	}}, fakeRemote{enabled: true, snippets: []lookup.Snippet{
		{Title: "lumbar  MRI policy", Snippet: "remote duplicate", URL: "https://example.com/d"},
	}}, Config{})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected duplicate collapsed to 1 candidate, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Source != SourceLocal {
		t.Fatalf("expected local candidate kept, got %s", result.Candidates[0].Source)
	}
}

func TestRetrieveDegradedOnRemoteFailure(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{results: []policy.SearchResult{
		localResult("Lumbar MRI Policy", "local chunk text", 0.9),
	}}, fakeRemote{enabled: true, err: fmt.Errorf("%w: connection refused", lookup.ErrRemoteUnavailable)}, Config{})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected degraded result")
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Source != SourceLocal {
		t.Fatalf("expected local candidates to survive, got %+v", result.Candidates)
	}
}

func TestRetrieveDegradedWhenRemoteDisabled(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{}, fakeRemote{enabled: false}, Config{})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected degraded result without remote source")
	}
}

func TestRetrieveDegradedOnRemoteTimeout(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{results: []policy.SearchResult{
		localResult("Lumbar MRI Policy", "local chunk text", 0.9),
	}}, fakeRemote{enabled: true, delay: time.Second}, Config{Budget: 20 * time.Millisecond})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected degraded result after remote timeout")
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected local candidate to survive timeout, got %d", len(result.Candidates))
	}
}

func TestRetrieveAbortsOnDimensionMismatch(t *testing.T) {
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{
		err: fmt.Errorf("%w: query has 3 dimensions", embedding.ErrDimensionMismatch),
	}, fakeRemote{enabled: false}, Config{})

	_, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch to abort, got %v", err)
	}
}

func TestRetrieveCapsCandidates(t *testing.T) {
	var results []policy.SearchResult
	for i := 0; i < 6; i++ {
		results = append(results, localResult(fmt.Sprintf("Policy %d", i), "text", 0.5))
	}
	r := NewRetriever(fixedEmbedder{dim: 3}, fakeIndex{results: results}, fakeRemote{enabled: false}, Config{MaxCandidates: 4})

	result, err := r.Retrieve(context.Background(), testCase(), models.ChronicPainConservative)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(result.Candidates) != 4 {
		t.Fatalf("expected candidate cap of 4, got %d", len(result.Candidates))
	}
}

func TestNormalizeSimilarity(t *testing.T) {
	cases := []struct{ in, out float64 }{
		{1, 1},
		{0, 0.5},
		{-1, 0},
		{2, 1},
		{-2, 0},
	}
	for _, tc := range cases {
		if got := normalizeSimilarity(tc.in); math.Abs(got-tc.out) > 1e-9 {
			t.Fatalf("normalizeSimilarity(%f) = %f, expected %f", tc.in, got, tc.out)
		}
	}
}

func TestKeywordOverlap(t *testing.T) {
	if got := keywordOverlap("lumbar mri coverage", "lumbar mri"); got != 1 {
		t.Fatalf("expected full overlap, got %f", got)
	}
	if got := keywordOverlap("unrelated text", "lumbar mri"); got != 0 {
		t.Fatalf("expected zero overlap, got %f", got)
	}
	if got := keywordOverlap("lumbar only", "lumbar mri"); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected half overlap, got %f", got)
	}
	if got := keywordOverlap("anything", ""); got != 0 {
		t.Fatalf("expected zero for empty keywords, got %f", got)
	}
}

func TestIdentityCollapsesWhitespaceAndCase(t *testing.T) {
	if identity("Lumbar  MRI Policy") != identity("lumbar mri  POLICY") {
		t.Fatal("expected identity to normalize case and whitespace")
	}
}
