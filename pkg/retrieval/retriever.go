package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/claimsight-ai/platform/pkg/classifier"
	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/embedding"
	"github.com/claimsight-ai/platform/pkg/lookup"
	"github.com/claimsight-ai/platform/pkg/policy"
)

// Candidate sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Candidate is one ranked piece of policy evidence, local chunk or remote
// snippet, carrying a normalized relevance score in [0,1]. Transient: built
// per query, never persisted.
type Candidate struct {
	Source       string  `json:"source"`
	Score        float64 `json:"score"`
	Text         string  `json:"text"`
	DocumentID   string  `json:"document_id,omitempty"`
	DocumentName string  `json:"document_name,omitempty"`
	URL          string  `json:"url,omitempty"`
	Rank         int     `json:"rank"` // original per-source rank
}

// Result is the merged candidate list. Degraded means the remote source
// failed or timed out and ranking richness suffered; it is never an error.
type Result struct {
	Candidates []Candidate
	Degraded   bool
}

// LocalIndex is the policy index search surface the orchestrator needs.
type LocalIndex interface {
	Search(query []float32, k int, category string) ([]policy.SearchResult, error)
}

// RemoteSource is the best-effort external lookup boundary.
type RemoteSource interface {
	Enabled() bool
	Search(ctx context.Context, keywords string, maxResults int) ([]lookup.Snippet, error)
}

type Config struct {
	TopK             int
	RemoteMaxResults int
	Budget           time.Duration
	MaxCandidates    int
}

// Retriever issues the local vector search and the remote keyword lookup
// concurrently under one timeout budget and merges the results.
type Retriever struct {
	embedder embedding.Provider
	index    LocalIndex
	remote   RemoteSource
	cfg      Config
}

func NewRetriever(embedder embedding.Provider, index LocalIndex, remote RemoteSource, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.RemoteMaxResults <= 0 {
		cfg.RemoteMaxResults = 3
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 12 * time.Second
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 8
	}
	return &Retriever{embedder: embedder, index: index, remote: remote, cfg: cfg}
}

type localOutcome struct {
	results []policy.SearchResult
	err     error
}

type remoteOutcome struct {
	snippets []lookup.Snippet
	err      error
}

// Retrieve builds the query from the case and category, runs both sources
// concurrently, and returns the merged, deduplicated, capped candidate list.
// Total source failure yields an empty list, not an error; only a query-time
// embedding dimension mismatch aborts, since that is a configuration fault.
func (r *Retriever) Retrieve(ctx context.Context, c models.ClinicalCase, category models.PolicyCategory) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Budget)
	defer cancel()

	queryText := buildQueryText(c, category)
	keywords := buildKeywords(c, category)

	localCh := make(chan localOutcome, 1)
	remoteCh := make(chan remoteOutcome, 1)

	go func() {
		vector, err := r.embedder.Embed(ctx, queryText)
		if err != nil {
			localCh <- localOutcome{err: err}
			return
		}
		results, err := r.index.Search(vector, r.cfg.TopK, string(category))
		localCh <- localOutcome{results: results, err: err}
	}()

	go func() {
		if r.remote == nil || !r.remote.Enabled() {
			remoteCh <- remoteOutcome{err: lookup.ErrRemoteUnavailable}
			return
		}
		snippets, err := r.remote.Search(ctx, keywords, r.cfg.RemoteMaxResults)
		remoteCh <- remoteOutcome{snippets: snippets, err: err}
	}()

	local := <-localCh
	remote := <-remoteCh

	if local.err != nil {
		if errors.Is(local.err, embedding.ErrDimensionMismatch) {
			return Result{}, local.err
		}
		logger.Log.WithError(local.err).Warn("local policy search failed")
	}

	result := Result{}
	if remote.err != nil {
		if !errors.Is(remote.err, lookup.ErrRemoteUnavailable) {
			logger.Log.WithError(remote.err).Warn("remote policy lookup failed")
		}
		result.Degraded = true
	}

	result.Candidates = merge(local.results, remote.snippets, keywords, r.cfg.MaxCandidates)
	return result, nil
}

// buildQueryText mirrors how the category checklist phrases coverage
// conditions: category label plus a bounded slice of the clinical narrative.
func buildQueryText(c models.ClinicalCase, category models.PolicyCategory) string {
	text := c.SearchText()
	if len(text) > 200 {
		text = text[:200]
	}
	return category.DisplayName() + " " + text
}

func buildKeywords(c models.ClinicalCase, category models.PolicyCategory) string {
	parts := make([]string, 0, 8)
	parts = append(parts, c.DiagnosisCodes...)
	if c.ProcedureCode != "" {
		parts = append(parts, c.ProcedureCode)
	}
	if c.ProcedureName != "" {
		parts = append(parts, c.ProcedureName)
	}
	parts = append(parts, classifier.Keywords(category)...)
	return strings.ToLower(strings.Join(parts, " "))
}

// merge normalizes both sources onto [0,1], deduplicates by source-document
// identity preferring the local candidate, and returns descending by score
// capped at max.
func merge(local []policy.SearchResult, snippets []lookup.Snippet, keywords string, max int) []Candidate {
	seen := make(map[string]struct{})
	var candidates []Candidate

	for rank, sr := range local {
		key := identity(sr.Chunk.DocumentName)
		candidates = append(candidates, Candidate{
			Source:       SourceLocal,
			Score:        normalizeSimilarity(sr.Similarity),
			Text:         sr.Chunk.Text,
			DocumentID:   sr.Chunk.DocumentID,
			DocumentName: sr.Chunk.DocumentName,
			Rank:         rank,
		})
		seen[key] = struct{}{}
	}

	for rank, snippet := range snippets {
		key := identity(snippet.Title)
		if _, dup := seen[key]; dup {
			// The local chunk covering the same source policy is richer.
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, Candidate{
			Source:       SourceRemote,
			Score:        keywordOverlap(snippet.Title+" "+snippet.Snippet, keywords),
			Text:         snippet.Snippet,
			DocumentName: snippet.Title,
			URL:          snippet.URL,
			Rank:         rank,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Source != candidates[j].Source {
			return candidates[i].Source == SourceLocal
		}
		return candidates[i].Rank < candidates[j].Rank
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// normalizeSimilarity maps cosine similarity from [-1,1] onto [0,1].
func normalizeSimilarity(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// keywordOverlap scores a remote snippet by the fraction of distinct query
// keywords present in its text. Monotonic heuristic: no native similarity
// exists for remote results.
func keywordOverlap(text, keywords string) float64 {
	fields := strings.Fields(keywords)
	if len(fields) == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		distinct[f] = struct{}{}
	}

	lower := strings.ToLower(text)
	matched := 0
	for kw := range distinct {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(distinct))
}

// identity collapses a document name or snippet title to a dedupe key so a
// local chunk and a remote snippet referencing the same policy merge.
func identity(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
