package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/claimsight-ai/platform/pkg/embedding"
)

// generation is an immutable snapshot of the indexed corpus. Searches operate
// on a snapshot without holding any lock, so readers never observe a
// partially-written index: mutations build a fresh generation and swap it in.
type generation struct {
	dim           int
	corpusVersion int64
	chunks        []Chunk
}

// Index is the in-memory vector store over policy chunks.
type Index struct {
	mu      sync.RWMutex
	gen     *generation
	writeMu sync.Mutex // serializes ingest and reindex relative to each other
}

func NewIndex(dim int) *Index {
	return &Index{gen: &generation{dim: dim}}
}

func (ix *Index) snapshot() *generation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.gen
}

func (ix *Index) swap(gen *generation) {
	ix.mu.Lock()
	ix.gen = gen
	ix.mu.Unlock()
}

// Dimension returns the vector dimensionality pinned at build time.
func (ix *Index) Dimension() int {
	return ix.snapshot().dim
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	return len(ix.snapshot().chunks)
}

// CorpusVersion returns the monotonically increasing version marker bumped on
// every mutation.
func (ix *Index) CorpusVersion() int64 {
	return ix.snapshot().corpusVersion
}

// Documents returns the distinct document ids currently indexed.
func (ix *Index) Documents() []string {
	gen := ix.snapshot()
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range gen.chunks {
		if _, ok := seen[c.DocumentID]; ok {
			continue
		}
		seen[c.DocumentID] = struct{}{}
		ids = append(ids, c.DocumentID)
	}
	return ids
}

// Search returns the top-k chunks by cosine similarity to the query vector,
// optionally pre-filtered to a category. Equal similarities are broken by
// chunk insertion order, so results are deterministic for identical input.
func (ix *Index) Search(query []float32, k int, category string) ([]SearchResult, error) {
	gen := ix.snapshot()
	if len(query) != gen.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index built with %d",
			embedding.ErrDimensionMismatch, len(query), gen.dim)
	}
	if k <= 0 || len(gen.chunks) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(gen.chunks))
	for _, chunk := range gen.chunks {
		if category != "" && !chunk.HasCategory(category) {
			continue
		}
		results = append(results, SearchResult{
			Chunk:      chunk,
			Similarity: dot(query, chunk.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.Seq < results[j].Chunk.Seq
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ReplaceDocument removes the document's existing chunks and appends the
// replacements, leaving every other chunk's vector and order untouched.
func (ix *Index) ReplaceDocument(documentID string, chunks []Chunk) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	old := ix.snapshot()
	next := &generation{dim: old.dim, corpusVersion: old.corpusVersion + 1}

	maxSeq := -1
	for _, c := range old.chunks {
		if c.DocumentID == documentID {
			continue
		}
		next.chunks = append(next.chunks, c)
		if c.Seq > maxSeq {
			maxSeq = c.Seq
		}
	}
	for i := range chunks {
		chunks[i].Seq = maxSeq + 1 + i
		next.chunks = append(next.chunks, chunks[i])
	}

	ix.swap(next)
}

// Reset replaces the whole index content in one swap, preserving the chunks'
// Seq values. Used by full rebuilds and by Load.
func (ix *Index) Reset(dim int, corpusVersion int64, chunks []Chunk) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	next := &generation{dim: dim, corpusVersion: corpusVersion}
	next.chunks = append(next.chunks, chunks...)
	ix.swap(next)
}

// Chunks returns a copy of the indexed chunks in insertion order.
func (ix *Index) Chunks() []Chunk {
	gen := ix.snapshot()
	out := make([]Chunk, len(gen.chunks))
	copy(out, gen.chunks)
	return out
}

// Vectors are unit-normalized by the embedding provider, so the inner product
// is the cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
