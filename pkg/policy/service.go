package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/embedding"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventPublisher is satisfied by the kafka producer. A nil publisher disables
// corpus events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service owns corpus ingestion and index lifecycle: ingest, incremental
// reindex, persistence, and rebuild-from-corpus recovery.
type Service struct {
	store    CorpusStore
	index    *Index
	embedder embedding.Provider
	chunker  Chunker
	producer EventPublisher
}

func NewService(store CorpusStore, index *Index, embedder embedding.Provider, chunker Chunker, producer EventPublisher) *Service {
	return &Service{
		store:    store,
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		producer: producer,
	}
}

func (s *Service) Index() *Index {
	return s.index
}

// IngestDocument adds or replaces one policy document: the corpus row is
// upserted, the text is chunked, each chunk embedded once, and the document's
// chunks swapped into the index. Re-ingesting unchanged content is a no-op so
// search results stay stable.
func (s *Service) IngestDocument(ctx context.Context, req models.IngestPolicyRequest) (*models.IngestPolicyResponse, error) {
	if req.Name == "" || req.Text == "" {
		return nil, fmt.Errorf("policy name and text are required")
	}

	hash := contentHash(req.Text)
	docID := documentID(req.Name)

	existing, err := s.store.Get(ctx, docID)
	if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("loading policy document: %w", err)
	}
	if existing != nil && existing.ContentHash == hash {
		if count := s.documentChunkCount(docID); count > 0 {
			logger.Log.WithField("document_id", docID).Info("policy content unchanged, skipping reindex")
			return &models.IngestPolicyResponse{DocumentID: docID, Chunks: count, Timestamp: time.Now()}, nil
		}
	}

	categories, err := json.Marshal(req.Categories)
	if err != nil {
		return nil, fmt.Errorf("encoding categories: %w", err)
	}

	doc := &Document{
		ID:          docID,
		Name:        req.Name,
		Categories:  datatypes.JSON(categories),
		Text:        req.Text,
		ContentHash: hash,
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("persisting policy document: %w", err)
	}

	chunks, err := s.embedDocument(ctx, doc, req.Categories)
	if err != nil {
		return nil, err
	}
	s.index.ReplaceDocument(docID, chunks)

	logger.Log.WithFields(map[string]interface{}{
		"document_id": docID,
		"chunks":      len(chunks),
	}).Info("policy document indexed")

	if s.producer != nil {
		payload := map[string]interface{}{
			"document_id": docID,
			"name":        req.Name,
			"chunks":      len(chunks),
		}
		if err := s.producer.PublishEvent(ctx, "policy.ingested", "policy-index", payload); err != nil {
			logger.Log.WithError(err).Warn("failed to publish corpus event")
		}
	}

	return &models.IngestPolicyResponse{DocumentID: docID, Chunks: len(chunks), Timestamp: time.Now()}, nil
}

// ReindexDocument re-embeds a single document's chunks. Chunks belonging to
// other documents are carried over without recomputing their embeddings.
func (s *Service) ReindexDocument(ctx context.Context, documentID string) (int, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return 0, err
	}

	chunks, err := s.embedDocument(ctx, doc, decodeCategories(doc.Categories))
	if err != nil {
		return 0, err
	}
	s.index.ReplaceDocument(documentID, chunks)

	if s.producer != nil {
		payload := map[string]interface{}{"document_id": documentID, "chunks": len(chunks)}
		if err := s.producer.PublishEvent(ctx, "policy.reindexed", "policy-index", payload); err != nil {
			logger.Log.WithError(err).Warn("failed to publish corpus event")
		}
	}
	return len(chunks), nil
}

// RebuildFromCorpus recreates the whole index from the corpus store. This is
// the recovery path when Load fails with ErrIndexLoad.
func (s *Service) RebuildFromCorpus(ctx context.Context) error {
	docs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing corpus: %w", err)
	}

	var chunks []Chunk
	for i := range docs {
		docChunks, err := s.embedDocument(ctx, &docs[i], decodeCategories(docs[i].Categories))
		if err != nil {
			return err
		}
		for j := range docChunks {
			docChunks[j].Seq = len(chunks) + j
		}
		chunks = append(chunks, docChunks...)
	}

	s.index.Reset(s.embedder.Dimension(), s.index.CorpusVersion()+1, chunks)

	logger.Log.WithFields(map[string]interface{}{
		"documents": len(docs),
		"chunks":    len(chunks),
	}).Info("policy index rebuilt from corpus")
	return nil
}

func (s *Service) embedDocument(ctx context.Context, doc *Document, categories []string) ([]Chunk, error) {
	spans := s.chunker.Split(doc.Text)
	chunks := make([]Chunk, 0, len(spans))
	for _, span := range spans {
		vector, err := s.embedder.Embed(ctx, span.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk of %s: %w", doc.ID, err)
		}
		chunks = append(chunks, Chunk{
			ID:           uuid.New().String(),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Categories:   categories,
			Text:         span.Text,
			Vector:       vector,
			SpanStart:    span.Start,
			SpanEnd:      span.End,
		})
	}
	return chunks, nil
}

func (s *Service) documentChunkCount(documentID string) int {
	count := 0
	for _, c := range s.index.Chunks() {
		if c.DocumentID == documentID {
			count++
		}
	}
	return count
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// documentID derives a stable id from the document name so re-ingesting the
// same policy replaces it instead of duplicating it.
func documentID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func decodeCategories(raw datatypes.JSON) []string {
	var categories []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &categories)
	}
	return categories
}
