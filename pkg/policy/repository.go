package policy

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("policy document not found")

// CorpusStore is the durable home of policy documents, the source of truth
// for index rebuilds.
type CorpusStore interface {
	Upsert(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Document{})
}

func (r *Repository) Upsert(ctx context.Context, doc *Document) error {
	now := time.Now().UTC()
	doc.UpdatedAt = now

	var existing Document
	err := r.db.WithContext(ctx).First(&existing, "id = ?", doc.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc.CreatedAt = now
		return r.db.WithContext(ctx).Create(doc).Error
	}
	if err != nil {
		return err
	}

	doc.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	result := r.db.WithContext(ctx).First(&doc, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &doc, result.Error
}

func (r *Repository) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	result := r.db.WithContext(ctx).Order("created_at asc").Find(&docs)
	return docs, result.Error
}
