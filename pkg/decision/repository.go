package decision

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("decision record not found")

// Record is the durable audit row written after each evaluation. Written
// once, after the decision is produced; never part of the scoring path.
type Record struct {
	ID         string            `gorm:"primaryKey;column:id"`
	CaseID     string            `gorm:"column:case_id"`
	Category   string            `gorm:"column:category"`
	Tier       string            `gorm:"column:tier"`
	Confidence float64           `gorm:"column:confidence"`
	Degraded   bool              `gorm:"column:degraded"`
	Case       datatypes.JSONMap `gorm:"column:case_payload"`
	Result     datatypes.JSONMap `gorm:"column:result_payload"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (Record) TableName() string {
	return "decision_records"
}

// AuditStore persists decision records. Satisfied by Repository; a nil store
// disables auditing.
type AuditStore interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &rec, result.Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []Record
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&recs)
	return recs, result.Error
}
