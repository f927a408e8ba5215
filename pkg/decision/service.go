package decision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimsight-ai/platform/pkg/classifier"
	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/retrieval"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventPublisher is satisfied by the kafka producer. A nil publisher disables
// decision events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service is the single decide entry point: classify, retrieve, decide.
// Auditing and event publication happen after the result is produced and
// never affect it.
type Service struct {
	classifier *classifier.Classifier
	retriever  *retrieval.Retriever
	engine     *Engine
	audit      AuditStore
	producer   EventPublisher
}

func NewService(cl *classifier.Classifier, retriever *retrieval.Retriever, engine *Engine, audit AuditStore, producer EventPublisher) *Service {
	return &Service{
		classifier: cl,
		retriever:  retriever,
		engine:     engine,
		audit:      audit,
		producer:   producer,
	}
}

// Evaluate runs one case end to end. A missing-codes case fails with
// models.ErrInsufficientData; retrieval degradation is recorded on the
// result, never surfaced as failure.
func (s *Service) Evaluate(ctx context.Context, c models.ClinicalCase) (*models.DecisionResult, error) {
	if c.CaseID == "" {
		c.CaseID = uuid.New().String()
	}

	classification, err := s.classifier.Classify(c)
	if err != nil {
		return nil, err
	}

	retrieved, err := s.retriever.Retrieve(ctx, c, classification.Category)
	if err != nil {
		return nil, fmt.Errorf("retrieving policy evidence: %w", err)
	}

	result, err := s.engine.Decide(c, classification.Category, retrieved.Candidates, retrieved.Degraded)
	if err != nil {
		return nil, err
	}
	result.ClassifierRule = classification.Rule

	logger.Log.WithFields(map[string]interface{}{
		"case_id":    result.CaseID,
		"category":   result.Category,
		"tier":       result.Tier,
		"confidence": result.Confidence,
		"degraded":   result.Degraded,
		"candidates": len(retrieved.Candidates),
	}).Info("case evaluated")

	s.record(ctx, c, &result)
	s.publish(ctx, &result)

	return &result, nil
}

func (s *Service) record(ctx context.Context, c models.ClinicalCase, result *models.DecisionResult) {
	if s.audit == nil {
		return
	}

	casePayload, err := toJSONMap(c)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode case payload for audit")
		return
	}
	resultPayload, err := toJSONMap(result)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode result payload for audit")
		return
	}

	rec := &Record{
		ID:         uuid.New().String(),
		CaseID:     result.CaseID,
		Category:   string(result.Category),
		Tier:       result.Tier,
		Confidence: result.Confidence,
		Degraded:   result.Degraded,
		Case:       casePayload,
		Result:     resultPayload,
	}
	if err := s.audit.Create(ctx, rec); err != nil {
		logger.Log.WithError(err).Warn("failed to persist decision record")
	}
}

func (s *Service) publish(ctx context.Context, result *models.DecisionResult) {
	if s.producer == nil {
		return
	}
	payload := map[string]interface{}{
		"case_id":    result.CaseID,
		"category":   result.Category,
		"tier":       result.Tier,
		"confidence": result.Confidence,
		"degraded":   result.Degraded,
	}
	if err := s.producer.PublishEvent(ctx, "decision.completed", "decision-engine", payload); err != nil {
		logger.Log.WithError(err).Warn("failed to publish decision event")
	}
}

func toJSONMap(v interface{}) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}
