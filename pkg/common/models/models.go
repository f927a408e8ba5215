package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInsufficientData marks a clinical case that cannot be evaluated because it
// carries neither a diagnosis code nor a procedure code. Fatal to that case only.
var ErrInsufficientData = errors.New("insufficient clinical data: at least one diagnosis or procedure code required")

// Symptom trend values. An empty trend means the trend was not documented.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendWorsening = "worsening"
)

// Red-flag findings recognized by the classifier.
const (
	FlagNeuroDeficit      = "neuro-deficit"
	FlagTrauma            = "trauma"
	FlagMalignancySuspect = "malignancy-suspected"
)

// TherapyHistory documents a completed or ongoing conservative therapy trial.
// A nil TherapyHistory on a case means therapy status is undocumented, which is
// distinct from "no therapy done".
type TherapyHistory struct {
	Conservative  bool `json:"conservative"`
	DurationWeeks int  `json:"duration_weeks"`
}

// ClinicalCase is the structured clinical record a decision is made against.
// It is treated as immutable input; validation failures surface as
// ErrInsufficientData rather than guessed defaults.
type ClinicalCase struct {
	CaseID               string          `json:"case_id,omitempty"`
	DiagnosisCodes       []string        `json:"diagnosis_codes"`
	ProcedureCode        string          `json:"procedure_code"`
	ProcedureName        string          `json:"procedure_name"`
	SymptomDurationWeeks int             `json:"symptom_duration_weeks"` // 0 = undocumented
	SymptomTrend         string          `json:"symptom_trend"`          // "" = undocumented
	Therapy              *TherapyHistory `json:"therapy,omitempty"`
	RedFlags             []string        `json:"red_flags,omitempty"`
	Narrative            string          `json:"narrative"`
}

// Validate enforces the case invariant.
func (c ClinicalCase) Validate() error {
	if len(c.DiagnosisCodes) == 0 && strings.TrimSpace(c.ProcedureCode) == "" {
		return ErrInsufficientData
	}
	return nil
}

// HasRedFlag reports whether the given enumerated flag is present.
func (c ClinicalCase) HasRedFlag(flag string) bool {
	for _, f := range c.RedFlags {
		if strings.EqualFold(strings.TrimSpace(f), flag) {
			return true
		}
	}
	return false
}

// SearchText joins the case's textual facts into one lowercased string for
// keyword matching.
func (c ClinicalCase) SearchText() string {
	parts := make([]string, 0, len(c.DiagnosisCodes)+3)
	parts = append(parts, c.DiagnosisCodes...)
	if c.ProcedureCode != "" {
		parts = append(parts, c.ProcedureCode)
	}
	if c.ProcedureName != "" {
		parts = append(parts, c.ProcedureName)
	}
	if c.Narrative != "" {
		parts = append(parts, c.Narrative)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// PolicyCategory enumerates the coverage policy classes a case can route to.
type PolicyCategory string

const (
	ChronicPainConservative    PolicyCategory = "chronic-pain-conservative"
	ChronicPainWorsening       PolicyCategory = "chronic-pain-worsening"
	AbnormalNeurologicFindings PolicyCategory = "abnormal-neurologic-findings"
	TumorMalignancy            PolicyCategory = "tumor-malignancy"
	AcuteTraumaSpinal          PolicyCategory = "acute-trauma-spinal"
	NeurologicEmergency        PolicyCategory = "neurologic-emergency"
)

// AllCategories is the fixed category set, in rule-priority-independent
// declaration order. Checklist configuration must cover every entry.
func AllCategories() []PolicyCategory {
	return []PolicyCategory{
		ChronicPainConservative,
		ChronicPainWorsening,
		AbnormalNeurologicFindings,
		TumorMalignancy,
		AcuteTraumaSpinal,
		NeurologicEmergency,
	}
}

// DisplayName returns the human-readable category label used in reports.
func (c PolicyCategory) DisplayName() string {
	switch c {
	case ChronicPainConservative:
		return "Chronic Pain - Conservative Therapy"
	case ChronicPainWorsening:
		return "Chronic Pain - Worsening"
	case AbnormalNeurologicFindings:
		return "Abnormal Neurologic Findings"
	case TumorMalignancy:
		return "Tumor/Malignancy"
	case AcuteTraumaSpinal:
		return "Acute Trauma - Spinal Injury"
	case NeurologicEmergency:
		return "Neurologic Emergency"
	default:
		return string(c)
	}
}

// Decision tiers.
const (
	TierApproved    = "APPROVED"
	TierConditional = "CONDITIONAL"
	TierDenied      = "DENIED"
)

// Criterion states.
const (
	CriterionSatisfied   = "satisfied"
	CriterionUnsatisfied = "unsatisfied"
	CriterionUnknown     = "unknown"
)

// CriterionOutcome records how a single checklist criterion resolved.
type CriterionOutcome struct {
	Name   string  `json:"name"`
	State  string  `json:"state"` // satisfied | unsatisfied | unknown
	Weight float64 `json:"weight"`
	// Contribution is the weight counted toward the score numerator
	// (equal to Weight when satisfied, zero otherwise).
	Contribution float64 `json:"contribution"`
	Evidence     string  `json:"evidence,omitempty"`
}

// Citation points at a retrieval candidate whose text informed a criterion.
type Citation struct {
	Source       string  `json:"source"` // local | remote
	DocumentID   string  `json:"document_id,omitempty"`
	DocumentName string  `json:"document_name,omitempty"`
	URL          string  `json:"url,omitempty"`
	Excerpt      string  `json:"excerpt,omitempty"`
	Score        float64 `json:"score"`
}

// DecisionResult is the final, immutable output of a case evaluation.
type DecisionResult struct {
	CaseID           string             `json:"case_id,omitempty"`
	Category         PolicyCategory     `json:"category"`
	CategoryName     string             `json:"category_name"`
	ClassifierRule   string             `json:"classifier_rule"`
	Confidence       float64            `json:"confidence"` // [0,100]
	Tier             string             `json:"tier"`
	Criteria         []CriterionOutcome `json:"criteria"`
	Citations        []Citation         `json:"citations"`
	Degraded         bool               `json:"degraded"`
	Rationale        string             `json:"rationale"`
	RemediationSteps []string           `json:"remediation_steps,omitempty"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
}

// Event bus models.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // decision.completed, policy.ingested, policy.reindexed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// IngestPolicyRequest is the corpus-management payload for adding or replacing
// a policy document.
type IngestPolicyRequest struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Text       string   `json:"text"`
}

type IngestPolicyResponse struct {
	DocumentID string    `json:"document_id"`
	Chunks     int       `json:"chunks"`
	Timestamp  time.Time `json:"timestamp"`
}
