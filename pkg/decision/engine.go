package decision

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/retrieval"
)

// Thresholds are the score-to-tier boundaries. Both are inclusive:
// score >= Approved is approved, score >= Conditional is conditional.
// Configuration, not constants, so they can be tuned and tested.
type Thresholds struct {
	Approved    float64
	Conditional float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Approved: 80, Conditional: 50}
}

// Engine scores a classified case against its category checklist. Pure with
// respect to its inputs: identical (case, category, candidates, checklist,
// thresholds) always produce identical results.
type Engine struct {
	checklists map[models.PolicyCategory]Checklist
	thresholds Thresholds
}

func NewEngine(checklists map[models.PolicyCategory]Checklist, thresholds Thresholds) *Engine {
	if thresholds.Approved <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Engine{checklists: checklists, thresholds: thresholds}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Decide evaluates every checklist criterion against the case's structured
// facts and the retrieved policy evidence, and maps the weighted score to a
// tier. Unknown criteria contribute nothing and are surfaced in the result
// rather than penalized.
func (e *Engine) Decide(c models.ClinicalCase, category models.PolicyCategory, candidates []retrieval.Candidate, degraded bool) (models.DecisionResult, error) {
	checklist, ok := e.checklists[category]
	if !ok {
		return models.DecisionResult{}, fmt.Errorf("no checklist for category %s", category)
	}

	outcomes := make([]models.CriterionOutcome, 0, len(checklist.Criteria))
	contributions := make(map[int]float64) // candidate index -> contributed weight

	var satisfiedWeight, evaluableWeight float64
	for _, criterion := range checklist.Criteria {
		outcome := e.evaluateCriterion(criterion, c, candidates, contributions)
		outcomes = append(outcomes, outcome)

		switch outcome.State {
		case models.CriterionSatisfied:
			satisfiedWeight += criterion.Weight
			evaluableWeight += criterion.Weight
		case models.CriterionUnsatisfied:
			evaluableWeight += criterion.Weight
		}
	}

	result := models.DecisionResult{
		CaseID:       c.CaseID,
		Category:     category,
		CategoryName: category.DisplayName(),
		Criteria:     outcomes,
		Citations:    buildCitations(candidates, contributions),
		Degraded:     degraded,
		EvaluatedAt:  time.Now().UTC(),
	}

	if evaluableWeight == 0 {
		result.Confidence = 0
		result.Tier = models.TierDenied
		result.Rationale = "insufficient evidence: no criteria could be evaluated from the available clinical data or policy text"
		result.RemediationSteps = remediationSteps(category, outcomes)
		return result, nil
	}

	result.Confidence = 100 * satisfiedWeight / evaluableWeight
	result.Tier = e.tier(result.Confidence)
	result.Rationale = rationale(outcomes, result.Confidence)
	if result.Tier != models.TierApproved {
		result.RemediationSteps = remediationSteps(category, outcomes)
	}
	return result, nil
}

func (e *Engine) evaluateCriterion(criterion Criterion, c models.ClinicalCase, candidates []retrieval.Candidate, contributions map[int]float64) models.CriterionOutcome {
	outcome := models.CriterionOutcome{
		Name:   criterion.Name,
		Weight: criterion.Weight,
		State:  models.CriterionUnknown,
	}

	if criterion.Fact != "" {
		resolved := factResolvers[criterion.Fact](c)
		outcome.State = resolved.state
		outcome.Evidence = resolved.evidence
	} else {
		if len(candidates) == 0 {
			outcome.Evidence = "no policy text retrieved"
		} else {
			outcome.State = models.CriterionUnsatisfied
			outcome.Evidence = "retrieved policy text does not address this criterion"
			for i, candidate := range candidates {
				if matched := matchKeywords(candidate.Text, criterion.Keywords); matched != "" {
					outcome.State = models.CriterionSatisfied
					outcome.Evidence = fmt.Sprintf("policy text mentions %q", matched)
					contributions[i] += criterion.Weight
					break
				}
			}
		}
	}

	if outcome.State == models.CriterionSatisfied {
		outcome.Contribution = criterion.Weight
	}
	return outcome
}

func (e *Engine) tier(score float64) string {
	switch {
	case score >= e.thresholds.Approved:
		return models.TierApproved
	case score >= e.thresholds.Conditional:
		return models.TierConditional
	default:
		return models.TierDenied
	}
}

func matchKeywords(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// buildCitations orders contributing candidates by contributed weight, ties
// broken by original retrieval rank.
func buildCitations(candidates []retrieval.Candidate, contributions map[int]float64) []models.Citation {
	indexes := make([]int, 0, len(contributions))
	for i := range contributions {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(a, b int) bool {
		if contributions[indexes[a]] != contributions[indexes[b]] {
			return contributions[indexes[a]] > contributions[indexes[b]]
		}
		return indexes[a] < indexes[b]
	})

	citations := make([]models.Citation, 0, len(indexes))
	for _, i := range indexes {
		candidate := candidates[i]
		excerpt := candidate.Text
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		citations = append(citations, models.Citation{
			Source:       candidate.Source,
			DocumentID:   candidate.DocumentID,
			DocumentName: candidate.DocumentName,
			URL:          candidate.URL,
			Excerpt:      excerpt,
			Score:        candidate.Score,
		})
	}
	return citations
}

func rationale(outcomes []models.CriterionOutcome, score float64) string {
	var satisfied, unsatisfied, unknown []string
	for _, o := range outcomes {
		switch o.State {
		case models.CriterionSatisfied:
			satisfied = append(satisfied, o.Name)
		case models.CriterionUnsatisfied:
			unsatisfied = append(unsatisfied, o.Name)
		default:
			unknown = append(unknown, o.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "confidence %.1f: %d of %d evaluable criteria satisfied", score, len(satisfied), len(satisfied)+len(unsatisfied))
	if len(satisfied) > 0 {
		fmt.Fprintf(&b, "; met: %s", strings.Join(satisfied, ", "))
	}
	if len(unsatisfied) > 0 {
		fmt.Fprintf(&b, "; unmet: %s", strings.Join(unsatisfied, ", "))
	}
	if len(unknown) > 0 {
		fmt.Fprintf(&b, "; not evaluable: %s", strings.Join(unknown, ", "))
	}
	return b.String()
}

// remediationSteps suggests what documentation would change the outcome,
// derived from unmet and unknown criteria.
func remediationSteps(category models.PolicyCategory, outcomes []models.CriterionOutcome) []string {
	var steps []string
	for _, o := range outcomes {
		if o.State == models.CriterionSatisfied {
			continue
		}
		steps = append(steps, fmt.Sprintf("address criterion %q: %s", o.Name, o.Evidence))
	}

	switch category {
	case models.ChronicPainConservative:
		steps = append(steps, "complete 6+ weeks of conservative therapy (physical therapy, chiropractic, or home exercise) with documentation")
	case models.ChronicPainWorsening:
		steps = append(steps, "document worsening pain despite an ongoing conservative therapy trial")
	}
	return steps
}
