package classifier

import (
	"strings"

	"github.com/claimsight-ai/platform/pkg/common/models"
)

// acuteOnsetMaxWeeks bounds how recent a documented symptom onset must be for
// a neuro deficit to route to the emergency category.
const acuteOnsetMaxWeeks = 2

// Rule pairs a named predicate with the category it routes to. Rules are
// evaluated top-down and the first match wins, so classification is
// reproducible for identical input.
type Rule struct {
	Name     string
	Matches  func(models.ClinicalCase) bool
	Category models.PolicyCategory
}

// Classification is the routing outcome plus explanatory metadata. Affinity
// is a keyword-overlap score against the chosen category's vocabulary; it is
// reported for traceability and never used for routing.
type Classification struct {
	Category models.PolicyCategory
	Rule     string
	Affinity float64
}

type Classifier struct {
	rules []Rule
}

// New returns a classifier with the fixed priority cascade: red-flag rules
// first (malignancy, trauma, neurologic), then chronic-pain rules, with
// conservative-therapy chronic pain as the documented default.
func New() *Classifier {
	return &Classifier{rules: []Rule{
		{
			Name: "malignancy-suspected",
			Matches: func(c models.ClinicalCase) bool {
				return c.HasRedFlag(models.FlagMalignancySuspect)
			},
			Category: models.TumorMalignancy,
		},
		{
			Name: "trauma-with-neuro-deficit",
			Matches: func(c models.ClinicalCase) bool {
				return c.HasRedFlag(models.FlagTrauma) && c.HasRedFlag(models.FlagNeuroDeficit)
			},
			Category: models.AcuteTraumaSpinal,
		},
		{
			Name: "trauma",
			Matches: func(c models.ClinicalCase) bool {
				return c.HasRedFlag(models.FlagTrauma)
			},
			Category: models.AcuteTraumaSpinal,
		},
		{
			Name: "acute-onset-neuro-deficit",
			Matches: func(c models.ClinicalCase) bool {
				return c.HasRedFlag(models.FlagNeuroDeficit) &&
					c.SymptomDurationWeeks > 0 && c.SymptomDurationWeeks <= acuteOnsetMaxWeeks
			},
			Category: models.NeurologicEmergency,
		},
		{
			Name: "neuro-deficit",
			Matches: func(c models.ClinicalCase) bool {
				return c.HasRedFlag(models.FlagNeuroDeficit)
			},
			Category: models.AbnormalNeurologicFindings,
		},
		{
			Name: "worsening-trend",
			Matches: func(c models.ClinicalCase) bool {
				return c.SymptomTrend == models.TrendWorsening
			},
			Category: models.ChronicPainWorsening,
		},
		{
			Name:     "default-conservative",
			Matches:  func(models.ClinicalCase) bool { return true },
			Category: models.ChronicPainConservative,
		},
	}}
}

// Classify routes a case to exactly one policy category. Pure function of the
// case facts; the only failure mode is the missing-codes invariant.
func (cl *Classifier) Classify(c models.ClinicalCase) (Classification, error) {
	if err := c.Validate(); err != nil {
		return Classification{}, err
	}

	for _, rule := range cl.rules {
		if rule.Matches(c) {
			return Classification{
				Category: rule.Category,
				Rule:     rule.Name,
				Affinity: affinity(c, rule.Category),
			}, nil
		}
	}

	// Unreachable: the cascade ends in a catch-all.
	return Classification{Category: models.ChronicPainConservative, Rule: "default-conservative"}, nil
}

// categoryKeywords is the per-category vocabulary used for the affinity
// metadata and for retrieval keyword expansion.
var categoryKeywords = map[models.PolicyCategory][]string{
	models.ChronicPainConservative:    {"chronic pain", "conservative therapy", "physical therapy", "6 weeks", "trial"},
	models.ChronicPainWorsening:       {"worsening", "pain", "despite", "conservative"},
	models.AbnormalNeurologicFindings: {"weakness", "neurologic", "sensory", "reflex", "atrophy", "bowel", "bladder", "claudication", "deficit"},
	models.TumorMalignancy:            {"tumor", "cancer", "malignancy", "bone scan", "metastasis", "mass"},
	models.AcuteTraumaSpinal:          {"trauma", "fracture", "injury", "accident", "vertebral", "spinal fracture", "spinal injury"},
	models.NeurologicEmergency:        {"emergency", "acute neurologic", "paralysis", "paresis", "myelopathy", "diffuse", "axonal"},
}

// Keywords returns the retrieval vocabulary for a category.
func Keywords(category models.PolicyCategory) []string {
	return categoryKeywords[category]
}

func affinity(c models.ClinicalCase, category models.PolicyCategory) float64 {
	keywords := categoryKeywords[category]
	if len(keywords) == 0 {
		return 0
	}
	text := c.SearchText()
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}
