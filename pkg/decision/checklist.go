package decision

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/claimsight-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// weightEpsilon is the tolerance for the per-checklist weight-sum invariant.
const weightEpsilon = 1e-6

// Criterion is one weighted coverage condition. Exactly one of Fact or
// Keywords is set: Fact criteria resolve from structured case fields,
// Keywords criteria from retrieved policy text.
type Criterion struct {
	Name     string   `yaml:"name"`
	Weight   float64  `yaml:"weight"`
	Fact     string   `yaml:"fact,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// Checklist is a category's ordered criteria. Weights sum to 1.0 within the
// checklist; violations are rejected at load time, never at scoring time.
type Checklist struct {
	Category models.PolicyCategory `yaml:"category"`
	Criteria []Criterion           `yaml:"criteria"`
}

type ChecklistConfig struct {
	Checklists []Checklist `yaml:"checklists"`
}

// LoadChecklists reads checklist configuration from a YAML file, falling back
// to the compiled-in defaults when no path is given.
func LoadChecklists(path string) (map[models.PolicyCategory]Checklist, error) {
	if path == "" {
		return validateChecklists(DefaultChecklists())
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading checklist config: %w", err)
	}

	var cfg ChecklistConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing checklist config: %w", err)
	}
	if len(cfg.Checklists) == 0 {
		return nil, fmt.Errorf("no checklists configured in %s", path)
	}

	return validateChecklists(cfg)
}

func validateChecklists(cfg ChecklistConfig) (map[models.PolicyCategory]Checklist, error) {
	byCategory := make(map[models.PolicyCategory]Checklist, len(cfg.Checklists))

	for _, checklist := range cfg.Checklists {
		if _, dup := byCategory[checklist.Category]; dup {
			return nil, fmt.Errorf("duplicate checklist for category %s", checklist.Category)
		}
		if len(checklist.Criteria) == 0 {
			return nil, fmt.Errorf("checklist %s has no criteria", checklist.Category)
		}

		var sum float64
		for _, criterion := range checklist.Criteria {
			if strings.TrimSpace(criterion.Name) == "" {
				return nil, fmt.Errorf("checklist %s has an unnamed criterion", checklist.Category)
			}
			if criterion.Weight <= 0 {
				return nil, fmt.Errorf("criterion %s/%s has non-positive weight", checklist.Category, criterion.Name)
			}
			hasFact := criterion.Fact != ""
			hasKeywords := len(criterion.Keywords) > 0
			if hasFact == hasKeywords {
				return nil, fmt.Errorf("criterion %s/%s must set exactly one of fact or keywords", checklist.Category, criterion.Name)
			}
			if hasFact {
				if _, ok := factResolvers[criterion.Fact]; !ok {
					return nil, fmt.Errorf("criterion %s/%s references unknown fact %q", checklist.Category, criterion.Name, criterion.Fact)
				}
			}
			sum += criterion.Weight
		}

		if math.Abs(sum-1.0) > weightEpsilon {
			return nil, fmt.Errorf("checklist %s weights sum to %.6f, expected 1.0", checklist.Category, sum)
		}
		byCategory[checklist.Category] = checklist
	}

	for _, category := range models.AllCategories() {
		if _, ok := byCategory[category]; !ok {
			return nil, fmt.Errorf("no checklist configured for category %s", category)
		}
	}

	return byCategory, nil
}

// DefaultChecklists mirrors the coverage requirements of the lumbar imaging
// policy corpus.
func DefaultChecklists() ChecklistConfig {
	return ChecklistConfig{Checklists: []Checklist{
		{
			Category: models.ChronicPainConservative,
			Criteria: []Criterion{
				{Name: "chronic-pain-documented", Weight: 0.25, Fact: "chronic-pain-documented"},
				{Name: "conservative-therapy-6-weeks", Weight: 0.35, Fact: "conservative-therapy-6-weeks"},
				{Name: "stable-or-improving-trend", Weight: 0.25, Fact: "stable-or-improving-trend"},
				{Name: "conservative-coverage-evidence", Weight: 0.15, Keywords: []string{
					"conservative therapy", "physical therapy", "6 weeks", "chiropractic", "home exercise",
				}},
			},
		},
		{
			Category: models.ChronicPainWorsening,
			Criteria: []Criterion{
				{Name: "chronic-pain-documented", Weight: 0.20, Fact: "chronic-pain-documented"},
				{Name: "worsening-trend", Weight: 0.30, Fact: "worsening-trend"},
				{Name: "conservative-therapy-6-weeks", Weight: 0.30, Fact: "conservative-therapy-6-weeks"},
				{Name: "worsening-coverage-evidence", Weight: 0.20, Keywords: []string{
					"worsening", "despite", "conservative therapy", "failed",
				}},
			},
		},
		{
			Category: models.AbnormalNeurologicFindings,
			Criteria: []Criterion{
				{Name: "neuro-deficit-documented", Weight: 0.50, Fact: "neuro-deficit-documented"},
				{Name: "symptom-duration-documented", Weight: 0.20, Fact: "symptom-duration-documented"},
				{Name: "neurologic-coverage-evidence", Weight: 0.30, Keywords: []string{
					"weakness", "sensory", "reflex", "bowel", "bladder", "claudication", "atrophy",
				}},
			},
		},
		{
			Category: models.TumorMalignancy,
			Criteria: []Criterion{
				{Name: "malignancy-suspected", Weight: 0.55, Fact: "malignancy-suspected"},
				{Name: "oncologic-workup-documented", Weight: 0.25, Fact: "oncologic-workup-documented"},
				{Name: "tumor-coverage-evidence", Weight: 0.20, Keywords: []string{
					"malignancy", "tumor", "metastasis", "cancer", "bone scan",
				}},
			},
		},
		{
			Category: models.AcuteTraumaSpinal,
			Criteria: []Criterion{
				{Name: "acute-trauma-documented", Weight: 0.45, Fact: "acute-trauma-documented"},
				{Name: "neuro-deficit-documented", Weight: 0.35, Fact: "neuro-deficit-documented"},
				{Name: "spinal-imaging-indicated", Weight: 0.20, Fact: "spinal-imaging-indicated"},
			},
		},
		{
			Category: models.NeurologicEmergency,
			Criteria: []Criterion{
				{Name: "acute-neuro-deficit", Weight: 0.50, Fact: "neuro-deficit-documented"},
				{Name: "emergency-markers-documented", Weight: 0.30, Fact: "emergency-markers-documented"},
				{Name: "emergency-coverage-evidence", Weight: 0.20, Keywords: []string{
					"emergency", "myelopathy", "paralysis", "cauda equina", "spinal cord",
				}},
			},
		},
	}}
}
