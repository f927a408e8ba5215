package classifier

import (
	"errors"
	"testing"

	"github.com/claimsight-ai/platform/pkg/common/models"
)

func TestClassifyCascade(t *testing.T) {
	cases := []struct {
		name     string
		input    models.ClinicalCase
		category models.PolicyCategory
		rule     string
	}{
		{
			name: "malignancy outranks everything",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"C79.51"},
				RedFlags:       []string{models.FlagMalignancySuspect, models.FlagTrauma},
			},
			category: models.TumorMalignancy,
			rule:     "malignancy-suspected",
		},
		{
			name: "trauma with neuro deficit",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"S32.009A"},
				RedFlags:       []string{models.FlagTrauma, models.FlagNeuroDeficit},
			},
			category: models.AcuteTraumaSpinal,
			rule:     "trauma-with-neuro-deficit",
		},
		{
			name: "trauma alone",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"S32.009A"},
				RedFlags:       []string{models.FlagTrauma},
			},
			category: models.AcuteTraumaSpinal,
			rule:     "trauma",
		},
		{
			name: "acute onset neuro deficit",
			input: models.ClinicalCase{
				DiagnosisCodes:       []string{"G83.4"},
				RedFlags:             []string{models.FlagNeuroDeficit},
				SymptomDurationWeeks: 1,
			},
			category: models.NeurologicEmergency,
			rule:     "acute-onset-neuro-deficit",
		},
		{
			name: "longstanding neuro deficit",
			input: models.ClinicalCase{
				DiagnosisCodes:       []string{"M54.16"},
				RedFlags:             []string{models.FlagNeuroDeficit},
				SymptomDurationWeeks: 12,
			},
			category: models.AbnormalNeurologicFindings,
			rule:     "neuro-deficit",
		},
		{
			name: "neuro deficit with undocumented duration",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"M54.16"},
				RedFlags:       []string{models.FlagNeuroDeficit},
			},
			category: models.AbnormalNeurologicFindings,
			rule:     "neuro-deficit",
		},
		{
			name: "worsening trend",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"M54.5"},
				SymptomTrend:   models.TrendWorsening,
			},
			category: models.ChronicPainWorsening,
			rule:     "worsening-trend",
		},
		{
			name: "default conservative",
			input: models.ClinicalCase{
				DiagnosisCodes: []string{"M54.5"},
				SymptomTrend:   models.TrendStable,
			},
			category: models.ChronicPainConservative,
			rule:     "default-conservative",
		},
	}

	cl := New()
	for _, tc := range cases {
		got, err := cl.Classify(tc.input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got.Category != tc.category {
			t.Fatalf("%s: expected category %s, got %s", tc.name, tc.category, got.Category)
		}
		if got.Rule != tc.rule {
			t.Fatalf("%s: expected rule %s, got %s", tc.name, tc.rule, got.Rule)
		}
	}
}

func TestClassifyRequiresCodes(t *testing.T) {
	cl := New()
	_, err := cl.Classify(models.ClinicalCase{Narrative: "back pain"})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	cl := New()
	input := models.ClinicalCase{
		DiagnosisCodes: []string{"M54.5"},
		RedFlags:       []string{models.FlagTrauma, models.FlagNeuroDeficit},
		Narrative:      "fall from ladder with leg weakness",
	}

	first, err := cl.Classify(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := cl.Classify(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("classification drifted: %+v then %+v", first, again)
		}
	}
}

func TestAffinityCountsKeywordMatches(t *testing.T) {
	cl := New()
	got, err := cl.Classify(models.ClinicalCase{
		DiagnosisCodes: []string{"S32.009A"},
		RedFlags:       []string{models.FlagTrauma},
		Narrative:      "vertebral fracture after motor vehicle accident, spinal injury suspected",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Affinity <= 0 {
		t.Fatalf("expected positive affinity for matching narrative, got %f", got.Affinity)
	}

	plain, err := cl.Classify(models.ClinicalCase{DiagnosisCodes: []string{"M54.5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain.Affinity != 0 {
		t.Fatalf("expected zero affinity without matching text, got %f", plain.Affinity)
	}
}
