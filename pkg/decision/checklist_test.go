package decision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claimsight-ai/platform/pkg/common/models"
)

func TestDefaultChecklistsValidate(t *testing.T) {
	checklists, err := LoadChecklists("")
	if err != nil {
		t.Fatalf("default checklists failed validation: %v", err)
	}
	for _, category := range models.AllCategories() {
		if _, ok := checklists[category]; !ok {
			t.Fatalf("no checklist for category %s", category)
		}
	}
}

func TestLoadChecklistsMissingFile(t *testing.T) {
	if _, err := LoadChecklists(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadChecklistsRejectsEmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("checklists: []\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadChecklists(path); err == nil {
		t.Fatal("expected error for empty checklist config")
	}
}

func withCriterion(cfg ChecklistConfig, category models.PolicyCategory, mutate func(*Checklist)) ChecklistConfig {
	for i := range cfg.Checklists {
		if cfg.Checklists[i].Category == category {
			mutate(&cfg.Checklists[i])
		}
	}
	return cfg
}

func TestValidateRejectsBadWeightSum(t *testing.T) {
	cfg := withCriterion(DefaultChecklists(), models.TumorMalignancy, func(c *Checklist) {
		c.Criteria[0].Weight = 0.9
	})
	_, err := validateChecklists(cfg)
	if err == nil || !strings.Contains(err.Error(), "sum") {
		t.Fatalf("expected weight sum error, got %v", err)
	}
}

func TestValidateRejectsUnknownFact(t *testing.T) {
	cfg := withCriterion(DefaultChecklists(), models.TumorMalignancy, func(c *Checklist) {
		c.Criteria[0].Fact = "no-such-fact"
	})
	if _, err := validateChecklists(cfg); err == nil {
		t.Fatal("expected unknown fact error")
	}
}

func TestValidateRejectsFactAndKeywords(t *testing.T) {
	cfg := withCriterion(DefaultChecklists(), models.TumorMalignancy, func(c *Checklist) {
		c.Criteria[0].Keywords = []string{"tumor"}
	})
	if _, err := validateChecklists(cfg); err == nil {
		t.Fatal("expected error for criterion with both fact and keywords")
	}
}

func TestValidateRejectsNonPositiveWeight(t *testing.T) {
	cfg := withCriterion(DefaultChecklists(), models.TumorMalignancy, func(c *Checklist) {
		c.Criteria[0].Weight = 0
	})
	if _, err := validateChecklists(cfg); err == nil {
		t.Fatal("expected error for zero weight")
	}
}

func TestValidateRejectsMissingCategory(t *testing.T) {
	cfg := DefaultChecklists()
	var trimmed []Checklist
	for _, checklist := range cfg.Checklists {
		if checklist.Category == models.NeurologicEmergency {
			continue
		}
		trimmed = append(trimmed, checklist)
	}
	if _, err := validateChecklists(ChecklistConfig{Checklists: trimmed}); err == nil {
		t.Fatal("expected error for missing category")
	}
}

func TestValidateRejectsDuplicateCategory(t *testing.T) {
	cfg := DefaultChecklists()
	cfg.Checklists = append(cfg.Checklists, cfg.Checklists[0])
	if _, err := validateChecklists(cfg); err == nil {
		t.Fatal("expected error for duplicate category")
	}
}

func TestLoadChecklistsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checklists.yaml")
	content := `checklists:
  - category: chronic-pain-conservative
    criteria:
      - name: chronic-pain-documented
        weight: 0.5
        fact: chronic-pain-documented
      - name: coverage-evidence
        weight: 0.5
        keywords: ["conservative therapy"]
  - category: chronic-pain-worsening
    criteria:
      - name: worsening-trend
        weight: 1.0
        fact: worsening-trend
  - category: abnormal-neurologic-findings
    criteria:
      - name: neuro-deficit-documented
        weight: 1.0
        fact: neuro-deficit-documented
  - category: tumor-malignancy
    criteria:
      - name: malignancy-suspected
        weight: 1.0
        fact: malignancy-suspected
  - category: acute-trauma-spinal
    criteria:
      - name: acute-trauma-documented
        weight: 1.0
        fact: acute-trauma-documented
  - category: neurologic-emergency
    criteria:
      - name: emergency-markers-documented
        weight: 1.0
        fact: emergency-markers-documented
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	checklists, err := LoadChecklists(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := len(checklists[models.ChronicPainConservative].Criteria); got != 2 {
		t.Fatalf("expected 2 criteria, got %d", got)
	}
}
