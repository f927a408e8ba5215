package decision

import (
	"strings"

	"github.com/claimsight-ai/platform/pkg/common/models"
)

// factOutcome is a structured-field resolution: the criterion state plus a
// short note on what was (or was not) found.
type factOutcome struct {
	state    string
	evidence string
}

// factResolvers maps checklist fact keys to pure resolvers over the case.
// A resolver returns unknown when the field it needs is undocumented; it
// never substitutes a guessed value.
var factResolvers = map[string]func(models.ClinicalCase) factOutcome{
	"chronic-pain-documented": func(c models.ClinicalCase) factOutcome {
		if len(c.DiagnosisCodes) == 0 && strings.TrimSpace(c.Narrative) == "" {
			return factOutcome{state: models.CriterionUnknown, evidence: "no diagnosis or narrative documented"}
		}
		text := strings.ToLower(strings.Join(c.DiagnosisCodes, " ") + " " + c.Narrative)
		if strings.Contains(text, "chronic") || strings.Contains(text, "pain") {
			return factOutcome{state: models.CriterionSatisfied, evidence: "chronic pain documented in diagnosis/narrative"}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no chronic pain documentation found"}
	},

	"conservative-therapy-6-weeks": func(c models.ClinicalCase) factOutcome {
		if c.Therapy == nil {
			return factOutcome{state: models.CriterionUnknown, evidence: "therapy history undocumented"}
		}
		if c.Therapy.Conservative && c.Therapy.DurationWeeks >= 6 {
			return factOutcome{state: models.CriterionSatisfied, evidence: "conservative therapy >= 6 weeks documented"}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "conservative therapy trial under 6 weeks"}
	},

	"stable-or-improving-trend": func(c models.ClinicalCase) factOutcome {
		switch c.SymptomTrend {
		case "":
			return factOutcome{state: models.CriterionUnknown, evidence: "symptom trend undocumented"}
		case models.TrendWorsening:
			return factOutcome{state: models.CriterionUnsatisfied, evidence: "symptoms worsening"}
		default:
			return factOutcome{state: models.CriterionSatisfied, evidence: "symptoms " + c.SymptomTrend}
		}
	},

	"worsening-trend": func(c models.ClinicalCase) factOutcome {
		switch c.SymptomTrend {
		case "":
			return factOutcome{state: models.CriterionUnknown, evidence: "symptom trend undocumented"}
		case models.TrendWorsening:
			return factOutcome{state: models.CriterionSatisfied, evidence: "worsening symptoms documented"}
		default:
			return factOutcome{state: models.CriterionUnsatisfied, evidence: "symptoms " + c.SymptomTrend}
		}
	},

	"symptom-duration-documented": func(c models.ClinicalCase) factOutcome {
		if c.SymptomDurationWeeks <= 0 {
			return factOutcome{state: models.CriterionUnknown, evidence: "symptom duration undocumented"}
		}
		return factOutcome{state: models.CriterionSatisfied, evidence: "symptom duration documented"}
	},

	"neuro-deficit-documented": func(c models.ClinicalCase) factOutcome {
		if c.HasRedFlag(models.FlagNeuroDeficit) {
			return factOutcome{state: models.CriterionSatisfied, evidence: "neurologic deficit flagged"}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no neurologic deficit flagged"}
	},

	"acute-trauma-documented": func(c models.ClinicalCase) factOutcome {
		if c.HasRedFlag(models.FlagTrauma) {
			return factOutcome{state: models.CriterionSatisfied, evidence: "acute trauma flagged"}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no trauma flagged"}
	},

	"malignancy-suspected": func(c models.ClinicalCase) factOutcome {
		if c.HasRedFlag(models.FlagMalignancySuspect) {
			return factOutcome{state: models.CriterionSatisfied, evidence: "malignancy suspicion flagged"}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no malignancy suspicion flagged"}
	},

	"spinal-imaging-indicated": func(c models.ClinicalCase) factOutcome {
		if c.ProcedureName == "" && c.ProcedureCode == "" {
			return factOutcome{state: models.CriterionUnknown, evidence: "procedure undocumented"}
		}
		text := strings.ToLower(c.ProcedureName + " " + c.ProcedureCode)
		for _, marker := range []string{"spine", "spinal", "lumbar", "cervical", "mri"} {
			if strings.Contains(text, marker) {
				return factOutcome{state: models.CriterionSatisfied, evidence: "spinal imaging procedure requested"}
			}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "requested procedure is not spinal imaging"}
	},

	"oncologic-workup-documented": func(c models.ClinicalCase) factOutcome {
		if strings.TrimSpace(c.Narrative) == "" {
			return factOutcome{state: models.CriterionUnknown, evidence: "clinical narrative undocumented"}
		}
		text := strings.ToLower(c.Narrative)
		for _, marker := range []string{"biopsy", "bone scan", "metastasis", "mass", "oncolog"} {
			if strings.Contains(text, marker) {
				return factOutcome{state: models.CriterionSatisfied, evidence: "oncologic workup referenced in narrative"}
			}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no oncologic workup referenced"}
	},

	"emergency-markers-documented": func(c models.ClinicalCase) factOutcome {
		if strings.TrimSpace(c.Narrative) == "" {
			return factOutcome{state: models.CriterionUnknown, evidence: "clinical narrative undocumented"}
		}
		text := strings.ToLower(c.Narrative)
		for _, marker := range []string{"paralysis", "paresis", "myelopathy", "cauda equina", "bowel", "bladder"} {
			if strings.Contains(text, marker) {
				return factOutcome{state: models.CriterionSatisfied, evidence: "emergency markers in narrative"}
			}
		}
		return factOutcome{state: models.CriterionUnsatisfied, evidence: "no emergency markers in narrative"}
	},
}
