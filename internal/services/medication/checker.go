package medication

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/models"
)

// concernKeywords are the fixed triggers for a medication's general note
var concernKeywords = []string{"side effect", "problem", "concern"}

// Checker screens a patient's medication list against their question for
// contraindications and interactions. Checks are pure lookups against the
// static table: identical (medications, question) inputs always yield an
// identical, order-stable warning list.
type Checker struct {
	table  *Table
	logger arbor.ILogger
}

// NewChecker creates a medication safety checker over the given table
func NewChecker(table *Table, logger arbor.ILogger) *Checker {
	return &Checker{
		table:  table,
		logger: logger,
	}
}

// Check emits a warning for every contraindication or interaction term (or
// defined synonym) of the patient's medications that appears in the question
// text, plus a general note when the question voices a concern. Matching is
// case-insensitive substring matching.
//
// An empty medication list yields an empty result with no lookup performed.
// Warning order is medication input order, then rule order within each
// medication: contraindications, interactions, general note.
func (c *Checker) Check(medications []string, question string) []models.MedicationWarning {
	if len(medications) == 0 {
		return nil
	}

	questionLower := strings.ToLower(question)
	var warnings []models.MedicationWarning

	for _, medication := range medications {
		medLower := normalizeName(medication)

		for _, known := range c.table.Names() {
			if !strings.Contains(medLower, known) {
				continue
			}
			entry := c.table.Medications[known]

			for _, term := range entry.Contraindications {
				if matched, variant := c.termInQuestion(term, questionLower); matched {
					warnings = append(warnings, models.MedicationWarning{
						Medication:  medication,
						RelatedTerm: variant,
						Kind:        models.WarningContraindication,
						Message: fmt.Sprintf(
							"WARNING: %s may not be safe with %s. Please consult your doctor before making any changes to your medications.",
							medication, term),
					})
				}
			}

			for _, term := range entry.Interactions {
				if matched, variant := c.termInQuestion(term, questionLower); matched {
					warnings = append(warnings, models.MedicationWarning{
						Medication:  medication,
						RelatedTerm: variant,
						Kind:        models.WarningInteraction,
						Message: fmt.Sprintf(
							"INTERACTION ALERT: %s may interact with %s. Discuss this with your pharmacist or doctor.",
							medication, term),
					})
				}
			}

			if entry.Warning != "" && containsAny(questionLower, concernKeywords) {
				warnings = append(warnings, models.MedicationWarning{
					Medication: medication,
					Kind:       models.WarningGeneralNote,
					Message:    "Note: " + entry.Warning,
				})
			}
		}
	}

	if c.logger != nil && len(warnings) > 0 {
		c.logger.Debug().
			Int("medications", len(medications)).
			Int("warnings", len(warnings)).
			Msg("Medication safety check produced warnings")
	}

	return warnings
}

// termInQuestion reports whether the term or any defined synonym appears in
// the lowercased question, returning the variant that matched.
func (c *Checker) termInQuestion(term string, questionLower string) (bool, string) {
	for _, variant := range c.table.termVariants(term) {
		if strings.Contains(questionLower, strings.ToLower(variant)) {
			return true, variant
		}
	}
	return false, ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
