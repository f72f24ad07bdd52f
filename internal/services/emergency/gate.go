package emergency

import (
	"strings"

	"github.com/PREDICTif/medview/internal/models"
)

// Gate scans user questions for medical emergency indicators. It is a pure
// classifier over text: no I/O, no error path, safe for unsynchronized
// concurrent use. The rule set favors recall over precision: any single rule
// match trips the gate.
type Gate struct{}

// NewGate creates an emergency gate. The rule set is compiled once at package
// init and shared read-only.
func NewGate() *Gate {
	return &Gate{}
}

// scanOrder fixes the category order of the returned signal so identical
// questions always produce identical category lists.
var scanOrder = []models.EmergencyCategory{
	models.CategorySevereHyperglycemia,
	models.CategorySevereHypoglycemia,
	models.CategoryKetoacidosisSymptoms,
	models.CategoryCardiac,
	models.CategorySevereConfusion,
}

// Scan classifies the question against every emergency category.
// Triggered is true iff at least one category matched, and a triggered signal
// carries the assembled advisory text. Malformed input (empty or
// whitespace-only) returns an untriggered signal, not an error.
func (g *Gate) Scan(question string) models.EmergencySignal {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.EmergencySignal{}
	}

	var matched []models.EmergencyCategory
	for _, category := range scanOrder {
		if g.categoryMatches(category, question) {
			matched = append(matched, category)
		}
	}

	if len(matched) == 0 {
		return models.EmergencySignal{}
	}

	return models.EmergencySignal{
		Triggered:  true,
		Categories: matched,
		Advisory:   BuildAdvisory(matched),
	}
}

// categoryMatches evaluates one category: numeric-threshold rules for the
// glycemia categories, then the category's lexical rule set.
func (g *Gate) categoryMatches(category models.EmergencyCategory, question string) bool {
	switch category {
	case models.CategorySevereHyperglycemia:
		for _, reading := range parseGlucoseReadings(question) {
			if reading > HyperglycemiaThreshold {
				return true
			}
		}
	case models.CategorySevereHypoglycemia:
		for _, reading := range parseGlucoseReadings(question) {
			if reading > 0 && reading < HypoglycemiaThreshold {
				return true
			}
		}
	}

	for _, r := range lexicalRules[category] {
		if r.matches(question) {
			return true
		}
	}
	return false
}

// BuildAdvisory joins the category-specific rationale strings into the
// emergency advisory text. The gate itself has no side effects; callers emit
// this text in place of a synthesized answer.
func BuildAdvisory(categories []models.EmergencyCategory) string {
	var b strings.Builder

	b.WriteString("MEDICAL EMERGENCY INDICATORS DETECTED\n\n")
	b.WriteString("Based on your message, you may be experiencing a medical emergency related to diabetes.\n\n")
	b.WriteString("Immediate actions:\n")
	b.WriteString("1. Call 911 or your local emergency number immediately.\n")
	b.WriteString("2. If you have a glucagon kit (for low blood sugar), use it now.\n")
	b.WriteString("3. Do not drive yourself; wait for emergency services.\n")
	b.WriteString("4. Stay with someone if possible.\n")
	b.WriteString("5. Have your medications and medical information ready.\n\n")
	b.WriteString("Why this is urgent:\n")
	for _, category := range categories {
		b.WriteString("- ")
		b.WriteString(Rationale(category))
		b.WriteString("\n")
	}
	b.WriteString("\nThis assistant is not a substitute for professional medical care. ")
	b.WriteString("Please seek immediate medical attention.\n")
	b.WriteString("National Diabetes Emergency Hotline: 1-800-DIABETES (1-800-342-2383)")

	return b.String()
}
