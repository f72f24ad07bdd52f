package emergency

import (
	"regexp"
	"strconv"

	"github.com/PREDICTif/medview/internal/models"
)

// Numeric thresholds in mg/dL. Readings strictly above HyperglycemiaThreshold
// or strictly below HypoglycemiaThreshold are emergency indicators.
const (
	HyperglycemiaThreshold = 400
	HypoglycemiaThreshold  = 40
)

// categoryRule is a single lexical co-occurrence rule: every pattern in the
// set must match for the rule to fire.
type categoryRule struct {
	patterns []*regexp.Regexp
}

func rule(patterns ...string) categoryRule {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return categoryRule{patterns: compiled}
}

func (r categoryRule) matches(question string) bool {
	for _, p := range r.patterns {
		if !p.MatchString(question) {
			return false
		}
	}
	return true
}

// diabetesContext matches wording that ties a symptom to diabetes or blood
// sugar. Co-occurrence rules pair a symptom pattern with this context.
const diabetesContext = `\b(diabet\w*|blood\s+sugar|glucose|insulin|sugar\s+level)\b`

// lexicalRules maps each category to its rule set. A category matches if any
// rule fires (OR across rules, AND within a rule's pattern set). The category
// set is closed; extend behavior by adding a category here, never by
// special-casing in the controller.
var lexicalRules = map[models.EmergencyCategory][]categoryRule{
	models.CategorySevereHypoglycemia: {
		rule(`\b(unconscious|passing\s+out|passed\s+out|fainted|fainting)\b`, diabetesContext),
	},
	models.CategoryKetoacidosisSymptoms: {
		rule(`\bfruity\b.{0,20}\b(breath|smell|odor)\b`),
		rule(`\b(vomiting|nausea)\b`, diabetesContext),
		rule(`\b(rapid|fast|labored)\s+breathing\b`, diabetesContext),
		rule(`\b(diabetic\s+ketoacidosis|dka|ketoacidosis)\b`),
	},
	models.CategoryCardiac: {
		rule(`\bchest\s+(pain|pressure|tightness)\b`, diabetesContext),
		rule(`\bheart\s+attack\b`, diabetesContext),
		rule(`\b(difficulty|trouble)\s+breathing\b`, diabetesContext),
	},
	models.CategorySevereConfusion: {
		rule(`\b(confused|confusion|disoriented|delirious)\b`, diabetesContext),
		rule(`\bcan'?t\s+(think|focus|concentrate)\b`, diabetesContext),
	},
}

// glucoseReadingPatterns extract numeric readings that appear near glucose
// wording, in either order ("blood sugar is 450", "450 blood sugar").
var glucoseReadingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:blood\s+sugar|glucose|sugar\s+level|sugar)\b\D{0,24}?(\d{1,4})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,4})\b\D{0,24}?\b(?:blood\s+sugar|glucose|sugar\s+level|sugar)\b`),
}

// parseGlucoseReadings returns every numeric reading embedded in the question
// that is adjacent to glucose wording.
func parseGlucoseReadings(question string) []int {
	var readings []int
	for _, pattern := range glucoseReadingPatterns {
		for _, match := range pattern.FindAllStringSubmatch(question, -1) {
			if v, err := strconv.Atoi(match[1]); err == nil {
				readings = append(readings, v)
			}
		}
	}
	return readings
}

// rationales holds the per-category explanation used to assemble the
// emergency advisory.
var rationales = map[models.EmergencyCategory]string{
	models.CategorySevereHyperglycemia:  "Blood sugar over 400 mg/dL can lead to diabetic ketoacidosis (DKA), a life-threatening condition.",
	models.CategorySevereHypoglycemia:   "Blood sugar under 40 mg/dL can cause seizures, loss of consciousness, or death.",
	models.CategoryKetoacidosisSymptoms: "Diabetic ketoacidosis is a medical emergency requiring immediate hospitalization.",
	models.CategoryCardiac:              "Diabetes increases heart attack risk; chest pain requires immediate evaluation.",
	models.CategorySevereConfusion:      "Severe confusion with diabetes may indicate dangerous blood sugar levels.",
}

// Rationale returns the explanation string for a category
func Rationale(category models.EmergencyCategory) string {
	return rationales[category]
}
