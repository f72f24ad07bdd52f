package models

import "fmt"

// EmergencyCategory identifies a class of medical emergency indicator.
// The set is closed: new behavior is added by adding a category with its own
// rule set, never by special-casing inside the pipeline controller.
type EmergencyCategory string

const (
	CategorySevereHyperglycemia  EmergencyCategory = "severe_hyperglycemia"
	CategorySevereHypoglycemia   EmergencyCategory = "severe_hypoglycemia"
	CategoryKetoacidosisSymptoms EmergencyCategory = "ketoacidosis_symptoms"
	CategoryCardiac              EmergencyCategory = "cardiac"
	CategorySevereConfusion      EmergencyCategory = "severe_confusion"
)

// EmergencySignal is the result of scanning a question for emergency
// indicators. Triggered is true iff at least one category matched.
type EmergencySignal struct {
	Triggered  bool                `json:"triggered"`
	Categories []EmergencyCategory `json:"categories,omitempty"`
	Advisory   string              `json:"advisory,omitempty"`
}

// Validate checks the signal's internal consistency: Triggered is true iff
// at least one category matched.
func (s EmergencySignal) Validate() error {
	if !s.Triggered && len(s.Categories) > 0 {
		return fmt.Errorf("emergency signal has %d categories but triggered=false", len(s.Categories))
	}
	if s.Triggered && len(s.Categories) == 0 {
		return fmt.Errorf("emergency signal triggered without categories")
	}
	return nil
}
