package models

// WarningKind classifies a medication safety warning
type WarningKind string

const (
	WarningContraindication WarningKind = "contraindication"
	WarningInteraction      WarningKind = "interaction"
	WarningGeneralNote      WarningKind = "general_note"
)

// MedicationWarning is a single safety finding for one medication against the
// user's question. Warning lists are order-stable: medication input order
// first, then rule order within each medication.
type MedicationWarning struct {
	Medication  string      `json:"medication"`
	RelatedTerm string      `json:"related_term,omitempty"`
	Kind        WarningKind `json:"kind"`
	Message     string      `json:"message"`
}
