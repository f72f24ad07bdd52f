package common

import (
	"github.com/google/uuid"
)

// NewRequestID generates a unique pipeline request ID with the "req_" prefix
// Format: req_<uuid>
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewAuditRecordID generates a unique audit record ID with the "aud_" prefix
func NewAuditRecordID() string {
	return "aud_" + uuid.New().String()
}
