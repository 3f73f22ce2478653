package api

import (
	"encoding/json"
	"fmt"
)

// Form field names accepted by POST /register/.
const (
	FieldStudentName   = "student_name"
	FieldEmail         = "email"
	FieldTransactionID = "transaction_id"
)

// Messages returned in RegisterResponse.Message.
const (
	MessageDuplicate     = "Transaction already exists"
	MessageReadFailed    = "Failed to read registrations"
	MessageWriteFailed   = "Failed to write registrations"
	MessageInternalError = "Internal server error"
)

// RegisterResponse is the JSON body of every POST /register/ answer.
//
// Callers must treat Error, not the HTTP status, as the failure signal: a
// duplicate transaction and a store rejection are both answered with 200.
type RegisterResponse struct {
	// Success is set when the record was appended.
	Success bool `json:"success,omitempty"`

	// Error is set for every failure.
	Error bool `json:"error,omitempty"`

	Message string `json:"message,omitempty"`

	// Details is the document store's error body, verbatim, when it refused the write.
	Details json.RawMessage `json:"details,omitempty"`
}

// RegisteredMessage is the success message for a student.
func RegisteredMessage(studentName string) string {
	return fmt.Sprintf("Registered %s successfully", studentName)
}

// MissingFieldMessage is the message for a form lacking the named field.
func MissingFieldMessage(field string) string {
	return fmt.Sprintf("Missing required field: %s", field)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
