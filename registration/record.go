package registration

import (
	"errors"
	"fmt"
)

// ErrInvalidSubmission is returned when a submission lacks a required field.
var ErrInvalidSubmission = errors.New("invalid submission")

// Record is one registration entry. Field order is the order in which the
// keys are written to the stored document.
type Record struct {
	StudentName   string `yaml:"student_name" json:"student_name"`
	Email         string `yaml:"email" json:"email"`
	TransactionID string `yaml:"transaction_id" json:"transaction_id"`
}

// Validate checks that all fields are present.
func (r Record) Validate() error {
	switch {
	case r.StudentName == "":
		return fmt.Errorf("%w: missing student_name", ErrInvalidSubmission)
	case r.Email == "":
		return fmt.Errorf("%w: missing email", ErrInvalidSubmission)
	case r.TransactionID == "":
		return fmt.Errorf("%w: missing transaction_id", ErrInvalidSubmission)
	}
	return nil
}

// Submission is an incoming registration request.
type Submission struct {
	StudentName   string
	Email         string
	TransactionID string
}

// Validate checks field presence only; email format is not enforced.
func (s Submission) Validate() error {
	return s.Record().Validate()
}

// Record converts the submission into the record that gets stored.
func (s Submission) Record() Record {
	return Record{
		StudentName:   s.StudentName,
		Email:         s.Email,
		TransactionID: s.TransactionID,
	}
}

// List is the ordered sequence of records; insertion order is registration order.
type List []Record

// Find returns the record with the given transaction id, scanning linearly.
func (l List) Find(transactionID string) (Record, bool) {
	for _, r := range l {
		if r.TransactionID == transactionID {
			return r, true
		}
	}
	return Record{}, false
}

// Append returns the list with r added at the tail.
func (l List) Append(r Record) List {
	return append(l, r)
}
