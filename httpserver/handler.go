package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/registration-ledger/api"
	"github.com/ruteri/registration-ledger/metrics"
	"github.com/ruteri/registration-ledger/registration"
)

// maxBodySize is the maximum allowed request body size (64KB).
const maxBodySize = 64 * 1024

// Registrar is the registration logic the handler delegates to.
type Registrar interface {
	Register(ctx context.Context, sub registration.Submission) (*registration.Result, error)
	List(ctx context.Context) (registration.List, error)
}

// Handler processes HTTP requests of the registration ledger.
type Handler struct {
	registrar Registrar
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewHandler creates a new HTTP request handler. m may be nil.
func NewHandler(registrar Registrar, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{
		registrar: registrar,
		metrics:   m,
		log:       log,
	}
}

// HandleHealthz reports that the process is up. It does not touch the store.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// HandleRegister appends a registration to the ledger.
//
// URL format: POST /register/
// Request body: form with student_name, email and transaction_id
//
// Registered, duplicate and store-rejected outcomes are all answered with 200
// and an api.RegisterResponse; clients check its error flag.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sub, missing, err := parseSubmission(w, r)
	if err != nil {
		h.log.Debug("Failed to parse registration form", "err", err)
		writeJSON(w, http.StatusBadRequest, api.RegisterResponse{Error: true, Message: "Invalid form body"})
		return
	}
	if missing != "" {
		writeJSON(w, http.StatusUnprocessableEntity, api.RegisterResponse{
			Error:   true,
			Message: api.MissingFieldMessage(missing),
		})
		return
	}

	result, err := h.registrar.Register(r.Context(), sub)
	h.metrics.ObserveRegisterLatency(time.Since(start).Seconds())
	if err != nil {
		h.metrics.IncrementRegistrations("error")
		status, message := statusForError(err)
		h.log.Error("Registration failed",
			"err", err,
			slog.String("transactionID", sub.TransactionID),
			slog.Int("status", status))
		writeJSON(w, status, api.RegisterResponse{Error: true, Message: message})
		return
	}

	h.metrics.IncrementRegistrations(result.Outcome.String())

	switch result.Outcome {
	case registration.OutcomeRegistered:
		h.metrics.SetStoredRecords(result.Count)
		writeJSON(w, http.StatusOK, api.RegisterResponse{
			Success: true,
			Message: api.RegisteredMessage(sub.StudentName),
		})
	case registration.OutcomeDuplicate:
		writeJSON(w, http.StatusOK, api.RegisterResponse{
			Error:   true,
			Message: api.MessageDuplicate,
		})
	case registration.OutcomeRejected:
		writeJSON(w, http.StatusOK, api.RegisterResponse{
			Error:   true,
			Details: result.Rejection.Details,
		})
	default:
		h.log.Error("Unknown registration outcome", slog.String("outcome", result.Outcome.String()))
		writeJSON(w, http.StatusInternalServerError, api.RegisterResponse{Error: true, Message: api.MessageInternalError})
	}
}

// HandleRegistrations lists the stored registrations in stored order.
//
// URL format: GET /registrations
func (h *Handler) HandleRegistrations(w http.ResponseWriter, r *http.Request) {
	list, err := h.registrar.List(r.Context())
	if err != nil {
		status, message := statusForError(err)
		h.log.Error("Listing registrations failed", "err", err)
		writeJSON(w, status, api.RegisterResponse{Error: true, Message: message})
		return
	}
	if list == nil {
		list = registration.List{}
	}
	writeJSON(w, http.StatusOK, list)
}

// parseSubmission reads the form and returns the name of the first missing
// field, if any. Empty values count as missing.
func parseSubmission(w http.ResponseWriter, r *http.Request) (registration.Submission, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxBodySize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return registration.Submission{}, "", err
	}

	sub := registration.Submission{
		StudentName:   r.PostFormValue(api.FieldStudentName),
		Email:         r.PostFormValue(api.FieldEmail),
		TransactionID: r.PostFormValue(api.FieldTransactionID),
	}

	switch {
	case sub.StudentName == "":
		return sub, api.FieldStudentName, nil
	case sub.Email == "":
		return sub, api.FieldEmail, nil
	case sub.TransactionID == "":
		return sub, api.FieldTransactionID, nil
	}
	return sub, "", nil
}

// statusForError maps unanticipated registrar failures to an HTTP status.
// Schema and encode faults fall through to 500.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, registration.ErrInvalidSubmission):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, registration.ErrStoreRead):
		return http.StatusBadGateway, api.MessageReadFailed
	case errors.Is(err, registration.ErrStoreWrite):
		return http.StatusBadGateway, api.MessageWriteFailed
	default:
		return http.StatusInternalServerError, api.MessageInternalError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("Failed to encode response", "err", err)
	}
}
