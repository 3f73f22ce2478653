package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/registration-ledger/interfaces"
)

// DefaultCommitMessage is the commit message template; %s is the transaction id.
const DefaultCommitMessage = "chore: add registration %s"

var (
	// ErrStoreRead wraps every read failure other than a missing document.
	ErrStoreRead = errors.New("reading registrations failed")

	// ErrStoreWrite wraps write failures where the store did not answer,
	// as opposed to a *interfaces.WriteRejectedError.
	ErrStoreWrite = errors.New("writing registrations failed")
)

// Outcome is the anticipated result of a registration attempt.
type Outcome int

const (
	OutcomeRegistered Outcome = iota
	OutcomeDuplicate
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result describes what Register did.
type Result struct {
	Outcome Outcome

	// Record is the submitted record, or the already stored one for duplicates.
	Record Record

	// Version is the document version after a successful write.
	Version string

	// Count is the number of stored records after a successful write.
	Count int

	// Rejection carries the store's refusal when Outcome is OutcomeRejected.
	Rejection *interfaces.WriteRejectedError
}

// Config holds the rarely-changing settings of the registrar.
type Config struct {
	// CommitMessage is the commit message template. The first %s is replaced by
	// the transaction id; without one the id is appended. No other verbs are expanded.
	CommitMessage string
}

// Registrar appends registrations to the document held by a DocumentStore.
// It keeps no state between calls; every Register reads the document fresh.
type Registrar struct {
	store interfaces.DocumentStore
	cfg   Config
	log   *slog.Logger
}

// NewRegistrar creates a registrar on top of the given store.
func NewRegistrar(store interfaces.DocumentStore, cfg Config, log *slog.Logger) *Registrar {
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = DefaultCommitMessage
	}
	return &Registrar{
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

// Register performs one read-modify-write cycle:
//
//  1. read the document (a missing document is an empty list)
//  2. reject the submission if its transaction id is already stored
//  3. append the record at the tail
//  4. encode the list
//  5. write it back conditioned on the version read in step 1
//
// A rejected write is returned as OutcomeRejected and is not retried, so two
// concurrent registrations that read the same version leave the second one
// rejected by the store and the client has to resubmit.
func (r *Registrar) Register(ctx context.Context, sub Submission) (*Result, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	list, sha, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	if existing, found := list.Find(sub.TransactionID); found {
		r.log.Info("Duplicate transaction",
			slog.String("transactionID", sub.TransactionID))
		return &Result{Outcome: OutcomeDuplicate, Record: existing}, nil
	}

	record := sub.Record()
	list = list.Append(record)

	content, err := Encode(list)
	if err != nil {
		return nil, err
	}

	doc, err := r.store.Write(ctx, interfaces.WriteRequest{
		Content: content,
		SHA:     sha,
		Message: r.commitMessage(sub.TransactionID),
	})
	if err != nil {
		var rejected *interfaces.WriteRejectedError
		if errors.As(err, &rejected) {
			r.log.Warn("Store rejected registration write",
				slog.String("transactionID", sub.TransactionID),
				slog.Int("status", rejected.StatusCode),
				slog.Bool("conflict", rejected.Conflict()),
				slog.Bool("create", sha == ""))
			return &Result{Outcome: OutcomeRejected, Record: record, Rejection: rejected}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	r.log.Info("Registered",
		slog.String("transactionID", sub.TransactionID),
		slog.Int("count", len(list)),
		slog.String("version", doc.SHA))

	return &Result{
		Outcome: OutcomeRegistered,
		Record:  record,
		Version: doc.SHA,
		Count:   len(list),
	}, nil
}

// List returns the stored registrations without modifying them.
func (r *Registrar) List(ctx context.Context) (List, error) {
	list, _, err := r.load(ctx)
	return list, err
}

// load reads and decodes the document. Only ErrDocumentNotFound yields an
// empty list; every other read failure is returned wrapped in ErrStoreRead.
func (r *Registrar) load(ctx context.Context) (List, string, error) {
	doc, err := r.store.Read(ctx)
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		r.log.Debug("Registrations document does not exist yet",
			slog.String("store", r.store.Name()))
		return List{}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	list, err := Decode(doc.Content)
	if err != nil {
		return nil, "", err
	}
	return list, doc.SHA, nil
}

func (r *Registrar) commitMessage(transactionID string) string {
	if strings.Contains(r.cfg.CommitMessage, "%s") {
		return strings.Replace(r.cfg.CommitMessage, "%s", transactionID, 1)
	}
	return r.cfg.CommitMessage + " " + transactionID
}
