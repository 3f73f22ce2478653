package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/registration-ledger/interfaces"
	"golang.org/x/sync/errgroup"
)

// maxMirrorWrites bounds the number of concurrent mirror writes.
const maxMirrorWrites = 4

// MirroredStore implements interfaces.DocumentStore on a primary store and
// replicates every successful write to a set of mirrors.
//
// The primary is the only source of truth: reads never touch the mirrors and
// a mirror failure never fails a write.
type MirroredStore struct {
	primary interfaces.DocumentStore
	mirrors []interfaces.DocumentStore
	log     *slog.Logger
}

// NewMirroredStore creates a new mirrored store.
func NewMirroredStore(primary interfaces.DocumentStore, mirrors []interfaces.DocumentStore, logger *slog.Logger) *MirroredStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MirroredStore{
		primary: primary,
		mirrors: mirrors,
		log:     logger,
	}
}

// Read reads from the primary store.
func (m *MirroredStore) Read(ctx context.Context) (*interfaces.Document, error) {
	return m.primary.Read(ctx)
}

// Write writes to the primary store, then copies the content to all mirrors.
func (m *MirroredStore) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	doc, err := m.primary.Write(ctx, req)
	if err != nil {
		return nil, err
	}

	m.replicate(ctx, req)
	return doc, nil
}

func (m *MirroredStore) replicate(ctx context.Context, req interfaces.WriteRequest) {
	if len(m.mirrors) == 0 {
		return
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(maxMirrorWrites)

	for _, mirror := range m.mirrors {
		g.Go(func() error {
			if err := m.replicateTo(ctx, mirror, req); err != nil {
				m.log.Warn("Failed to replicate to mirror",
					slog.String("backend_name", mirror.Name()),
					"err", err)
				return fmt.Errorf("%s: %w", mirror.Name(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.log.Warn("Mirror replication incomplete",
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return
	}

	m.log.Debug("Replicated document to mirrors",
		slog.Int("mirrors", len(m.mirrors)),
		slog.Duration("duration", time.Since(start)))
}

// replicateTo overwrites the mirror with the primary's content, whatever its
// current version is.
func (m *MirroredStore) replicateTo(ctx context.Context, mirror interfaces.DocumentStore, req interfaces.WriteRequest) error {
	if !mirror.Available(ctx) {
		return interfaces.ErrBackendUnavailable
	}

	var sha string
	current, err := mirror.Read(ctx)
	switch {
	case errors.Is(err, interfaces.ErrDocumentNotFound):
	case err != nil:
		return err
	default:
		sha = current.SHA
	}

	_, err = mirror.Write(ctx, interfaces.WriteRequest{
		Content: req.Content,
		SHA:     sha,
		Message: req.Message,
	})
	return err
}

// Available reports the availability of the primary store.
func (m *MirroredStore) Available(ctx context.Context) bool {
	return m.primary.Available(ctx)
}

// Name returns the name of this backend
func (m *MirroredStore) Name() string {
	return m.primary.Name()
}

// LocationURI returns the URI of this backend
func (m *MirroredStore) LocationURI() string {
	locations := []string{m.primary.LocationURI()}
	for _, mirror := range m.mirrors {
		locations = append(locations, mirror.LocationURI())
	}

	return "mirror:[" + strings.Join(locations, ",") + "]"
}
