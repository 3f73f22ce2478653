package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/ruteri/registration-ledger/interfaces"
)

// InstrumentedStore records every Read and Write of the wrapped store.
type InstrumentedStore struct {
	interfaces.DocumentStore
	m *Metrics
}

// InstrumentStore wraps store. A nil m returns store unchanged.
func InstrumentStore(store interfaces.DocumentStore, m *Metrics) interfaces.DocumentStore {
	if m == nil {
		return store
	}
	return &InstrumentedStore{DocumentStore: store, m: m}
}

func (s *InstrumentedStore) Read(ctx context.Context) (*interfaces.Document, error) {
	start := time.Now()
	doc, err := s.DocumentStore.Read(ctx)
	s.m.ObserveStoreOperation(s.Name(), "read", classify(err), time.Since(start).Seconds())
	return doc, err
}

func (s *InstrumentedStore) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	start := time.Now()
	doc, err := s.DocumentStore.Write(ctx, req)
	s.m.ObserveStoreOperation(s.Name(), "write", classify(err), time.Since(start).Seconds())
	return doc, err
}

func classify(err error) string {
	if err == nil {
		return ResultOK
	}
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		return ResultNotFound
	}
	var rejected *interfaces.WriteRejectedError
	if errors.As(err, &rejected) {
		if rejected.Conflict() {
			return ResultConflict
		}
		return ResultRejected
	}
	return ResultError
}
