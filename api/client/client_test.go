package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ruteri/registration-ledger/httpserver"
	"github.com/ruteri/registration-ledger/registration"
	"github.com/ruteri/registration-ledger/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileBackend(filepath.Join(t.TempDir(), "registrations.yaml"), logger)
	require.NoError(t, err)

	registrar := registration.NewRegistrar(store, registration.Config{}, logger)
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{Log: logger}, httpserver.NewHandler(registrar, nil, logger), store, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL+"/", ts.Client())
}

func TestClient_RegisterAndList(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t)

	require.NoError(t, c.Health(ctx))

	list, err := c.Registrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	resp, err := c.Register(ctx, registration.Submission{StudentName: "A", Email: "a@x.com", TransactionID: "T1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Registered A successfully", resp.Message)

	resp, err = c.Register(ctx, registration.Submission{StudentName: "C", Email: "c@x.com", TransactionID: "T1"})
	require.NoError(t, err)
	assert.True(t, resp.Error)
	assert.Equal(t, "Transaction already exists", resp.Message)

	list, err = c.Registrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, registration.List{{StudentName: "A", Email: "a@x.com", TransactionID: "T1"}}, list)
}

func TestClient_MissingFieldIsStatusError(t *testing.T) {
	c := newTestServer(t)

	resp, err := c.Register(context.Background(), registration.Submission{StudentName: "A", TransactionID: "T1"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Equal(t, "Missing required field: email", statusErr.Message)
	require.NotNil(t, resp)
	assert.True(t, resp.Error)
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, nil)
	_, err := c.Register(context.Background(), registration.Submission{StudentName: "A", Email: "a@x.com", TransactionID: "T1"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "bad gateway", statusErr.Message)

	_, err = c.Registrations(context.Background())
	require.ErrorAs(t, err, &statusErr)

	assert.Error(t, c.Health(context.Background()))
}
