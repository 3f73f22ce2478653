package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/ruteri/registration-ledger/interfaces"
	"github.com/ruteri/registration-ledger/storage/githubtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(t *testing.T) (*githubtest.Server, *GitHubBackend) {
	t.Helper()

	fake := githubtest.NewServer("akashverma-ctrl", "receiptify-data", "registrations.yaml", "secret-token")
	t.Cleanup(fake.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := NewGitHubBackend(GitHubConfig{
		APIURL: fake.URL,
		Owner:  "akashverma-ctrl",
		Repo:   "receiptify-data",
		Path:   "registrations.yaml",
		Branch: "main",
		Token:  "secret-token",
	}, logger)
	require.NoError(t, err)

	return fake, backend
}

func TestGitHubBackend_ReadNotFound(t *testing.T) {
	_, backend := newTestGitHub(t)

	_, err := backend.Read(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrDocumentNotFound)
}

func TestGitHubBackend_ReadDecodesWrappedBase64(t *testing.T) {
	fake, backend := newTestGitHub(t)
	content := []byte("- student_name: A\n  email: a@x.com\n  transaction_id: T1\n- student_name: B\n  email: b@x.com\n  transaction_id: T2\n")
	sha := fake.SetContent(content)

	doc, err := backend.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, doc.Content)
	assert.Equal(t, sha, doc.SHA)
}

func TestGitHubBackend_ReadErrorIsNotNotFound(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusForbidden, http.StatusBadGateway} {
		fake, backend := newTestGitHub(t)
		fake.SetContent([]byte("[]\n"))
		fake.GetStatus = status

		_, err := backend.Read(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, interfaces.ErrDocumentNotFound, "status %d", status)
	}
}

func TestGitHubBackend_ReadBadCredentials(t *testing.T) {
	fake, _ := newTestGitHub(t)
	fake.SetContent([]byte("[]\n"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := NewGitHubBackend(GitHubConfig{
		APIURL: fake.URL,
		Owner:  fake.Owner,
		Repo:   fake.Repo,
		Path:   fake.Path,
		Token:  "wrong",
	}, logger)
	require.NoError(t, err)

	_, err = backend.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrDocumentNotFound)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestGitHubBackend_CreateOmitsSHA(t *testing.T) {
	fake, backend := newTestGitHub(t)
	content := []byte("- student_name: A\n  email: a@x.com\n  transaction_id: T1\n")

	doc, err := backend.Write(context.Background(), interfaces.WriteRequest{
		Content: content,
		Message: "chore: add registration T1",
	})
	require.NoError(t, err)
	assert.Equal(t, githubtest.BlobSHA(content), doc.SHA)
	assert.Equal(t, GitBlobSHA(content), doc.SHA)

	puts := fake.Puts()
	require.Len(t, puts, 1)
	assert.Empty(t, puts[0].SHA)
	assert.Equal(t, "main", puts[0].Branch)
	assert.Equal(t, "chore: add registration T1", puts[0].Message)
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), puts[0].Content)

	stored, exists := fake.Content()
	assert.True(t, exists)
	assert.Equal(t, content, stored)
}

func TestGitHubBackend_UpdateWithCurrentSHA(t *testing.T) {
	fake, backend := newTestGitHub(t)
	fake.SetContent([]byte("[]\n"))

	doc, err := backend.Read(context.Background())
	require.NoError(t, err)

	updated, err := backend.Write(context.Background(), interfaces.WriteRequest{
		Content: []byte("- student_name: A\n  email: a@x.com\n  transaction_id: T1\n"),
		SHA:     doc.SHA,
		Message: "chore: add registration T1",
	})
	require.NoError(t, err)
	assert.Equal(t, fake.SHA(), updated.SHA)
	assert.NotEqual(t, doc.SHA, updated.SHA)
}

func TestGitHubBackend_StaleSHAIsRejectedVerbatim(t *testing.T) {
	fake, backend := newTestGitHub(t)
	fake.SetContent([]byte("[]\n"))

	doc, err := backend.Read(context.Background())
	require.NoError(t, err)

	// Someone else commits in between.
	fake.SetContent([]byte("- student_name: Z\n  email: z@x.com\n  transaction_id: T0\n"))

	_, err = backend.Write(context.Background(), interfaces.WriteRequest{
		Content: []byte("- student_name: A\n  email: a@x.com\n  transaction_id: T1\n"),
		SHA:     doc.SHA,
	})

	var rejected *interfaces.WriteRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusConflict, rejected.StatusCode)
	assert.True(t, rejected.Conflict())

	var details map[string]string
	require.NoError(t, json.Unmarshal(rejected.Details, &details))
	assert.Contains(t, details["message"], "does not match")
	assert.Contains(t, details, "documentation_url")
	assert.Len(t, fake.Puts(), 1)
}

func TestGitHubBackend_CreateWhenFileExistsIsRejected(t *testing.T) {
	fake, backend := newTestGitHub(t)
	fake.SetContent([]byte("[]\n"))

	_, err := backend.Write(context.Background(), interfaces.WriteRequest{Content: []byte("[]\n")})

	var rejected *interfaces.WriteRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
}

func TestGitHubBackend_Available(t *testing.T) {
	fake, backend := newTestGitHub(t)
	assert.True(t, backend.Available(context.Background()))

	fake.Close()
	assert.False(t, backend.Available(context.Background()))
}

func TestGitHubBackend_Location(t *testing.T) {
	_, backend := newTestGitHub(t)
	assert.Equal(t, "github://akashverma-ctrl/receiptify-data/registrations.yaml?branch=main", backend.LocationURI())
	assert.Equal(t, "github-akashverma-ctrl-receiptify-data", backend.Name())
}

func TestNewGitHubBackend_RequiresCoordinates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewGitHubBackend(GitHubConfig{Owner: "o", Repo: "r"}, logger)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}
