package storage

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/ruteri/registration-ledger/interfaces"
	"github.com/ruteri/registration-ledger/storage/githubtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, uri string) interfaces.StoreLocation {
	t.Helper()
	loc, err := interfaces.NewStoreLocation(uri)
	require.NoError(t, err)
	return loc
}

func TestDocumentStoreFactory_DocumentStoreFor(t *testing.T) {
	factory := NewDocumentStoreFactory(discardLogger(), FactoryOptions{GitHubToken: "tok", VaultToken: "vt"})
	dir := t.TempDir()

	tests := []struct {
		name     string
		uri      string
		wantType interface{}
		wantName string
		wantURI  string
	}{
		{
			name:     "github",
			uri:      "github://akashverma-ctrl/receiptify-data/registrations.yaml?branch=main",
			wantType: &GitHubBackend{},
			wantName: "github-akashverma-ctrl-receiptify-data",
			wantURI:  "github://akashverma-ctrl/receiptify-data/registrations.yaml?branch=main",
		},
		{
			name:     "github nested path",
			uri:      "github://o/r/data/2024/registrations.yaml",
			wantType: &GitHubBackend{},
			wantName: "github-o-r",
			wantURI:  "github://o/r/data/2024/registrations.yaml",
		},
		{
			name:     "file",
			uri:      "file://" + filepath.Join(dir, "registrations.yaml"),
			wantType: &FileBackend{},
			wantName: "file-registrations.yaml",
			wantURI:  "file://" + filepath.Join(dir, "registrations.yaml"),
		},
		{
			name:     "vault",
			uri:      "vault://127.0.0.1:8200/secret/registrations?tls=false",
			wantType: &VaultBackend{},
			wantName: "vault-secret-registrations",
			wantURI:  "vault://127.0.0.1:8200/secret/registrations",
		},
		{
			name:     "s3 with endpoint",
			uri:      "s3://AK:SK@ledger/registrations.yaml?region=eu-west-1&endpoint=http://localhost:9000",
			wantType: &S3Backend{},
			wantName: "s3-ledger",
			wantURI:  "s3://ledger/registrations.yaml?region=eu-west-1&endpoint=http://localhost:9000",
		},
		{
			name:     "ipfs",
			uri:      "ipfs://localhost/ledger/registrations.yaml?timeout=5s",
			wantType: &IPFSBackend{},
			wantName: "ipfs-localhost-5001",
			wantURI:  "ipfs://localhost:5001/ledger/registrations.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := factory.DocumentStoreFor(mustLocation(t, tt.uri))
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, store)
			assert.Equal(t, tt.wantName, store.Name())
			assert.Equal(t, tt.wantURI, store.LocationURI())
		})
	}
}

func TestDocumentStoreFactory_InvalidLocations(t *testing.T) {
	factory := NewDocumentStoreFactory(discardLogger(), FactoryOptions{})

	for _, uri := range []string{
		"github://owner-only",
		"github://o/r",
		"vault://127.0.0.1:8200/mount-only",
		"s3://bucket-only",
		"ipfs://localhost/ledger.yaml?timeout=soon",
		"ipfs://localhost/",
	} {
		t.Run(uri, func(t *testing.T) {
			_, err := factory.DocumentStoreFor(mustLocation(t, uri))
			assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
		})
	}

	_, err := interfaces.NewStoreLocation("ftp://example.com/file")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestDocumentStoreFactory_CreateMirroredStore(t *testing.T) {
	factory := NewDocumentStoreFactory(discardLogger(), FactoryOptions{})
	dir := t.TempDir()

	primary := mustLocation(t, "file://"+filepath.Join(dir, "primary.yaml"))

	store, err := factory.CreateMirroredStore(primary, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, store)

	store, err = factory.CreateMirroredStore(primary, []interfaces.StoreLocation{
		mustLocation(t, "file://"+filepath.Join(dir, "mirror.yaml")),
		mustLocation(t, "github://broken"),
	})
	require.NoError(t, err)
	require.IsType(t, &MirroredStore{}, store)
	assert.Len(t, store.(*MirroredStore).mirrors, 1)

	_, err = factory.CreateMirroredStore(mustLocation(t, "github://broken"), nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestDocumentStoreFactory_LocationParams(t *testing.T) {
	fake := githubtest.NewServer("o", "r", "registrations.yaml", "tok")
	t.Cleanup(fake.Close)
	fake.SetContent([]byte("[]\n"))

	factory := NewDocumentStoreFactory(discardLogger(), FactoryOptions{
		GitHubToken:  "tok",
		GitHubAPIURL: "http://127.0.0.1:1",
	})

	t.Run("github api param overrides the default API URL", func(t *testing.T) {
		store, err := factory.DocumentStoreFor(mustLocation(t, "github://o/r/registrations.yaml?branch=main&api="+url.QueryEscape(fake.URL)))
		require.NoError(t, err)

		doc, err := store.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte("[]\n"), doc.Content)
	})

	t.Run("vault tls", func(t *testing.T) {
		for uri, want := range map[string]string{
			"vault://vault.local:8200/secret/registrations":           "https://vault.local:8200",
			"vault://vault.local:8200/secret/registrations?tls=true":  "https://vault.local:8200",
			"vault://vault.local:8200/secret/registrations?tls=false": "http://vault.local:8200",
			"vault://vault.local:8200/secret/registrations?tls=0":     "http://vault.local:8200",
		} {
			store, err := factory.DocumentStoreFor(mustLocation(t, uri))
			require.NoError(t, err)
			require.IsType(t, &VaultBackend{}, store)
			assert.Equal(t, want, store.(*VaultBackend).client.Address(), uri)
		}
	})

	t.Run("ipfs host and default port", func(t *testing.T) {
		store, err := factory.DocumentStoreFor(mustLocation(t, "ipfs://node.local/ledger.yaml"))
		require.NoError(t, err)
		require.IsType(t, &IPFSBackend{}, store)
		assert.Equal(t, "node.local", store.(*IPFSBackend).host)
		assert.Equal(t, "5001", store.(*IPFSBackend).port)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := factory.DocumentStoreFor(interfaces.StoreLocation{Raw: "ftp://x/y", Scheme: "ftp"})
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
	})
}

func TestSplitAuth(t *testing.T) {
	user, password := splitAuth(url.UserPassword("AK", "s/k+1").String())
	assert.Equal(t, "AK", user)
	assert.Equal(t, "s/k+1", password)

	user, password = splitAuth("only-user")
	assert.Equal(t, "only-user", user)
	assert.Empty(t, password)
}
