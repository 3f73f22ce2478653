package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/registration-ledger/interfaces"
)

// FactoryOptions carries credentials that must not appear in location URIs.
type FactoryOptions struct {
	// GitHubToken authorizes github:// stores.
	GitHubToken string

	// GitHubAPIURL overrides the REST API base of github:// stores.
	GitHubAPIURL string

	// VaultToken authorizes vault:// stores.
	VaultToken string

	// Timeout bounds each remote call. Zero means 30 seconds.
	Timeout time.Duration
}

// DocumentStoreFactory creates document stores from URI strings and manages
// mirrored configurations.
type DocumentStoreFactory struct {
	log  *slog.Logger
	opts FactoryOptions
}

var _ interfaces.DocumentStoreFactory = (*DocumentStoreFactory)(nil)

// NewDocumentStoreFactory creates a new factory instance that can create document stores.
func NewDocumentStoreFactory(logger *slog.Logger, opts FactoryOptions) *DocumentStoreFactory {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &DocumentStoreFactory{
		log:  logger,
		opts: opts,
	}
}

// DocumentStoreFor creates a document store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - github:// - File in a GitHub repository via the contents API
//   - file:// - Local file
//   - vault:// - HashiCorp Vault KV v2 secret
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - File in the mutable file system of an IPFS node
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *DocumentStoreFactory) DocumentStoreFor(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	switch location.Scheme {
	case "github":
		return sf.createGitHubBackend(location)
	case "file":
		return sf.createFileBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMirroredStore creates the primary store and wraps it with mirrors.
// Mirrors that cannot be created are skipped with a warning; the primary must succeed.
func (sf *DocumentStoreFactory) CreateMirroredStore(primary interfaces.StoreLocation, mirrors []interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	primaryStore, err := sf.DocumentStoreFor(primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary store: %w", err)
	}

	if len(mirrors) == 0 {
		return primaryStore, nil
	}

	mirrorStores := make([]interfaces.DocumentStore, 0, len(mirrors))
	for _, location := range mirrors {
		store, err := sf.DocumentStoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create mirror store",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		mirrorStores = append(mirrorStores, store)
	}

	return NewMirroredStore(primaryStore, mirrorStores, sf.log), nil
}

// createGitHubBackend creates a GitHub contents backend.
// URI format: github://owner/repo/path/to/file.yaml?branch=main&api=https://ghe.local/api/v3
func (sf *DocumentStoreFactory) createGitHubBackend(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	sf.log.Debug("Creating GitHub backend", slog.String("uri", location.String()))

	parts := strings.SplitN(strings.TrimPrefix(location.Path, "/"), "/", 2)
	if location.Host == "" || len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected github://owner/repo/path", interfaces.ErrInvalidLocationURI)
	}

	apiURL := location.GetParam("api")
	if apiURL == "" {
		apiURL = sf.opts.GitHubAPIURL
	}

	backend, err := NewGitHubBackend(GitHubConfig{
		APIURL:  apiURL,
		Owner:   location.Host,
		Repo:    parts[0],
		Path:    parts[1],
		Branch:  location.GetParam("branch"),
		Token:   sf.opts.GitHubToken,
		Timeout: sf.opts.Timeout,
	}, sf.log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// createFileBackend creates a local file backend.
// URI format: file:///absolute/path.yaml or file://./relative/path.yaml
func (sf *DocumentStoreFactory) createFileBackend(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" || strings.HasSuffix(path, "/") {
		return nil, fmt.Errorf("%w: file URI must name a file: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	backend, err := NewFileBackend(path, sf.log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://host:8200/mount/path/to/secret?tls=false
// The first path segment is the KV mount, the rest is the secret path.
func (sf *DocumentStoreFactory) createVaultBackend(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	sf.log.Debug("Creating Vault backend", slog.String("uri", location.String()))

	parts := strings.SplitN(strings.TrimPrefix(location.Path, "/"), "/", 2)
	if location.Host == "" || len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParam("tls") != "" && !location.GetParamBool("tls") {
		scheme = "http"
	}

	backend, err := NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), sf.opts.VaultToken, parts[0], parts[1], sf.log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// createS3Backend creates an S3 or S3-compatible backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/key.yaml?region=us-west-2&endpoint=custom.s3.com
func (sf *DocumentStoreFactory) createS3Backend(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	sf.log.Debug("Creating S3 backend",
		slog.String("bucket", location.Host),
		slog.String("key", location.Path))

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey = splitAuth(location.Auth)
		sf.log.Debug("Using embedded S3 credentials")
	}

	backend, err := NewS3Backend(location.Host, location.Path, region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// createIPFSBackend creates an IPFS MFS backend.
// URI format: ipfs://host:port/path/in/mfs.yaml?timeout=30s
func (sf *DocumentStoreFactory) createIPFSBackend(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	hostPort := &url.URL{Host: location.Host}
	port := hostPort.Port()
	if port == "" {
		port = "5001"
	}

	timeout := sf.opts.Timeout
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	backend, err := NewIPFSBackend(hostPort.Hostname(), port, location.Path, timeout, sf.log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// splitAuth splits escaped userinfo ("user:password") into its parts.
func splitAuth(auth string) (string, string) {
	user, password, _ := strings.Cut(auth, ":")
	if unescaped, err := url.PathUnescape(user); err == nil {
		user = unescaped
	}
	if unescaped, err := url.PathUnescape(password); err == nil {
		password = unescaped
	}
	return user, password
}
