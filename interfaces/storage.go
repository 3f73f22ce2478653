package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Document is the current content of a stored file together with its version token.
type Document struct {
	// Content is the raw (already transport-decoded) document bytes.
	Content []byte

	// SHA is the opaque version token of Content. It must be passed back
	// unchanged in WriteRequest.SHA to update the document.
	SHA string
}

// WriteRequest describes a conditional write of a whole document.
type WriteRequest struct {
	// Content is the full new document content.
	Content []byte

	// SHA is the version token captured at read time. An empty SHA selects the
	// create path: the write only succeeds if the document does not exist yet.
	SHA string

	// Message is recorded by backends that keep history (commit message).
	Message string
}

// IsCreate reports whether the request creates a new document.
func (r WriteRequest) IsCreate() bool {
	return r.SHA == ""
}

var (
	// ErrDocumentNotFound is returned by Read when the document does not exist yet.
	// It is the only read failure after which a caller may assume an empty document.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrBackendUnavailable is returned when a document store is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("document store unavailable")

	// ErrInvalidLocationURI is returned when a store location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid document store location URI")
)

// WriteRejectedError is returned by Write when the store answered but refused the
// write, e.g. because the version token is stale. Details holds the store's
// error body verbatim when it is JSON, or a JSON string otherwise.
type WriteRejectedError struct {
	Backend    string
	StatusCode int
	Details    json.RawMessage
}

// NewWriteRejectedError wraps a raw store response body. Non-JSON bodies are
// encoded as a JSON string so Details is always valid JSON.
func NewWriteRejectedError(backend string, statusCode int, body []byte) *WriteRejectedError {
	details := json.RawMessage(body)
	if len(body) == 0 || !json.Valid(body) {
		encoded, _ := json.Marshal(strings.TrimSpace(string(body)))
		details = encoded
	}
	return &WriteRejectedError{
		Backend:    backend,
		StatusCode: statusCode,
		Details:    details,
	}
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("%s rejected write: status %d: %s", e.Backend, e.StatusCode, string(e.Details))
}

// Conflict reports whether the rejection was caused by a concurrent modification.
func (e *WriteRejectedError) Conflict() bool {
	return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusUnprocessableEntity
}

// DocumentStore provides version-checked storage of a single document.
type DocumentStore interface {
	// Read returns the current document. It returns ErrDocumentNotFound if the
	// document does not exist and any other error for every other failure.
	Read(ctx context.Context) (*Document, error)

	// Write replaces the document if req.SHA still matches the stored version
	// (or creates it if req.SHA is empty and it does not exist). It returns the
	// new version, or a *WriteRejectedError if the store refused the write.
	Write(ctx context.Context, req WriteRequest) (*Document, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// DocumentStoreFactory creates document stores.
type DocumentStoreFactory interface {
	// DocumentStoreFor creates a store from URI.
	// Supports github://, file://, s3://, vault://, ipfs://
	DocumentStoreFor(location StoreLocation) (DocumentStore, error)

	// CreateMirroredStore creates a store that replicates writes of the primary to mirrors.
	CreateMirroredStore(primary StoreLocation, mirrors []StoreLocation) (DocumentStore, error)
}

// StoreLocation represents URI for a document store.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStoreLocation creates a new store location from a URI string with validation.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3", "ipfs", "github", "vault":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
