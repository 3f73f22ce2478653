package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/ruteri/registration-ledger/interfaces"
)

// FileBackend implements a document store using a single local file.
// Version tokens are git blob SHAs of the content, the same values GitHub
// reports, so a file exported from the repository keeps its token.
type FileBackend struct {
	path        string
	mu          sync.Mutex
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file backend. The parent directory is created
// if needed; the file itself is only created by the first write.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// GitBlobSHA returns the git object id of content stored as a blob.
func GitBlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Read returns the file content. Returns ErrDocumentNotFound if the file doesn't exist.
func (b *FileBackend) Read(ctx context.Context) (*interfaces.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read()
}

func (b *FileBackend) read() (*interfaces.Document, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched document from file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return &interfaces.Document{Content: data, SHA: GitBlobSHA(data)}, nil
}

// Write replaces the file if the version token matches, using a temporary
// file and a rename so readers never observe a partial document.
func (b *FileBackend) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read()
	switch {
	case errors.Is(err, interfaces.ErrDocumentNotFound):
		if !req.IsCreate() {
			return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
				[]byte(fmt.Sprintf(`{"message":"%s does not exist"}`, filepath.Base(b.path))))
		}
	case err != nil:
		return nil, err
	case req.IsCreate():
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusUnprocessableEntity,
			[]byte(`{"message":"Invalid request. \"sha\" wasn't supplied."}`))
	case current.SHA != req.SHA:
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
			[]byte(fmt.Sprintf(`{"message":"%s does not match %s"}`, filepath.Base(b.path), req.SHA)))
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(req.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return nil, fmt.Errorf("failed to replace file: %w", err)
	}

	sha := GitBlobSHA(req.Content)
	b.log.Debug("Stored document in file",
		slog.String("path", b.path),
		slog.String("sha", sha),
		slog.String("message", req.Message))

	return &interfaces.Document{Content: req.Content, SHA: sha}, nil
}

// Available checks if the file backend is accessible by verifying the directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(b.path))
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.path))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
