package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/registration-ledger/interfaces"
)

// IPFSBackend implements a document store on a file in the IPFS mutable file
// system (MFS) of a node. The version token is the MFS node hash.
// Like S3, the hash check and the write are only serialized within this process.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	mfsPath     string
	mu          sync.Mutex
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS MFS backend connected to the node API at host:port.
func NewIPFSBackend(host, port, mfsPath string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	mfsPath = path.Clean("/" + strings.TrimPrefix(mfsPath, "/"))
	if mfsPath == "/" {
		return nil, fmt.Errorf("%w: ipfs MFS path is required", interfaces.ErrInvalidLocationURI)
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		mfsPath:     mfsPath,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiURL, mfsPath),
	}, nil
}

// Read returns the MFS file content and its hash.
func (b *IPFSBackend) Read(ctx context.Context) (*interfaces.Document, error) {
	start := time.Now()

	hash, err := b.stat(ctx)
	if err != nil {
		return nil, err
	}

	reader, err := b.shell.FilesRead(ctx, b.mfsPath)
	if err != nil {
		if isMFSNotFound(err) {
			return nil, interfaces.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched document from IPFS",
		slog.String("path", b.mfsPath),
		slog.String("hash", hash),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Document{Content: data, SHA: hash}, nil
}

// Write checks the current hash and rewrites the MFS file.
func (b *IPFSBackend) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.stat(ctx)
	switch {
	case errors.Is(err, interfaces.ErrDocumentNotFound):
		if !req.IsCreate() {
			return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
				[]byte(`{"message":"file does not exist"}`))
		}
	case err != nil:
		return nil, err
	case req.IsCreate():
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusUnprocessableEntity,
			[]byte(`{"message":"file already exists"}`))
	case current != req.SHA:
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
			[]byte(fmt.Sprintf(`{"message":"file is at %s"}`, current)))
	}

	err = b.shell.FilesWrite(ctx, b.mfsPath, bytes.NewReader(req.Content),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Truncate(true),
		shell.FilesWrite.Parents(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	hash, err := b.stat(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stat written file: %w", err)
	}

	b.log.Debug("Stored document in IPFS",
		slog.String("path", b.mfsPath),
		slog.String("hash", hash),
		slog.String("message", req.Message))

	return &interfaces.Document{Content: req.Content, SHA: hash}, nil
}

func (b *IPFSBackend) stat(ctx context.Context) (string, error) {
	st, err := b.shell.FilesStat(ctx, b.mfsPath)
	if err != nil {
		if isMFSNotFound(err) {
			return "", interfaces.ErrDocumentNotFound
		}
		return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return st.Hash, nil
}

func isMFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file does not exist") || strings.Contains(msg, "no link named")
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}
