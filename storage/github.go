package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/registration-ledger/interfaces"
)

// DefaultGitHubAPIURL is the public GitHub REST API endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubConfig locates a single file in a GitHub repository.
type GitHubConfig struct {
	// APIURL is the REST API base, e.g. https://github.example.com/api/v3 for
	// GitHub Enterprise. Defaults to DefaultGitHubAPIURL.
	APIURL string

	Owner  string
	Repo   string
	Path   string
	Branch string

	// Token authorizes both reads and writes.
	Token string

	// Timeout bounds each API call. Zero means 30 seconds.
	Timeout time.Duration
}

// GitHubBackend implements a document store on top of GitHub's repository
// contents API. The version token is the git blob SHA of the file, and GitHub
// itself refuses writes whose sha does not match the file on the branch.
type GitHubBackend struct {
	cfg         GitHubConfig
	client      *http.Client
	log         *slog.Logger
	contentsURL string
	locationURI string
}

// gitHubContent represents a file object from the contents API.
type gitHubContent struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

type gitHubPutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type gitHubPutResponse struct {
	Content gitHubContent `json:"content"`
}

// NewGitHubBackend creates a new GitHub contents backend.
func NewGitHubBackend(cfg GitHubConfig, log *slog.Logger) (*GitHubBackend, error) {
	if cfg.Owner == "" || cfg.Repo == "" || cfg.Path == "" {
		return nil, fmt.Errorf("%w: github owner, repo and path are required", interfaces.ErrInvalidLocationURI)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultGitHubAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	segments := strings.Split(strings.Trim(cfg.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	contentsURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimSuffix(cfg.APIURL, "/"),
		url.PathEscape(cfg.Owner),
		url.PathEscape(cfg.Repo),
		strings.Join(segments, "/"))

	locationURI := fmt.Sprintf("github://%s/%s/%s", cfg.Owner, cfg.Repo, strings.Trim(cfg.Path, "/"))
	if cfg.Branch != "" {
		locationURI += "?branch=" + url.QueryEscape(cfg.Branch)
	}

	return &GitHubBackend{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		log:         log,
		contentsURL: contentsURL,
		locationURI: locationURI,
	}, nil
}

// Read fetches the file and decodes its base64 payload.
// A 404 is reported as ErrDocumentNotFound; every other non-200 status is an error.
func (b *GitHubBackend) Read(ctx context.Context) (*interfaces.Document, error) {
	readURL := b.contentsURL
	if b.cfg.Branch != "" {
		readURL += "?ref=" + url.QueryEscape(b.cfg.Branch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		b.log.Debug("GitHub file not found", slog.String("url", readURL))
		return nil, interfaces.ErrDocumentNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var file gitHubContent
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}

	if file.Type != "" && file.Type != "file" {
		return nil, fmt.Errorf("GitHub path %s is a %s, not a file", b.cfg.Path, file.Type)
	}
	if file.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding: %q", file.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}

	b.log.Debug("Fetched document from GitHub",
		slog.String("sha", file.SHA),
		slog.Int("size", len(data)))

	return &interfaces.Document{Content: data, SHA: file.SHA}, nil
}

// Write commits the new content to the configured branch. The sha is only sent
// on the update path; GitHub answers 200 (updated) or 201 (created) on success.
func (b *GitHubBackend) Write(ctx context.Context, wr interfaces.WriteRequest) (*interfaces.Document, error) {
	payload, err := json.Marshal(gitHubPutRequest{
		Message: wr.Message,
		Content: base64.StdEncoding.EncodeToString(wr.Content),
		Branch:  b.cfg.Branch,
		SHA:     wr.SHA,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.contentsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	b.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, interfaces.NewWriteRejectedError(b.Name(), resp.StatusCode, body)
	}

	var put gitHubPutResponse
	if err := json.Unmarshal(body, &put); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}

	b.log.Debug("Committed document to GitHub",
		slog.String("sha", put.Content.SHA),
		slog.Bool("created", resp.StatusCode == http.StatusCreated))

	return &interfaces.Document{Content: wr.Content, SHA: put.Content.SHA}, nil
}

// Available checks if the repository is reachable with the configured token.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	repoURL := fmt.Sprintf("%s/repos/%s/%s",
		strings.TrimSuffix(b.cfg.APIURL, "/"),
		url.PathEscape(b.cfg.Owner),
		url.PathEscape(b.cfg.Repo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, repoURL, nil)
	if err != nil {
		b.log.Debug("Failed to create request", "err", err)
		return false
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable",
			slog.String("status", resp.Status))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.cfg.Owner, b.cfg.Repo)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

func (b *GitHubBackend) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+b.cfg.Token)
	}
}
