// Package githubtest provides an in-memory fake of the GitHub repository
// contents API for a single file, with the same sha-checked write semantics.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// PutRequest is a recorded PUT body.
type PutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

// Server serves GET and PUT on /repos/{Owner}/{Repo}/contents/{Path}.
type Server struct {
	*httptest.Server

	Owner string
	Repo  string
	Path  string
	Token string

	mu      sync.Mutex
	content []byte
	sha     string
	exists  bool
	gets    int
	puts    []PutRequest

	// GetStatus, when non-zero, is returned for every GET instead of the file.
	GetStatus int
	// PutStatus, when non-zero, is returned for every PUT without storing.
	PutStatus int
}

// NewServer starts a fake serving owner/repo/path and authorizing token.
func NewServer(owner, repo, path, token string) *Server {
	s := &Server{
		Owner: owner,
		Repo:  repo,
		Path:  path,
		Token: token,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// BlobSHA returns the git blob id of content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// SetContent replaces the stored file.
func (s *Server) SetContent(content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = append([]byte(nil), content...)
	s.sha = BlobSHA(content)
	s.exists = true
	return s.sha
}

// Content returns the stored file and whether it exists.
func (s *Server) Content() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.content...), s.exists
}

// SHA returns the current blob sha.
func (s *Server) SHA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sha
}

// Gets returns the number of GET requests served.
func (s *Server) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// Puts returns the recorded PUT bodies.
func (s *Server) Puts() []PutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PutRequest(nil), s.puts...)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.Header.Get("Authorization") != "token "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	repoPath := fmt.Sprintf("/repos/%s/%s", s.Owner, s.Repo)
	contentsPath := repoPath + "/contents/" + strings.Trim(s.Path, "/")

	switch {
	case r.URL.Path == repoPath && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"full_name": s.Owner + "/" + s.Repo})
	case r.URL.Path == contentsPath && r.Method == http.MethodGet:
		s.handleGet(w)
	case r.URL.Path == contentsPath && r.Method == http.MethodPut:
		s.handlePut(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
}

func (s *Server) handleGet(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++

	if s.GetStatus != 0 {
		writeJSON(w, s.GetStatus, map[string]string{"message": http.StatusText(s.GetStatus)})
		return
	}
	if !s.exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     "file",
		"path":     s.Path,
		"encoding": "base64",
		"content":  wrap(base64.StdEncoding.EncodeToString(s.content), 60),
		"sha":      s.sha,
		"size":     len(s.content),
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var req PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, req)

	if s.PutStatus != 0 {
		writeJSON(w, s.PutStatus, map[string]string{"message": http.StatusText(s.PutStatus)})
		return
	}

	if req.SHA == "" && s.exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"message":           "Invalid request.\n\n\"sha\" wasn't supplied.",
			"documentation_url": "https://docs.github.com/rest/repos/contents#create-or-update-file-contents",
		})
		return
	}
	if req.SHA != "" && req.SHA != s.sha {
		writeJSON(w, http.StatusConflict, map[string]string{
			"message":           fmt.Sprintf("%s does not match %s", s.Path, req.SHA),
			"documentation_url": "https://docs.github.com/rest/repos/contents#create-or-update-file-contents",
		})
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}

	status := http.StatusOK
	if !s.exists {
		status = http.StatusCreated
	}
	s.content = content
	s.sha = BlobSHA(content)
	s.exists = true

	writeJSON(w, status, map[string]interface{}{
		"content": map[string]interface{}{
			"type": "file",
			"path": s.Path,
			"sha":  s.sha,
			"size": len(content),
		},
		"commit": map[string]string{"message": req.Message},
	})
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
