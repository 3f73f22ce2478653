// Package client is a Go client for the registration ledger HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/registration-ledger/api"
	"github.com/ruteri/registration-ledger/registration"
)

// StatusError is returned when the server answered with a non-200 status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one registration ledger server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// selects a client with a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Register submits a registration form.
//
// Anticipated failures (duplicate transaction, store rejection) come back with
// a nil error and resp.Error set. Any other status is returned as a
// *StatusError together with the decoded body, if there was one.
func (c *Client) Register(ctx context.Context, sub registration.Submission) (*api.RegisterResponse, error) {
	form := url.Values{}
	form.Set(api.FieldStudentName, sub.StudentName)
	form.Set(api.FieldEmail, sub.Email)
	form.Set(api.FieldTransactionID, sub.TransactionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/register/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request registration: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read registration response: %w", err)
	}

	var regResp api.RegisterResponse
	if err := json.Unmarshal(body, &regResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("could not parse registration response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &regResp, &StatusError{StatusCode: resp.StatusCode, Message: regResp.Message}
	}

	return &regResp, nil
}

// Registrations returns the stored registrations in stored order.
func (c *Client) Registrations(ctx context.Context) (registration.List, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/registrations", nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request registrations: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read registrations response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.RegisterResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	var list registration.List
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("could not parse registrations response: %w", err)
	}
	return list, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request health: %w", err)
	}
	defer resp.Body.Close()

	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("could not parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		return &StatusError{StatusCode: resp.StatusCode, Message: health.Status}
	}
	return nil
}
