// Package crm is a minimal client for the remote CRM's REST API: contact
// lookup/creation, tagging, and workflow enrollment.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientOptions configures a Client. Zero values get sensible defaults.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client talks to the remote CRM over HTTP. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient builds a Client from opts.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://rest.gohighlevel.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

// Contact is the remote platform's view of a contact.
type Contact struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// CreateContactRequest carries the profile fields for a new remote contact.
type CreateContactRequest struct {
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	LocationID string   `json:"locationId,omitempty"`
	Source     string   `json:"source"`
	Tags       []string `json:"tags,omitempty"`
}

// ContactSource labels contacts created through this bridge.
const ContactSource = "zoom webhook"

// workflowTimeFormat is RFC3339 with an explicit numeric offset. The workflow
// endpoint rejects the "Z" suffix, so UTC must be spelled "+00:00".
const workflowTimeFormat = "2006-01-02T15:04:05-07:00"

// LookupContact searches for a contact by email. Returns ErrNotFound when the
// remote platform has no contact for that address.
func (c *Client) LookupContact(ctx context.Context, email string) (*Contact, error) {
	path := "/v1/contacts/lookup?email=" + url.QueryEscape(email)
	var out struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, "lookup contact", nil, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) == 0 {
		return nil, ErrNotFound
	}
	return &out.Contacts[0], nil
}

// CreateContact creates a remote contact. A 400 response carrying the id of an
// already-existing contact surfaces as *ConflictError so the caller can
// recover the id instead of failing.
func (c *Client) CreateContact(ctx context.Context, req CreateContactRequest) (*Contact, error) {
	var out struct {
		Contact Contact `json:"contact"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/contacts/", "create contact", req, &out); err != nil {
		return nil, err
	}
	return &out.Contact, nil
}

// AddTags applies tags to a contact. The remote side treats re-applying an
// existing tag name as a no-op.
func (c *Client) AddTags(ctx context.Context, contactID string, tags []string) error {
	body := struct {
		Tags []string `json:"tags"`
	}{Tags: tags}
	path := "/v1/contacts/" + url.PathEscape(contactID) + "/tags"
	return c.doJSON(ctx, http.MethodPost, path, "add tags", body, nil)
}

// AddToWorkflow enrolls a contact in a workflow with the given start time.
func (c *Client) AddToWorkflow(ctx context.Context, contactID, workflowID string, at time.Time) error {
	body := struct {
		EventStartTime string `json:"eventStartTime"`
	}{EventStartTime: at.UTC().Format(workflowTimeFormat)}
	path := "/v1/contacts/" + url.PathEscape(contactID) + "/workflow/" + url.PathEscape(workflowID)
	return c.doJSON(ctx, http.MethodPost, path, "add to workflow", body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, operation string, in, out any) error {
	var bodyBytes []byte
	if in != nil {
		var err error
		bodyBytes, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	endpoint := c.baseURL + path

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("crm: %s: %w", operation, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			return json.Unmarshal(respBody, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
				return waitErr
			}
			continue
		}

		return classifyError(operation, resp.StatusCode, respBody)
	}
}

// classifyError maps non-2xx responses onto the package's error taxonomy.
func classifyError(operation string, status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return &PermissionError{Operation: operation, Body: strings.TrimSpace(string(body))}
	case http.StatusBadRequest:
		if id := extractExistingContactID(body); id != "" {
			return &ConflictError{ContactID: id}
		}
	}
	return &APIError{Operation: operation, StatusCode: status, Body: strings.TrimSpace(string(body))}
}

// extractExistingContactID digs the existing contact id out of a duplicate
// rejection. The id shows up either at the top level or under "meta".
func extractExistingContactID(body []byte) string {
	var parsed struct {
		ContactID string `json:"contactId"`
		Meta      struct {
			ContactID string `json:"contactId"`
		} `json:"meta"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Meta.ContactID != "" {
		return parsed.Meta.ContactID
	}
	return parsed.ContactID
}

func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
