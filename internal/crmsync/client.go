package crmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"efficity_backend/platform/logger"

	"github.com/cenkalti/backoff/v4"
)

const (
	requestTimeout = 15 * time.Second
	maxElapsedTime = 2 * time.Minute
)

// Contact is the payload pushed to the external CRM. ExternalRef carries
// our lead ID so repeated pushes upsert instead of duplicating.
type Contact struct {
	ExternalRef string   `json:"externalRef"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	City        string   `json:"city,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Status      string   `json:"status,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type upsertResponse struct {
	ContactID string `json:"contactId"`
}

// Client talks to the external CRM's HTTP API. Transient failures (network,
// 5xx, 429) are retried with exponential backoff; other 4xx responses are
// treated as permanent.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a CRM API client.
func NewClient(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// UpsertContact pushes one contact and returns the CRM-side contact ID.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (string, error) {
	body, err := json.Marshal(contact)
	if err != nil {
		return "", fmt.Errorf("marshal contact: %w", err)
	}

	var contactID string
	operation := func() error {
		id, opErr := c.doUpsert(ctx, body)
		if opErr != nil {
			return opErr
		}
		contactID = id
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsedTime
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return contactID, nil
}

func (c *Client) doUpsert(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out upsertResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode upsert response: %w", err))
		}
		return out.ContactID, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("crm upsert: status %d", resp.StatusCode)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", backoff.Permanent(fmt.Errorf("crm upsert: status %d: %s", resp.StatusCode, snippet))
	}
}
