package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/types"
)

// Compile-time interface check
var _ Store = (*Client)(nil)

// requestTimeout bounds every remote call so a hung request cannot stall
// the triggering UI flow.
const requestTimeout = 30 * time.Second

// LookupRequest is the wire form of a content-key lookup. Description is a
// pointer so that null (absent) and "" (present but empty) survive the
// round trip as distinct values.
type LookupRequest struct {
	Amount       string  `json:"amount"`
	OccurredDate string  `json:"occurred_date"`
	Category     string  `json:"category"`
	Description  *string `json:"description"`
}

// LookupRequestFromKey builds the wire lookup for a content key.
func LookupRequestFromKey(key dedup.ContentKey) LookupRequest {
	req := LookupRequest{
		Amount:       key.Amount,
		OccurredDate: key.OccurredDate,
		Category:     key.Category,
	}
	if key.HasDescription {
		description := key.Description
		req.Description = &description
	}
	return req
}

// DocumentList is the wire form of document query responses.
type DocumentList struct {
	Documents []Document `json:"documents"`
}

// Client talks to the remote ledger service over HTTP with bearer
// authentication. Idempotent reads are retried with fibonacci backoff;
// appends are attempted once, because duplicate suppression at push and
// pull time already absorbs redelivery.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a remote ledger client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// FindByContentKey queries the remote collection for documents matching
// the content key. The server caps the result at two documents.
func (c *Client) FindByContentKey(ctx context.Context, key dedup.ContentKey) ([]Document, error) {
	path := fmt.Sprintf("/api/v1/users/%s/records/%s/lookup", key.OwnerID, key.Kind)

	var list DocumentList
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, LookupRequestFromKey(key), &list)
	})
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", key.Kind, err)
	}
	return list.Documents, nil
}

// Append stores a new document remotely. The returned document carries the
// server-assigned id and creation timestamp.
func (c *Client) Append(ctx context.Context, doc Document) (Document, error) {
	path := fmt.Sprintf("/api/v1/users/%s/records/%s", doc.OwnerID, doc.Kind)

	var created Document
	if err := c.doJSON(ctx, http.MethodPost, path, doc, &created); err != nil {
		return Document{}, fmt.Errorf("%s append: %w", doc.Kind, err)
	}
	return created, nil
}

// QueryCreatedAfter returns the owner's documents created strictly after
// sinceMillis, newest first.
func (c *Client) QueryCreatedAfter(ctx context.Context, ownerID string, kind types.RecordKind, sinceMillis int64) ([]Document, error) {
	path := fmt.Sprintf("/api/v1/users/%s/records/%s?created_after=%s",
		ownerID, kind, strconv.FormatInt(sinceMillis, 10))

	var list DocumentList
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &list)
	})
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", kind, err)
	}
	return list.Documents, nil
}

// withRetry runs fn with fibonacci backoff, retrying only failures marked
// retryable by doJSON.
func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, fn)
}

// doJSON sends an authenticated JSON request and decodes the response into
// out. Connectivity-class failures are wrapped in ErrUnavailable; server
// errors are additionally marked retryable.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network failure or timeout: retryable connectivity problem
		return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("%w: server returned %d", ErrUnavailable, resp.StatusCode))
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests:
		// Auth and quota failures are connectivity-class but not retryable
		// within one call.
		return fmt.Errorf("%w: server returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
}
