// Package labelstore publishes and fetches document label tables on a shared
// key-value service, so documents rendered by different workers can link to
// each other.
package labelstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/rdhtml/internal/labels"
)

// KeyPrefix is prepended to every document key.
const KeyPrefix = "rdhtml/labels/"

// RetryableError is returned for responses worth retrying: 429 and 5xx.
type RetryableError struct {
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable (status %d): %v", e.StatusCode, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Client communicates with the label store HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Record is the stored value for one document.
type Record struct {
	Filename  string         `json:"filename"`
	Labels    []labels.Entry `json:"labels"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value  Record `json:"value"`
	Source string `json:"source,omitempty"`
}

// nodeResponse is the response from GET /kv/{key}.
type nodeResponse struct {
	Key   string `json:"key_path"`
	Value Record `json:"value"`
}

func key(filename string) string {
	return KeyPrefix + url.PathEscape(filename)
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Err: err}
	}
	return err
}

// Put publishes the label table of filename, replacing any earlier one.
func (c *Client) Put(ctx context.Context, filename string, entries []labels.Entry) error {
	body, err := json.Marshal(nodeRequest{
		Value: Record{
			Filename:  filename,
			Labels:    entries,
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Source: "rdhtml",
	})
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key(filename), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put labels: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put labels "+filename, resp)
	}
	return nil
}

// Get returns the label table of filename, or nil when none was published.
func (c *Client) Get(ctx context.Context, filename string) (*Record, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+key(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get labels: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get labels "+filename, resp)
	}

	var node nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	if node.Value.Filename == "" {
		node.Value.Filename = filename
	}
	return &node.Value, nil
}

// Prefetch loads the tables of filenames into a Map. Documents without a
// published table are left out; any other failure aborts.
func (c *Client) Prefetch(ctx context.Context, filenames []string) (labels.Map, error) {
	m := labels.Map{}
	for _, f := range filenames {
		rec, err := c.Get(ctx, f)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			m.Add(f, rec.Labels)
		}
	}
	return m, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
