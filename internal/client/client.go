// Package client is a small Go SDK for the primary's HTTP API, used by the
// logcli binary and by tests. It hides the HTTP and JSON plumbing behind
// typed calls; all distributed logic stays on the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrQuorumLost is returned when the primary refuses writes for lack of a
// healthy majority (HTTP 503).
var ErrQuorumLost = errors.New("cluster quorum lost")

// ErrWriteConcernUnmet is returned when the primary stored the message but
// could not gather enough replica ACKs (HTTP 500 from the append route).
var ErrWriteConcernUnmet = errors.New("write concern not satisfied")

// Client talks to one primary node.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL (e.g. "http://localhost:8000").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AppendResponse is returned by a successful append.
type AppendResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HealthResponse mirrors GET /api/health.
type HealthResponse struct {
	Master      string            `json:"master"`
	Secondaries map[string]string `json:"secondaries"`
	Quorum      bool              `json:"quorum"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// Append submits a message with the given write concern.
func (c *Client) Append(ctx context.Context, message string, writeConcern int) (*AppendResponse, error) {
	body, _ := json.Marshal(map[string]any{
		"message":       message,
		"write_concern": writeConcern,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", ErrQuorumLost, readDetail(resp))
	case http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s", ErrWriteConcernUnmet, readDetail(resp))
	default:
		return nil, fmt.Errorf("append returned HTTP %d: %s", resp.StatusCode, readDetail(resp))
	}

	var out AppendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode append response: %w", err)
	}
	return &out, nil
}

// Messages lists the node's visible log in id order. It works against both
// primaries and secondaries, which share the read route.
func (c *Client) Messages(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/messages", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list returned HTTP %d: %s", resp.StatusCode, readDetail(resp))
	}

	var out struct {
		Messages []string `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}
	return out.Messages, nil
}

// Health fetches the primary's cluster health report.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &out, nil
}

// readDetail extracts whichever error field the server used.
func readDetail(resp *http.Response) string {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "no detail"
	}
	if body.Detail != "" {
		return body.Detail
	}
	if body.Error != "" {
		return body.Error
	}
	return "no detail"
}
