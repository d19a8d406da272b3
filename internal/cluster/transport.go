package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport is the unary RPC surface a secondary exposes to the primary.
// Both calls are synchronous request/response; AppendEntry is idempotent
// on the entry id, so the replicator may repeat it freely.
type Transport interface {
	AppendEntry(ctx context.Context, host string, id int64, content string) error
	Heartbeat(ctx context.Context, host string) error
}

// appendRequest is the wire format for replication messages.
type appendRequest struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type appendResponse struct {
	Success bool `json:"success"`
}

// HTTPTransport talks to secondaries over their /internal HTTP endpoints.
//
// One shared http.Client is enough: per-call deadlines come from the
// context, not from the client, so heartbeats and appends can carry
// different timeouts over the same connection pool.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport backed by a pooled HTTP client.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// AppendEntry sends one log entry to host and waits for its ACK.
// A non-2xx status or success=false in the body counts as failure.
func (t *HTTPTransport) AppendEntry(ctx context.Context, host string, id int64, content string) error {
	body, err := json.Marshal(appendRequest{ID: id, Content: content})
	if err != nil {
		return fmt.Errorf("marshal append request: %w", err)
	}

	url := fmt.Sprintf("http://%s/internal/append", host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("secondary %s returned HTTP %d", host, resp.StatusCode)
	}

	var ack appendResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode append response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("secondary %s rejected entry %d", host, id)
	}
	return nil
}

// Heartbeat probes host for liveness. Any 2xx response means alive.
func (t *HTTPTransport) Heartbeat(ctx context.Context, host string) error {
	url := fmt.Sprintf("http://%s/internal/heartbeat", host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("heartbeat to %s returned HTTP %d", host, resp.StatusCode)
	}
	return nil
}
