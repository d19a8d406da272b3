package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

// TestAppend verifies the request body and the decoded success response.
func TestAppend(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/messages", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])
		assert.Equal(t, float64(2), body["write_concern"])

		json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "message": "hello", "status": "success",
		})
	})

	resp, err := c.Append(context.Background(), "hello", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "success", resp.Status)
}

// TestAppendQuorumLost verifies a 503 maps to ErrQuorumLost.
func TestAppendQuorumLost(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"detail": "quorum lost"})
	})

	_, err := c.Append(context.Background(), "hello", 1)
	assert.ErrorIs(t, err, ErrQuorumLost)
	assert.Contains(t, err.Error(), "quorum lost")
}

// TestAppendWriteConcernUnmet verifies a 500 maps to ErrWriteConcernUnmet.
func TestAppendWriteConcernUnmet(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "write concern not satisfied"})
	})

	_, err := c.Append(context.Background(), "hello", 3)
	assert.ErrorIs(t, err, ErrWriteConcernUnmet)
}

// TestMessages verifies list decoding.
func TestMessages(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/messages", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"messages": []string{"a", "b"}})
	})

	msgs, err := c.Messages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, msgs)
}

// TestHealth verifies health decoding.
func TestHealth(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"master":      "Healthy",
			"secondaries": map[string]string{"s1:8001": "Unhealthy"},
			"quorum":      false,
		})
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Healthy", h.Master)
	assert.False(t, h.Quorum)
	assert.Equal(t, map[string]string{"s1:8001": "Unhealthy"}, h.Secondaries)
}
