package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicated-log/internal/secondary"
)

func newSecondaryRouter(delay time.Duration) (*gin.Engine, *secondary.Storage) {
	gin.SetMode(gin.TestMode)
	store := secondary.NewStorage()
	r := gin.New()
	NewSecondaryHandler(store, delay, zerolog.Nop()).Register(r)
	return r, store
}

// TestInternalAppend verifies the replication endpoint stores entries and
// acknowledges them.
func TestInternalAppend(t *testing.T) {
	r, store := newSecondaryRouter(0)

	w := doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 1, "content": "hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	assert.Equal(t, []string{"hello"}, store.All())
}

// TestInternalAppendIdempotent verifies redelivery of the same id is a
// success that changes nothing.
func TestInternalAppendIdempotent(t *testing.T) {
	r, store := newSecondaryRouter(0)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 1, "content": "hello"}`)
		require.Equal(t, http.StatusOK, w.Code, "delivery %d must succeed", i+1)
	}

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"hello"}, store.All())
}

// TestInternalAppendValidation verifies ids below 1 are rejected.
func TestInternalAppendValidation(t *testing.T) {
	r, store := newSecondaryRouter(0)

	for _, body := range []string{
		`{"id": 0, "content": "x"}`,
		`{"id": -5, "content": "x"}`,
		`{"content": "x"}`,
		`garbage`,
	} {
		w := doJSON(t, r, http.MethodPost, "/internal/append", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Zero(t, store.Len())
}

// TestInternalAppendDelay verifies the artificial delay holds the request
// open before storing.
func TestInternalAppendDelay(t *testing.T) {
	const delay = 50 * time.Millisecond
	r, store := newSecondaryRouter(delay)

	start := time.Now()
	w := doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 1, "content": "slow"}`)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Equal(t, []string{"slow"}, store.All())
}

// TestSecondaryListMessages verifies the public read path applies the
// contiguous-prefix rule.
func TestSecondaryListMessages(t *testing.T) {
	r, _ := newSecondaryRouter(0)

	// id 2 first: nothing visible yet.
	doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 2, "content": "b"}`)

	w := doJSON(t, r, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []string `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Messages)

	// Gap fills: both become visible in order.
	doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 1, "content": "a"}`)

	w = doJSON(t, r, http.MethodGet, "/api/messages", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Messages)
}

// TestInternalHeartbeat verifies the liveness probe is a bare 200.
func TestInternalHeartbeat(t *testing.T) {
	r, _ := newSecondaryRouter(0)

	w := doJSON(t, r, http.MethodGet, "/internal/heartbeat", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestSecondaryHealth verifies the readiness probe.
func TestSecondaryHealth(t *testing.T) {
	r, _ := newSecondaryRouter(0)

	doJSON(t, r, http.MethodPost, "/internal/append", `{"id": 1, "content": "a"}`)

	w := doJSON(t, r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Stored int    `json:"stored"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Stored)
}
