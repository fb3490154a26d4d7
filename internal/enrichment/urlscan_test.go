package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/internal/config"
)

func testURLScanConfig(endpoint string) config.URLScanConfig {
	return config.URLScanConfig{
		APIKey:       "test-key",
		Endpoint:     endpoint,
		PollInterval: 5 * time.Millisecond,
		PollAttempts: 3,
		Timeout:      2 * time.Second,
	}
}

func TestLookupMissingKey(t *testing.T) {
	cfg := testURLScanConfig("https://urlscan.invalid")
	cfg.APIKey = ""
	c := NewURLScanClient(cfg, zap.NewNop())

	res := c.Lookup(context.Background(), "https://example.com")
	assert.Equal(t, "URLSCAN_API_KEY not configured", res["error"])
	assert.Equal(t, "urlscan", res["_source"])
}

func TestLookupSubmitAndPoll(t *testing.T) {
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("API-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com", body["url"])
		assert.Equal(t, "public", body["visibility"])

		fmt.Fprint(w, `{"uuid":"scan-uuid-1"}`)
	})
	mux.HandleFunc("GET /result/scan-uuid-1/", func(w http.ResponseWriter, r *http.Request) {
		// Not ready on the first poll, ready on the second.
		if atomic.AddInt32(&polls, 1) < 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"verdicts":{"overall":{"malicious":false}},"page":{"url":"https://example.com"}}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewURLScanClient(testURLScanConfig(srv.URL), zap.NewNop())
	res := c.Lookup(context.Background(), "https://example.com")

	assert.Equal(t, "urlscan", res["_source"])
	assert.NotContains(t, res, "error")
	assert.Contains(t, res, "verdicts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestLookupResultNeverReady(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"uuid":"scan-uuid-2"}`)
	})
	mux.HandleFunc("GET /result/scan-uuid-2/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewURLScanClient(testURLScanConfig(srv.URL), zap.NewNop())
	res := c.Lookup(context.Background(), "https://example.com")

	assert.Equal(t, "URLScan result not ready", res["error"])
	assert.Equal(t, "scan-uuid-2", res["uuid"])
}

func TestLookupSubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewURLScanClient(testURLScanConfig(srv.URL), zap.NewNop())
	res := c.Lookup(context.Background(), "https://example.com")

	require.Contains(t, res, "error")
	assert.Contains(t, res["error"], "401")
	assert.Equal(t, "urlscan", res["_source"])
}
