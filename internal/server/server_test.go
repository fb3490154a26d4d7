package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
	"github.com/vulnsight/vulnsight/internal/coordinator"
)

// -- Stub collaborators --

type stubSource struct{ ids []string }

func (s *stubSource) Resolve(id string) (schemas.Capability, error) {
	return schemas.TargetProbe(func(string) schemas.RawResult { return nil }), nil
}

func (s *stubSource) IDs() []string { return append([]string(nil), s.ids...) }

type stubDispatcher struct {
	results map[string]schemas.RawResult
}

func (s *stubDispatcher) DispatchAll(ctx context.Context, ids []string, target string) map[string]schemas.RawResult {
	out := make(map[string]schemas.RawResult, len(ids))
	for _, id := range ids {
		out[id] = s.results[id]
	}
	return out
}

type stubStore struct {
	scans []schemas.ScanSummary
	err   error
}

func (s *stubStore) SaveScan(ctx context.Context, rec schemas.ScanRecord) error { return nil }

func (s *stubStore) RecentScans(ctx context.Context, userID int64, limit int) ([]schemas.ScanSummary, error) {
	return s.scans, s.err
}

func newTestServer(t *testing.T, store schemas.ScanStore) *Server {
	t.Helper()
	source := &stubSource{ids: []string{"http_headers"}}
	dispatcher := &stubDispatcher{results: map[string]schemas.RawResult{
		"http_headers": {"name": "HTTP Security Headers", "severity": "HIGH", "description": "Grade F."},
	}}
	coord, err := coordinator.New(zap.NewNop(), source, dispatcher)
	require.NoError(t, err)
	return New(config.ServerConfig{Listen: ":0"}, zap.NewNop(), coord, store, nil)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(newTestServer(t, nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHome(t *testing.T) {
	rec := doRequest(newTestServer(t, nil), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "VulnSight")
}

func TestHandleScan(t *testing.T) {
	t.Run("successful scan returns the full envelope", func(t *testing.T) {
		rec := doRequest(newTestServer(t, nil), http.MethodPost, "/scan",
			`{"url":"https://example.com"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status    string                      `json:"status"`
			ScanID    string                      `json:"scan_id"`
			URL       string                      `json:"url"`
			Results   []schemas.NormalizedFinding `json:"results"`
			RiskScore int                         `json:"risk_score"`
			RiskLevel string                      `json:"risk_level"`
			Summary   string                      `json:"llm_summary"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "success", resp.Status)
		assert.NotEmpty(t, resp.ScanID)
		assert.Equal(t, "https://example.com", resp.URL)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "http_headers", resp.Results[0].ID)
		assert.Equal(t, 10, resp.RiskScore)
		assert.Equal(t, "Medium", resp.RiskLevel)
		assert.Equal(t, "LLM not configured.", resp.Summary)
	})

	t.Run("invalid URL is a 400", func(t *testing.T) {
		rec := doRequest(newTestServer(t, nil), http.MethodPost, "/scan",
			`{"url":"not-a-url"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid URL provided")
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		rec := doRequest(newTestServer(t, nil), http.MethodPost, "/scan", `{"url": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleScans(t *testing.T) {
	t.Run("returns the user's history", func(t *testing.T) {
		store := &stubStore{scans: []schemas.ScanSummary{
			{ScanID: "scan-1", Target: "https://example.com", RiskScore: 30, RiskLevel: schemas.RiskHigh},
		}}
		rec := doRequest(newTestServer(t, store), http.MethodGet, "/scans?user_id=42", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "scan-1")
	})

	t.Run("missing user_id is a 400", func(t *testing.T) {
		rec := doRequest(newTestServer(t, &stubStore{}), http.MethodGet, "/scans", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no store configured is a 503", func(t *testing.T) {
		rec := doRequest(newTestServer(t, nil), http.MethodGet, "/scans?user_id=42", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("empty history is an empty list, not null", func(t *testing.T) {
		rec := doRequest(newTestServer(t, &stubStore{}), http.MethodGet, "/scans?user_id=42", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"scans":[]`)
	})
}

func TestHandleSendReport(t *testing.T) {
	t.Run("no mailer configured is a 503", func(t *testing.T) {
		rec := doRequest(newTestServer(t, nil), http.MethodPost, "/send-report",
			`{"to":"a@example.com"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	rec := doRequest(newTestServer(t, nil), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
