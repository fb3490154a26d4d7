// Package probes contains the individual check implementations the scan core
// fans out over. Each probe is a self-contained HTTP fetch plus pattern match
// returning an open result map; the orchestration core never inspects probe
// internals, only the result shape.
//
// Signatures are intentionally heterogeneous (target-only, target+timeout,
// options struct) — the invoker adapts, the probes don't.
package probes

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

const (
	userAgent      = "VulnSight-Probe/1.0"
	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a response body a probe will read.
	maxBodyBytes = 64 * 1024
)

// normalizeTarget prefixes a scheme when the raw input lacks one.
func normalizeTarget(raw string) string {
	if raw == "" {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		return raw
	}
	return "http://" + raw
}

// newClient builds an HTTP client for one probe invocation. followRedirects
// false makes the client return the raw 3xx instead of chasing it.
func newClient(timeout time.Duration, followRedirects bool) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &http.Client{Timeout: timeout}
	if !followRedirects {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c
}

// safeGet performs a GET with the probe user agent and returns the response
// together with a bounded body read. The caller owns nothing to close.
func safeGet(client *http.Client, target string, extraHeaders map[string]string) (*http.Response, string, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return resp, string(body), nil
}

// failure builds the uniform failure payload.
func failure(msg string, details string) schemas.RawResult {
	return schemas.RawResult{"error": msg, "details": details}
}

// meta builds the timing annotation carried on every successful result.
func meta(start time.Time) map[string]any {
	return map[string]any{"scan_duration_ms": time.Since(start).Milliseconds()}
}

// snippet trims a body excerpt for classifier consumption.
func snippet(body string, n int) string {
	if len(body) <= n {
		return body
	}
	return body[:n]
}

// textual reports whether a content type is worth scanning for reflections.
func textual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text") || strings.Contains(ct, "html") || strings.Contains(ct, "json")
}
