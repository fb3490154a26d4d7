package probes

import (
	"net/http"
	"strings"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// testOrigin is a harmless foreign origin used to observe CORS behavior.
const testOrigin = "https://example.com"

// CheckCORS sends a preflight OPTIONS and a GET carrying a foreign Origin
// header and inspects the Access-Control response headers. Conservative and
// non-destructive.
// Target+timeout calling convention.
func CheckCORS(target string, timeout time.Duration) schemas.RawResult {
	start := time.Now()
	target = normalizeTarget(target)
	client := newClient(timeout, true)

	// Preflight first; failures here are non-fatal, the GET decides.
	if req, err := http.NewRequest(http.MethodOptions, target, nil); err == nil {
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Origin", testOrigin)
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
		}
	}

	resp, body, err := safeGet(client, target, map[string]string{"Origin": testOrigin})
	if err != nil {
		return failure("Request failed", err.Error())
	}

	allowOrigin := resp.Header.Get("Access-Control-Allow-Origin")
	allowCreds := strings.EqualFold(resp.Header.Get("Access-Control-Allow-Credentials"), "true")

	severity := "LOW"
	description := "No permissive CORS policy observed."
	switch {
	case allowOrigin == testOrigin && allowCreds:
		severity = "HIGH"
		description = "Server reflects arbitrary origins with credentials allowed; any site can read authenticated responses."
	case allowOrigin == "*" && allowCreds:
		severity = "HIGH"
		description = "Wildcard Access-Control-Allow-Origin combined with credentials."
	case allowOrigin == testOrigin:
		severity = "MEDIUM"
		description = "Server reflects arbitrary origins in Access-Control-Allow-Origin."
	case allowOrigin == "*":
		severity = "MEDIUM"
		description = "Wildcard Access-Control-Allow-Origin exposes responses to all origins."
	}

	return schemas.RawResult{
		"name":        "CORS Misconfiguration",
		"severity":    severity,
		"description": description,
		"fix":         "Restrict Access-Control-Allow-Origin to an explicit allow-list and never combine reflection with Allow-Credentials.",
		"references":  []string{"https://owasp.org/www-community/attacks/CORS_OriginHeaderScrutiny"},
		"evidence": map[string]any{
			"allow_origin":      allowOrigin,
			"allow_credentials": allowCreds,
			"test_origin":       testOrigin,
		},
		"status_code":  resp.StatusCode,
		"text_snippet": snippet(body, 400),
		"_meta":        meta(start),
	}
}
