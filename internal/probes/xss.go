package probes

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// CheckXSSReflection sends a harmless unique token and checks whether the
// response reflects it. Active but non-destructive: the token contains no
// markup, only its reflection is observed.
// Target+timeout calling convention.
func CheckXSSReflection(target string, timeout time.Duration) schemas.RawResult {
	start := time.Now()
	target = normalizeTarget(target)

	token := "vulnsight-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	probe := target + sep + url.Values{"vuln": {token}}.Encode()

	client := newClient(timeout, true)
	resp, body, err := safeGet(client, probe, nil)
	if err != nil {
		return failure("Request failed", err.Error())
	}

	// Skip binary payloads; reflections only matter in renderable content.
	if !textual(resp.Header.Get("Content-Type")) {
		body = ""
	}

	found := strings.Contains(body, token)
	severity := "LOW"
	description := "No reflection of safe token detected."
	var evidence []map[string]string
	if found {
		severity = "HIGH"
		description = "Detected reflection of innocent token in response."
		evidence = []map[string]string{{"token": token}}
	}

	return schemas.RawResult{
		"name":         "Reflected XSS (safe reflection check)",
		"severity":     severity,
		"description":  description,
		"fix":          "Sanitize output and encode user-supplied data before rendering.",
		"evidence":     evidence,
		"status_code":  resp.StatusCode,
		"text_snippet": snippet(body, 800),
		"_meta":        meta(start),
	}
}
