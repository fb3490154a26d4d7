package probes

import (
	"fmt"
	"strings"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// CheckCookies inspects Set-Cookie headers for missing Secure, HttpOnly and
// SameSite attributes. Non-destructive; reads headers only.
// Target+timeout calling convention.
func CheckCookies(target string, timeout time.Duration) schemas.RawResult {
	start := time.Now()
	target = normalizeTarget(target)

	client := newClient(timeout, true)
	resp, _, err := safeGet(client, target, nil)
	if err != nil {
		return failure("Request failed", err.Error())
	}

	var insecure []map[string]any
	for _, raw := range resp.Header.Values("Set-Cookie") {
		low := strings.ToLower(raw)
		var issues []string
		if !strings.Contains(low, "secure") {
			issues = append(issues, "Secure")
		}
		if !strings.Contains(low, "httponly") {
			issues = append(issues, "HttpOnly")
		}
		if !strings.Contains(low, "samesite") {
			issues = append(issues, "SameSite (missing)")
		} else if strings.Contains(low, "samesite=none") {
			issues = append(issues, "SameSite=None (risky)")
		}
		if len(issues) > 0 {
			insecure = append(insecure, map[string]any{
				"cookie": snippet(raw, 200),
				"issues": issues,
			})
		}
	}

	severity := "LOW"
	description := "No insecure cookies detected (based on Set-Cookie)."
	if len(insecure) > 0 {
		severity = "HIGH"
		description = fmt.Sprintf("Cookies missing secure attributes: %d items.", len(insecure))
	}

	return schemas.RawResult{
		"name":        "Insecure Cookies",
		"severity":    severity,
		"description": description,
		"fix": "Set Secure, HttpOnly, and SameSite attributes for session cookies. " +
			"Recommended: SameSite=Strict with Secure and HttpOnly enabled.",
		"evidence":    insecure,
		"status_code": resp.StatusCode,
		"_meta":       meta(start),
	}
}
