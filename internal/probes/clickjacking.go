package probes

import (
	"strings"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// CheckClickjacking inspects the framing controls of the target: the
// X-Frame-Options header and the CSP frame-ancestors directive.
// Target-only calling convention.
func CheckClickjacking(target string) schemas.RawResult {
	start := time.Now()
	target = normalizeTarget(target)

	client := newClient(defaultTimeout, true)
	resp, body, err := safeGet(client, target, nil)
	if err != nil {
		return failure("Request failed", err.Error())
	}

	evidence := map[string]string{}

	xfo := resp.Header.Get("X-Frame-Options")
	switch {
	case xfo == "":
		evidence["x_frame_options"] = "MISSING"
	case strings.EqualFold(xfo, "DENY") || strings.EqualFold(xfo, "SAMEORIGIN"):
		evidence["x_frame_options"] = "SAFE"
	default:
		evidence["x_frame_options"] = "UNUSUAL (" + xfo + ")"
	}

	csp := resp.Header.Get("Content-Security-Policy")
	cspLower := strings.ToLower(csp)
	if idx := strings.Index(cspLower, "frame-ancestors"); idx >= 0 {
		directive := cspLower[idx+len("frame-ancestors"):]
		if end := strings.Index(directive, ";"); end >= 0 {
			directive = directive[:end]
		}
		directive = strings.TrimSpace(directive)
		if directive == "*" {
			evidence["csp_frame_ancestors"] = "PERMISSIVE (*)"
		} else {
			evidence["csp_frame_ancestors"] = "SAFE"
		}
	} else {
		evidence["csp_frame_ancestors"] = "MISSING"
	}

	xfoBad := evidence["x_frame_options"] != "SAFE"
	cspBad := evidence["csp_frame_ancestors"] != "SAFE"

	severity := "LOW"
	description := "Framing is restricted; clickjacking is unlikely."
	if xfoBad && cspBad {
		severity = "HIGH"
		description = "Neither X-Frame-Options nor CSP frame-ancestors restricts framing; the page can be embedded in a hostile iframe."
	} else if xfoBad || cspBad {
		severity = "MEDIUM"
		description = "Only one framing control is effective; defense in depth is incomplete."
	}

	return schemas.RawResult{
		"name":         "Clickjacking",
		"severity":     severity,
		"description":  description,
		"fix":          "Send X-Frame-Options: DENY (or SAMEORIGIN) and a Content-Security-Policy frame-ancestors directive.",
		"references":   []string{"https://owasp.org/www-community/attacks/Clickjacking"},
		"evidence":     evidence,
		"status_code":  resp.StatusCode,
		"text_snippet": snippet(body, 400),
		"_meta":        meta(start),
	}
}
