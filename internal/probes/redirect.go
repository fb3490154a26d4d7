package probes

import (
	"fmt"
	"net/url"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// Common query parameters often used for redirects.
var redirectParams = []string{"next", "url", "redirect", "return", "r"}

// CheckOpenRedirect probes common redirect parameter names with a safe
// same-site value and inspects 3xx Location headers for external hops.
// Does not follow any redirect.
// Options calling convention.
func CheckOpenRedirect(opts schemas.ProbeOptions) schemas.RawResult {
	start := time.Now()
	target := normalizeTarget(opts.Target)

	parsed, err := url.Parse(target)
	if err != nil {
		return failure("Request failed", err.Error())
	}

	client := newClient(opts.Timeout, false)
	var findings []map[string]string

	for _, param := range redirectParams {
		safeValue := parsed.Scheme + "://" + parsed.Host + "/"
		sep := "?"
		if parsed.RawQuery != "" {
			sep = "&"
		}
		probe := target + sep + url.Values{param: {safeValue}}.Encode()

		resp, _, err := safeGet(client, probe, nil)
		if err != nil {
			continue
		}
		switch resp.StatusCode {
		case 301, 302, 303, 307, 308:
			location := resp.Header.Get("Location")
			if location == "" {
				continue
			}
			if loc, err := url.Parse(location); err == nil && loc.Host != "" && loc.Host != parsed.Host {
				findings = append(findings, map[string]string{"param": param, "location": location})
			}
		}
	}

	severity := "LOW"
	description := "No open-redirect parameters detected on common parameter names."
	if len(findings) > 0 {
		severity = "MEDIUM"
		description = fmt.Sprintf("Found %d redirect parameters that may allow external redirects.", len(findings))
	}

	return schemas.RawResult{
		"name":        "Open Redirect (passive check)",
		"severity":    severity,
		"description": description,
		"fix":         "Validate and restrict redirect parameters to internal paths or use server-side token mapping.",
		"evidence":    findings,
		"_meta":       meta(start),
	}
}
