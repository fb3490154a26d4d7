package scan

import (
	"fmt"
	"strings"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// blockKeywords are the body fragments that mark a response as coming from
// defensive tooling rather than the application itself. Matched
// case-insensitively, every hit recorded.
var blockKeywords = []string{
	"captcha",
	"verify you are human",
	"cloudflare",
	"bot",
	"challenge",
	"access denied",
}

// Classify inspects a raw probe result for signals that the target's WAF,
// CAPTCHA or rate limiter interfered with the probe. When any signal fires
// the result is replaced with a standardized inconclusive payload carrying
// every trigger reason; otherwise the result passes through unchanged.
// Classification is exclusive: a blocked result never keeps the probe's
// severity.
func Classify(result schemas.RawResult) schemas.RawResult {
	if result == nil {
		return result
	}

	var reasons []string

	if status, ok := resultStatus(result); ok && (status == 403 || status == 429) {
		reasons = append(reasons, fmt.Sprintf("HTTP %d", status))
	}

	if excerpt := resultExcerpt(result); excerpt != "" {
		lower := strings.ToLower(excerpt)
		for _, keyword := range blockKeywords {
			if strings.Contains(lower, keyword) {
				reasons = append(reasons, keyword)
			}
		}
	}

	if len(reasons) == 0 {
		return result
	}

	blocked := schemas.RawResult{
		"error":           "Target likely blocked scan / WAF protection triggered",
		"severity":        schemas.SeverityUnknown,
		"description":     "Scan could not retrieve headers/content due to bot protection/firewall.",
		"fix":             "Manual verification required; optionally use browser-based scan mode.",
		"references":      []string{},
		"blocked_reasons": reasons,
	}
	// Original timing metadata survives for audit.
	if m, ok := result["_meta"]; ok {
		blocked["_meta"] = m
	} else {
		blocked["_meta"] = map[string]any{}
	}
	return blocked
}

// resultStatus extracts the HTTP status from either of the field names probes
// use, tolerating the numeric types JSON round-trips produce.
func resultStatus(result schemas.RawResult) (int, bool) {
	for _, key := range []string{"status_code", "response_status_code"} {
		switch v := result[key].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}

// resultExcerpt returns the short body excerpt a probe attached, if any.
func resultExcerpt(result schemas.RawResult) string {
	for _, key := range []string{"text_snippet", "body_snippet"} {
		if s, ok := result[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
