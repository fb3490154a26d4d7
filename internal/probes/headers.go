package probes

import (
	"fmt"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// securityHeader describes one response header the analysis grades on.
type securityHeader struct {
	name     string
	desc     string
	weight   int
	severity string
}

// Graded headers, heaviest first. Weights feed the letter grade; severity is
// what a miss contributes to the overall probe severity.
var securityHeaders = []securityHeader{
	{"Content-Security-Policy", "Controls which resources/scripts can be loaded/executed.", 3, "HIGH"},
	{"Strict-Transport-Security", "Forces HTTPS connections, preventing downgrade attacks.", 2, "HIGH"},
	{"X-Frame-Options", "Prevents clickjacking by controlling iframe embedding.", 2, "HIGH"},
	{"Permissions-Policy", "Controls browser features like camera, microphone, geolocation.", 2, "MEDIUM"},
	{"X-Content-Type-Options", "Prevents MIME type sniffing; protects against content-type attacks.", 1, "MEDIUM"},
	{"Referrer-Policy", "Controls what referrer information is sent to other sites.", 1, "LOW"},
	{"X-XSS-Protection", "Legacy XSS filter in some browsers (not very relevant now).", 1, "LOW"},
}

// headerGrade maps a score percentage to a letter grade.
func headerGrade(score, max int) string {
	percent := float64(score) / float64(max) * 100
	switch {
	case percent >= 90:
		return "A"
	case percent >= 75:
		return "B"
	case percent >= 60:
		return "C"
	case percent >= 40:
		return "D"
	default:
		return "F"
	}
}

// CheckHeaders grades the target's HTTP security response headers.
// Target-only calling convention.
func CheckHeaders(target string) schemas.RawResult {
	start := time.Now()
	target = normalizeTarget(target)

	client := newClient(defaultTimeout, true)
	resp, body, err := safeGet(client, target, nil)
	if err != nil {
		return failure("Request failed", err.Error())
	}

	maxScore := 0
	score := 0
	var missing []map[string]any
	severity := "LOW"

	for _, h := range securityHeaders {
		maxScore += h.weight
		if resp.Header.Get(h.name) != "" {
			score += h.weight
			continue
		}
		missing = append(missing, map[string]any{
			"header":      h.name,
			"severity":    h.severity,
			"description": h.desc,
		})
		if h.severity == "HIGH" {
			severity = "HIGH"
		} else if h.severity == "MEDIUM" && severity != "HIGH" {
			severity = "MEDIUM"
		}
	}

	grade := headerGrade(score, maxScore)
	description := fmt.Sprintf("Security header grade %s: %d of %d headers present.",
		grade, len(securityHeaders)-len(missing), len(securityHeaders))

	return schemas.RawResult{
		"name":         "HTTP Security Headers",
		"severity":     severity,
		"description":  description,
		"fix":          "Add the missing security headers at the web server or application layer; start with Content-Security-Policy and Strict-Transport-Security.",
		"references":   []string{"https://owasp.org/www-project-secure-headers/"},
		"evidence":     missing,
		"grade":        grade,
		"status_code":  resp.StatusCode,
		"text_snippet": snippet(body, 400),
		"_meta":        meta(start),
	}
}
