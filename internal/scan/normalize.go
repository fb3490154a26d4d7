package scan

import (
	"fmt"
	"strings"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// Placeholder values used when a probe supplies no override.
const (
	defaultDescription = "No description provided."
	defaultFix         = "No fix recommendation available."
	errorFix           = "Check backend service"
)

// Normalize maps one classified probe result into the canonical finding
// shape. The full original result is retained under Details for audit.
func Normalize(id string, data any) schemas.NormalizedFinding {
	name := displayName(id)
	severity := schemas.SeverityUnknown
	description := defaultDescription
	fix := defaultFix
	references := []string{
		fmt.Sprintf("OWASP %s Prevention", name),
		"CWE Reference",
		"NIST Guidelines",
	}

	if m, ok := data.(schemas.RawResult); ok {
		if errVal, isErr := m["error"]; isErr {
			description = stringField(m, "description", fmt.Sprint(errVal))
			severity = stringField(m, "severity", severity)
			fix = stringField(m, "fix", errorFix)
		} else {
			name = stringField(m, "name", name)
			severity = stringField(m, "severity", severity)
			description = stringField(m, "description", description)
			fix = stringField(m, "fix", fix)
			references = stringSliceField(m, "references", references)
		}
	}

	// Status is a substring test on the rendered result, carried over from
	// the original behavior. Known ambiguity: a success payload whose free
	// text happens to contain the word "error" is classified as an error.
	// See DESIGN.md before "fixing" this.
	status := schemas.StatusOK
	if strings.Contains(strings.ToLower(fmt.Sprint(data)), "error") {
		status = schemas.StatusError
	}

	return schemas.NormalizedFinding{
		ID:          id,
		Status:      status,
		Name:        name,
		Severity:    severity,
		Description: description,
		Fix:         fix,
		References:  references,
		Details:     data,
	}
}

// NormalizeAll normalizes a dispatch result set, preserving the request
// order of ids for stable report rendering.
func NormalizeAll(ids []string, results map[string]schemas.RawResult) []schemas.NormalizedFinding {
	findings := make([]schemas.NormalizedFinding, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		findings = append(findings, Normalize(id, results[id]))
	}
	return findings
}

// displayName derives a human-readable probe name from its identifier:
// underscores become spaces, each word is title-cased.
func displayName(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func stringField(m schemas.RawResult, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// stringSliceField tolerates both []string and the []any shape JSON decoding
// produces.
func stringSliceField(m schemas.RawResult, key string, fallback []string) []string {
	switch v := m[key].(type) {
	case []string:
		if len(v) > 0 {
			return v
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
