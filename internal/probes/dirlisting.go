package probes

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// Commonly exposed directories where listings are often left open.
var listingPaths = []string{"/", "/uploads/", "/images/", "/files/", "/assets/"}

// CheckDirListing fetches a handful of common paths and looks for
// auto-generated directory index pages. Safe GET requests only.
// Target+timeout calling convention.
func CheckDirListing(target string, timeout time.Duration) schemas.RawResult {
	start := time.Now()
	target = strings.TrimRight(normalizeTarget(target), "/")

	client := newClient(timeout, true)
	var findings []map[string]any
	firstSnippet := ""

	for _, path := range listingPaths {
		probe := target + path
		resp, body, err := safeGet(client, probe, nil)
		if err != nil || resp.StatusCode != 200 || body == "" {
			continue
		}
		if !looksLikeListing(body) {
			continue
		}
		entry := map[string]any{
			"path":    probe,
			"snippet": snippet(body, 400),
		}
		if names := listingEntries(body, 10); len(names) > 0 {
			entry["entries"] = names
		}
		findings = append(findings, entry)
		if firstSnippet == "" {
			firstSnippet = snippet(body, 400)
		}
	}

	severity := "LOW"
	description := "No directory listings detected on common paths."
	var statusCode any
	if len(findings) > 0 {
		severity = "HIGH"
		description = fmt.Sprintf("Found %d directory listing pages.", len(findings))
		statusCode = 200
	}

	return schemas.RawResult{
		"name":         "Directory Listing",
		"severity":     severity,
		"description":  description,
		"fix":          "Disable directory listing in server configuration and provide index files for all directories.",
		"references":   []string{"https://owasp.org/www-community/attacks/Directory_listing"},
		"evidence":     findings,
		"status_code":  statusCode,
		"text_snippet": firstSnippet,
		"_meta":        meta(start),
	}
}

// looksLikeListing detects the signatures of auto-generated index pages.
func looksLikeListing(body string) bool {
	low := strings.ToLower(body)
	if strings.Contains(low, "index of /") {
		return true
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return false
	}
	title := findTitle(doc)
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(title)), "index of")
}

// listingEntries extracts up to limit anchor texts from an index page as
// evidence of what the listing exposes.
func listingEntries(body string, limit int) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var names []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(names) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				if text := strings.TrimSpace(n.FirstChild.Data); text != "" {
					names = append(names, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return names
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
