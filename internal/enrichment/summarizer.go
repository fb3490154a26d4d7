// Package enrichment holds the external collaborators consumed after
// aggregation: the LLM summary client and the urlscan.io reputation client.
// Both degrade gracefully; neither can fail a scan.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
)

// LLMSummarizer turns a finding set into a free-text analyst summary via a
// Gemini-style generateContent endpoint.
type LLMSummarizer struct {
	cfg        config.LLMConfig
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// -- Request/response payloads for the generateContent API --

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
	Role  string         `json:"role,omitempty"`
}

type generateConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []generateContent `json:"contents"`
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	GenerationConfig  generateConfig    `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// NewLLMSummarizer initializes the client. An API key is required; callers
// that have none should not construct a summarizer at all.
func NewLLMSummarizer(cfg config.LLMConfig, logger *zap.Logger) (*LLMSummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	return &LLMSummarizer{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger.Named("llm_summarizer"),
	}, nil
}

// Summarize sends the findings to the model and returns the generated
// markdown summary.
func (c *LLMSummarizer) Summarize(ctx context.Context, findings []schemas.NormalizedFinding) (string, error) {
	payload := generateRequest{
		Contents: []generateContent{{
			Role:  "user",
			Parts: []generatePart{{Text: buildPrompt(findings)}},
		}},
		SystemInstruction: &generateContent{
			Parts: []generatePart{{Text: "You are a concise cybersecurity analyst."}},
		},
		GenerationConfig: generateConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("LLM response contained no candidates")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("LLM response contained empty text")
	}

	c.logger.Debug("Summary generated", zap.Int("length", len(text)))
	return text, nil
}

// buildPrompt renders the markdown-structured analyst prompt with one bullet
// per finding.
func buildPrompt(findings []schemas.NormalizedFinding) string {
	var b strings.Builder
	b.WriteString("You are a sophisticated cybersecurity expert. Your response MUST be structured using Markdown. ")
	b.WriteString("Start with the main heading (`##`), and use a smaller subheading (`###`) for the primary vulnerability/scan target. ")
	b.WriteString("If you include any sub-topics or related findings, use an even smaller heading (`####`) for those. ")
	b.WriteString("Ensure the risk and remediation paragraphs are separated by a double newline.\n\n")
	b.WriteString("Please begin your structured output immediately below this line, with NO introductory text or header filler:\n\n")
	b.WriteString("FORMAT EXAMPLE (START IMMEDIATELY WITH THE COMBINED HEADING):\n")
	b.WriteString("### Finding Name\n")
	b.WriteString("#### Sub-Topic Name\n")
	b.WriteString("**Risk:** A short, sophisticated description of the impact.\n\n")
	b.WriteString("**Remediation:** A concise, confident instruction on how to fix it.\n\n")
	b.WriteString("--- START ANALYSIS ---\n\n")
	for _, f := range findings {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, f.Description)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
