package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
)

// URLScanClient submits the target to urlscan.io and polls for the result.
// Every failure path returns an error map tagged with _source so the report
// still carries a well-formed enrichment section; Lookup never returns an
// error value.
type URLScanClient struct {
	cfg        config.URLScanConfig
	httpClient *http.Client
	// limiter paces result polling; one poll per configured interval.
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewURLScanClient builds a client from configuration. A missing API key is
// tolerated and reported per lookup.
func NewURLScanClient(cfg config.URLScanConfig, logger *zap.Logger) *URLScanClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &URLScanClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger.Named("urlscan"),
	}
}

// Lookup submits the target and polls for the scan result.
func (c *URLScanClient) Lookup(ctx context.Context, target string) schemas.RawResult {
	if c.cfg.APIKey == "" {
		return errResult("URLSCAN_API_KEY not configured")
	}

	scanUUID, err := c.submit(ctx, target)
	if err != nil {
		c.logger.Warn("URLScan submission failed", zap.Error(err))
		return errResult(err.Error())
	}

	attempts := c.cfg.PollAttempts
	if attempts <= 0 {
		attempts = 5
	}
	for i := 0; i < attempts; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return errResult(err.Error())
		}
		result, ready, err := c.fetchResult(ctx, scanUUID)
		if err != nil {
			c.logger.Warn("URLScan poll failed", zap.Error(err))
			return errResult(err.Error())
		}
		if ready {
			result["_source"] = "urlscan"
			return result
		}
	}

	return schemas.RawResult{
		"error":   "URLScan result not ready",
		"_source": "urlscan",
		"uuid":    scanUUID,
	}
}

func (c *URLScanClient) submit(ctx context.Context, target string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": target, "visibility": "public"})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.Endpoint, "/")+"/scan/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("urlscan submit returned status %d", resp.StatusCode)
	}

	var parsed struct {
		UUID string `json:"uuid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode urlscan submit response: %w", err)
	}
	if parsed.UUID == "" {
		return "", fmt.Errorf("failed to get urlscan UUID")
	}
	return parsed.UUID, nil
}

// fetchResult returns (result, ready, err). A 404 means the result is not
// ready yet; anything else unexpected is an error.
func (c *URLScanClient) fetchResult(ctx context.Context, scanUUID string) (schemas.RawResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/result/%s/", strings.TrimRight(c.cfg.Endpoint, "/"), scanUUID), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result schemas.RawResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, false, fmt.Errorf("failed to decode urlscan result: %w", err)
		}
		return result, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("urlscan result returned status %d", resp.StatusCode)
	}
}

func errResult(msg string) schemas.RawResult {
	return schemas.RawResult{"error": msg, "_source": "urlscan"}
}
