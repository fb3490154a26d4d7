// Package coordinator ties the orchestration core into one request/response
// cycle: validate the target, dispatch the probe set, aggregate findings and
// risk, then hand the immutable report to the persistence and enrichment
// collaborators.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/scan"
)

// State names the coordinator's lifecycle phases. Completed and Failed are
// terminal; Failed is reached only on a coordinator-level fault such as a
// malformed target, never on an individual probe's failure.
type State string

const (
	StateReceived    State = "received"
	StateDispatching State = "dispatching"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// ErrInvalidTarget is returned when the target URL lacks a scheme or host.
// It is the only error Run ever returns; every other fault is contained in
// the report.
var ErrInvalidTarget = errors.New("invalid target URL")

// Placeholder summaries when enrichment is unavailable or fails.
const (
	summaryNotConfigured = "LLM not configured."
	summaryFailed        = "Failed to generate explanation."
)

// Dispatcher is the fan-out/fan-in contract the coordinator drives.
type Dispatcher interface {
	DispatchAll(ctx context.Context, ids []string, target string) map[string]schemas.RawResult
}

// Coordinator runs one scan cycle per Run call. Collaborators are optional;
// a nil store, summarizer or intel client degrades the corresponding step.
type Coordinator struct {
	logger      *zap.Logger
	source      schemas.ProbeSource
	dispatcher  Dispatcher
	store       schemas.ScanStore
	summarizer  schemas.Summarizer
	intel       schemas.TargetIntel
	toolVersion string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore attaches the persistence collaborator.
func WithStore(store schemas.ScanStore) Option {
	return func(c *Coordinator) { c.store = store }
}

// WithSummarizer attaches the LLM summary collaborator.
func WithSummarizer(s schemas.Summarizer) Option {
	return func(c *Coordinator) { c.summarizer = s }
}

// WithIntel attaches the target reputation collaborator.
func WithIntel(i schemas.TargetIntel) Option {
	return func(c *Coordinator) { c.intel = i }
}

// WithToolVersion sets the version string recorded on persisted scans.
func WithToolVersion(v string) Option {
	return func(c *Coordinator) { c.toolVersion = v }
}

// New builds a coordinator over a probe source and dispatcher.
func New(logger *zap.Logger, source schemas.ProbeSource, dispatcher Dispatcher, opts ...Option) (*Coordinator, error) {
	if source == nil || dispatcher == nil {
		return nil, fmt.Errorf("cannot initialize coordinator with nil dependencies")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		logger:      logger.Named("coordinator"),
		source:      source,
		dispatcher:  dispatcher,
		toolVersion: "VulnSight v1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes one scan cycle. The caller always receives a report unless
// the target itself is invalid.
func (c *Coordinator) Run(ctx context.Context, req schemas.ScanRequest) (*schemas.ScanReport, error) {
	start := time.Now()
	scanID := uuid.NewString()
	log := c.logger.With(zap.String("scan_id", scanID), zap.String("target", req.Target))

	state := StateReceived
	log.Info("Scan received", zap.String("state", string(state)))

	parsed, err := url.Parse(req.Target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		state = StateFailed
		log.Warn("Rejecting scan before dispatch", zap.String("state", string(state)))
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, req.Target)
	}

	ids := req.ProbeIDs
	if len(ids) == 0 {
		ids = c.source.IDs()
	}

	state = StateDispatching
	log.Info("Dispatching probe set", zap.String("state", string(state)), zap.Int("probes", len(ids)))
	raw := c.dispatcher.DispatchAll(ctx, ids, req.Target)

	state = StateAggregating
	log.Info("Aggregating results", zap.String("state", string(state)))
	findings := scan.NormalizeAll(ids, raw)
	score, level := scan.Aggregate(findings)

	report := &schemas.ScanReport{
		ScanID:    scanID,
		Target:    req.Target,
		Findings:  findings,
		RiskScore: score,
		RiskLevel: level,
		Summary:   c.summarize(ctx, log, findings),
		Intel:     c.lookupIntel(ctx, req.Target),
		CreatedAt: time.Now().UTC(),
		Duration:  time.Since(start),
	}

	state = StateCompleted
	log.Info("Scan completed",
		zap.String("state", string(state)),
		zap.Int("risk_score", report.RiskScore),
		zap.String("risk_level", string(report.RiskLevel)),
		zap.Duration("elapsed", report.Duration))

	// The report is immutable from here on; persistence failures are logged
	// and never roll it back.
	c.persist(ctx, log, req, report)

	return report, nil
}

// summarize requests the external summary; any failure degrades to a
// placeholder string and never fails the scan.
func (c *Coordinator) summarize(ctx context.Context, log *zap.Logger, findings []schemas.NormalizedFinding) string {
	if c.summarizer == nil {
		return summaryNotConfigured
	}
	summary, err := c.summarizer.Summarize(ctx, findings)
	if err != nil {
		log.Warn("Summary enrichment failed, using placeholder", zap.Error(err))
		return summaryFailed
	}
	return summary
}

func (c *Coordinator) lookupIntel(ctx context.Context, target string) schemas.RawResult {
	if c.intel == nil {
		return nil
	}
	return c.intel.Lookup(ctx, target)
}

// persist hands the finished report to the store. Guest scans (no user ID)
// skip persistence entirely.
func (c *Coordinator) persist(ctx context.Context, log *zap.Logger, req schemas.ScanRequest, report *schemas.ScanReport) {
	if c.store == nil {
		return
	}
	if req.UserID == nil {
		log.Info("Guest scan, skipping persistence")
		return
	}

	payload, err := json.Marshal(map[string]any{
		"tools":       report.Findings,
		"urlscan":     report.Intel,
		"llm_summary": report.Summary,
	})
	if err != nil {
		log.Error("Failed to serialize scan payload", zap.Error(err))
		return
	}

	// Persistence gets its own deadline so results are saved even when the
	// request context is already winding down.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	rec := schemas.ScanRecord{
		ScanID:      report.ScanID,
		UserID:      req.UserID,
		Target:      report.Target,
		StartedAt:   report.CreatedAt.Add(-report.Duration),
		Duration:    report.Duration,
		RiskScore:   report.RiskScore,
		RiskLevel:   report.RiskLevel,
		ToolVersion: c.toolVersion,
		Payload:     payload,
	}
	if err := c.store.SaveScan(persistCtx, rec); err != nil {
		log.Error("Failed to persist scan", zap.Error(err))
		return
	}
	log.Info("Scan persisted", zap.Int64("user_id", *req.UserID))
}
