package schemas

import "time"

// -- Scan Schemas --

// ScanRequest describes one incoming scan cycle. An empty ProbeIDs slice
// means "all registered probes". UserID nil marks a guest scan, which is
// never persisted.
type ScanRequest struct {
	Target   string   `json:"url"`
	ProbeIDs []string `json:"vulnerabilities,omitempty"`
	UserID   *int64   `json:"-"`
}

// ScanReport is the aggregated artifact of one fan-out/fan-in cycle. It is
// mutated only while the coordinator populates findings and computes risk;
// afterwards it is handed read-only to persistence and transport.
type ScanReport struct {
	ScanID    string              `json:"scan_id"`
	Target    string              `json:"target"`
	Findings  []NormalizedFinding `json:"results"`
	RiskScore int                 `json:"risk_score"`
	RiskLevel RiskLevel           `json:"risk_level"`
	Summary   string              `json:"llm_summary"`
	Intel     RawResult           `json:"urlscan,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Duration  time.Duration       `json:"-"`
}

// ScanRecord is the persistence collaborator's input shape.
type ScanRecord struct {
	ScanID      string
	UserID      *int64
	Target      string
	StartedAt   time.Time
	Duration    time.Duration
	RiskScore   int
	RiskLevel   RiskLevel
	ToolVersion string
	Payload     []byte // serialized findings + enrichment
}

// ScanSummary is a row of the recent-scans listing.
type ScanSummary struct {
	ScanID    string    `json:"scan_uuid"`
	Target    string    `json:"url"`
	StartedAt time.Time `json:"timestamp"`
	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}
