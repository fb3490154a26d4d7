package schemas

// -- Finding Schemas --

// Severity labels are free-form strings as far as probes are concerned; the
// constants below are the canonical spellings the normalizer and aggregator
// emit. Comparison is always case-insensitive because probes report in
// whatever casing their pattern tables use ("HIGH", "High", ...).
const (
	SeverityUnknown  = "Unknown"
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// RiskLevel is the qualitative bucket derived from the count of high and
// critical findings in a single scan.
type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown"
)

// RawResult is the open, semi-structured payload a probe produces. No two
// probes emit identical field sets; the orchestration core tolerates the
// heterogeneity instead of forcing a shared struct on every probe.
//
// Recognized keys (all optional):
//
//	error, details            failure discriminator + message
//	name, severity            display name and severity label
//	description, fix          narrative text
//	references                []string
//	evidence                  probe-specific proof
//	status_code               HTTP status of the probed response
//	response_status_code      alias some probes use for status_code
//	text_snippet, body_snippet short body excerpt
//	_meta                     timing annotation, preserved verbatim
//	blocked_reasons           set by the blocked-response classifier only
type RawResult = map[string]any

// NormalizedFinding is the canonical shape every probe result is mapped into
// before aggregation. Details retains the full classified result for audit.
type NormalizedFinding struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"` // "ok" or "error"
	Name        string   `json:"name"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Fix         string   `json:"fix"`
	References  []string `json:"references"`
	Details     any      `json:"details"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)
