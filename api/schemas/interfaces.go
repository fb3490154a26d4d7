package schemas

import "context"

// Collaborator contracts consumed by the scan coordinator. Defining them here
// keeps the coordinator decoupled from concrete pgx / HTTP implementations
// and lets tests swap in fakes.

// ProbeSource resolves probe identifiers to capabilities. Read-only after
// startup, hence safe for unsynchronized concurrent reads.
type ProbeSource interface {
	Resolve(id string) (Capability, error)
	IDs() []string
}

// ScanStore persists finished reports. Implementations must treat the record
// as read-only.
type ScanStore interface {
	SaveScan(ctx context.Context, rec ScanRecord) error
	RecentScans(ctx context.Context, userID int64, limit int) ([]ScanSummary, error)
}

// Summarizer turns a normalized finding set into a free-text analyst summary.
// A failure degrades to a placeholder string at the coordinator; it never
// fails the scan.
type Summarizer interface {
	Summarize(ctx context.Context, findings []NormalizedFinding) (string, error)
}

// TargetIntel queries an external reputation service for the target. The
// returned map always carries a "_source" key; failures are represented as
// error maps, never as error values.
type TargetIntel interface {
	Lookup(ctx context.Context, target string) RawResult
}
