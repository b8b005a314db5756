package visitors

import "time"

// TrustLevel is the coarse trust classification cached on a visitor row.
type TrustLevel string

const (
	TrustNew       TrustLevel = "new"
	TrustReturning TrustLevel = "returning"
	TrustTrusted   TrustLevel = "trusted"
	TrustVerified  TrustLevel = "verified"
)

// MatchType identifies which pipeline layer resolved an identification.
type MatchType string

const (
	MatchExact       MatchType = "exact"
	MatchStable      MatchType = "stable"
	MatchGPU         MatchType = "gpu"
	MatchFuzzyStable MatchType = "fuzzy-stable"
	MatchFuzzy       MatchType = "fuzzy"
	MatchNew         MatchType = "new"
)

// Visitor is one identity row. The trust fields are a cache maintained by the
// matching engine after each decision; the scorer remains authoritative.
type Visitor struct {
	ID              string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	TrustLevel      TrustLevel
	CrowdScore      float64
	UniqueIPs       int
	VisitCount      int
	LastScoreUpdate *time.Time
}

// Fingerprint is one immutable submission record. Hash is the exact digest;
// StableHash and GPUTimingHash are empty when the submission omitted them.
type Fingerprint struct {
	ID             string
	VisitorID      string
	Hash           string
	FuzzyHash      string
	StableHash     string
	GPUTimingHash  string
	ComponentsJSON string
	Entropy        float64
	Confidence     float64
	IsFarbled      bool
	Browser        string
	CreatedAt      time.Time
}

// NewFingerprint carries the fields persisted for a fresh fingerprint record.
type NewFingerprint struct {
	Hash           string
	FuzzyHash      string
	StableHash     string
	GPUTimingHash  string
	ComponentsJSON string
	Entropy        float64
	Confidence     float64
	IsFarbled      bool
	Browser        string
}

// Session is one append-only visit record.
type Session struct {
	ID              string
	VisitorID       string
	FingerprintID   string
	IPAddress       string
	UserAgent       string
	Referer         string
	TLSJA4          string
	TLSJA3          string
	HeaderOrderHash string
	FirstSeen       time.Time
	LastSeen        time.Time
}

// NewSession carries the request metadata persisted with a visit.
type NewSession struct {
	IPAddress       string
	UserAgent       string
	Referer         string
	TLSJA4          string
	TLSJA3          string
	HeaderOrderHash string
}

// HashCandidate is one row of a bounded recency scan.
type HashCandidate struct {
	FingerprintID string
	VisitorID     string
	Hash          string
}

// WriteResult reports the identifiers created by a terminal write.
type WriteResult struct {
	VisitorID     string
	FingerprintID string
	SessionID     string
}

// TrustAttrs is the trust cache payload written back onto a visitor row.
type TrustAttrs struct {
	Level      TrustLevel
	CrowdScore float64
	UniqueIPs  int
	VisitCount int
}

// StatsDelta is one request's contribution to the daily aggregate.
type StatsDelta struct {
	MatchType     MatchType
	NewVisitor    bool
	UniqueVisitor bool
	Entropy       float64
	HasEntropy    bool
}

// DailyStats is one per-UTC-day aggregate row.
type DailyStats struct {
	Date               string
	Total              int
	UniqueVisitors     int
	ExactMatches       int
	StableMatches      int
	GPUMatches         int
	FuzzyStableMatches int
	FuzzyMatches       int
	NewVisitors        int
	AvgEntropy         float64
}

// Totals aggregates table counts for status output.
type Totals struct {
	Visitors     int64
	Fingerprints int64
	Sessions     int64
}

// Visit is a session projected for display: when it happened, from which
// address, and the browser recorded on the fingerprint it presented.
type Visit struct {
	Timestamp time.Time
	IPAddress string
	Browser   string
	UserAgent string
}

// Summary is the read-back view of a visitor for API and CLI output.
type Summary struct {
	Visitor          *Visitor
	VisitCount       int
	FingerprintCount int
	LastVisit        *time.Time
	Recent           []*Visit
}

// DatabaseHealth captures diagnostic information about the visitor database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    bool
	MissingTables    []string
	TotalVisitors    int64
	IntegrityCheck   bool
	Error            string
}
