package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// IdentifySubmission is the wire form of one identification request.
type IdentifySubmission struct {
	Fingerprint     string          `json:"fingerprint"`
	FuzzyHash       string          `json:"fuzzyHash"`
	StableHash      string          `json:"stableHash,omitempty"`
	GPUTimingHash   string          `json:"gpuTimingHash,omitempty"`
	GPUTiming       *GPUTimingInfo  `json:"gpuTiming,omitempty"`
	Components      json.RawMessage `json:"components,omitempty"`
	Entropy         *float64        `json:"entropy,omitempty"`
	IsFarbled       bool            `json:"isFarbled,omitempty"`
	DetectedBrowser string          `json:"detectedBrowser,omitempty"`
	PersistentID    string          `json:"persistentId,omitempty"`
	Timestamp       int64           `json:"timestamp,omitempty"`
}

// GPUTimingInfo carries the client-reported validity metadata for the GPU
// timing hash.
type GPUTimingInfo struct {
	Supported bool    `json:"supported"`
	GPUScore  float64 `json:"gpuScore"`
}

// IdentifyResponse is the wire form of one identification decision.
type IdentifyResponse struct {
	VisitorID          string              `json:"visitorId"`
	MatchType          string              `json:"matchType"`
	Confidence         float64             `json:"confidence"`
	IsNewVisitor       bool                `json:"isNewVisitor"`
	FingerprintID      string              `json:"fingerprintId"`
	Visitor            VisitorInfo         `json:"visitor"`
	Request            VisitInfo           `json:"request"`
	RecentVisits       []VisitInfo         `json:"recentVisits"`
	PersistentIdentity *PersistentIdentity `json:"persistentIdentity,omitempty"`
}

// VisitorInfo summarizes the matched visitor for clients.
type VisitorInfo struct {
	FirstSeen  string `json:"firstSeen"`
	VisitCount int    `json:"visitCount"`
	LastVisit  string `json:"lastVisit,omitempty"`
}

// VisitInfo describes one recorded visit.
type VisitInfo struct {
	Timestamp string `json:"timestamp"`
	IPAddress string `json:"ipAddress"`
	Browser   string `json:"browser"`
}

// PersistentIdentity advises the client to store a fresh identity signature.
type PersistentIdentity struct {
	ShouldUpdate bool   `json:"shouldUpdate"`
	Signature    string `json:"signature,omitempty"`
}

// VisitorDetail is the admin view of a visitor with recent activity.
type VisitorDetail struct {
	ID               string      `json:"id"`
	TrustLevel       string      `json:"trustLevel"`
	CrowdScore       float64     `json:"crowdScore"`
	UniqueIPs        int         `json:"uniqueIps"`
	VisitCount       int         `json:"visitCount"`
	FingerprintCount int         `json:"fingerprintCount"`
	CreatedAt        string      `json:"createdAt,omitempty"`
	LastVisit        string      `json:"lastVisit,omitempty"`
	LastScoreUpdate  string      `json:"lastScoreUpdate,omitempty"`
	RecentVisits     []VisitInfo `json:"recentVisits"`
}

// DailyStats is one per-UTC-day aggregate row.
type DailyStats struct {
	Date               string  `json:"date"`
	Total              int     `json:"total"`
	UniqueVisitors     int     `json:"uniqueVisitors"`
	ExactMatches       int     `json:"exactMatches"`
	StableMatches      int     `json:"stableMatches"`
	GPUMatches         int     `json:"gpuMatches"`
	FuzzyStableMatches int     `json:"fuzzyStableMatches"`
	FuzzyMatches       int     `json:"fuzzyMatches"`
	NewVisitors        int     `json:"newVisitors"`
	AvgEntropy         float64 `json:"avgEntropy"`
}

// StatsResponse wraps a stats window for API responses.
type StatsResponse struct {
	Days int          `json:"days"`
	Rows []DailyStats `json:"rows"`
}

// TotalsInfo carries whole-table row counts.
type TotalsInfo struct {
	Visitors     int64 `json:"visitors"`
	Fingerprints int64 `json:"fingerprints"`
	Sessions     int64 `json:"sessions"`
}

// DatabaseHealthInfo mirrors the store health check for transport.
type DatabaseHealthInfo struct {
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Readable       bool     `json:"readable"`
	MissingTables  []string `json:"missingTables,omitempty"`
	TotalVisitors  int64    `json:"totalVisitors"`
	IntegrityCheck bool     `json:"integrityCheck"`
	Error          string   `json:"error,omitempty"`
}

// Coarse health states reported by HealthResponse.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthResponse reports database condition with a coarse status string.
type HealthResponse struct {
	Status   string             `json:"status"`
	Database DatabaseHealthInfo `json:"database"`
}

// DaemonStatus aggregates daemon runtime information for status consumers.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	Bind         string     `json:"bind,omitempty"`
	DatabasePath string     `json:"databasePath"`
	SocketPath   string     `json:"socketPath,omitempty"`
	LockPath     string     `json:"lockPath,omitempty"`
	StartedAt    string     `json:"startedAt,omitempty"`
	Totals       TotalsInfo `json:"totals"`
}

// ErrorResponse is the wire form of request failures.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
