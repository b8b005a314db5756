// Package api defines wire-format types and converters for the HTTP and IPC
// surfaces. It translates engine and store models into transport-friendly
// DTOs that browser clients and the CLI can render without coupling to
// internal types.
//
// # Key Types
//
// IdentifySubmission: wire form of one identification request, matching the
// payload the browser fingerprinting script posts.
//
// IdentifyResponse: the identification decision with visitor summary, request
// echo, recent visits, and optional persistent-identity advice.
//
// VisitorDetail: admin view of a visitor with cached trust attributes, live
// counts, and recent activity.
//
// StatsResponse/DailyStats: per-UTC-day aggregate rows for the stats surface.
//
// HealthResponse/DaemonStatus: database condition and daemon runtime state.
//
// # Converters
//
// ToSubmission: IdentifySubmission + transport metadata -> matching.Submission.
//
// FromMatch: matching.Result -> IdentifyResponse.
//
// FromVisitorSummary: visitors.Summary -> VisitorDetail.
//
// FromDailyStats/FromHealth/FromTotals: store read models -> DTOs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Internal enums
// (visitors.MatchType, visitors.TrustLevel) are exposed as their lowercase
// string values. Timestamps use RFC3339 with milliseconds. Components are
// passed through as json.RawMessage to avoid double-encoding. The client
// timestamp on submissions is informational and never interpreted.
package api
