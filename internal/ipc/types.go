package ipc

import "whorl/internal/api"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP API daemon status DTO for IPC callers.
type StatusResponse = api.DaemonStatus

// StatsRequest selects the daily-stats window in days. Zero falls back to
// the default window.
type StatsRequest struct {
	Days int `json:"days"`
}

// StatsResponse mirrors the HTTP API stats payload.
type StatsResponse = api.StatsResponse

// VisitorDescribeRequest fetches a single visitor by id.
type VisitorDescribeRequest struct {
	ID string `json:"id"`
}

// VisitorDetail mirrors the HTTP API visitor DTO for IPC callers.
type VisitorDetail = api.VisitorDetail

// VisitorDescribeResponse contains one visitor summary.
type VisitorDescribeResponse struct {
	Visitor VisitorDetail `json:"visitor"`
}

// HealthRequest fetches detailed database diagnostics.
type HealthRequest struct{}

// HealthResponse mirrors the HTTP API health payload.
type HealthResponse = api.HealthResponse

// FlushRequest wipes all visitor data.
type FlushRequest struct{}

// FlushResponse reports how many visitors were removed.
type FlushResponse struct {
	Removed int64 `json:"removed"`
}
