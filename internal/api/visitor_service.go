package api

import (
	"context"

	"whorl/internal/visitors"
)

const (
	// DefaultStatsDays is the stats window used when a caller does not name
	// one.
	DefaultStatsDays = 7
	// MaxStatsDays caps the stats window.
	MaxStatsDays = 90
	// recentVisitLimit bounds visit lists on detail views.
	recentVisitLimit = 10
)

// VisitorReader abstracts the store reads needed for API queries.
type VisitorReader interface {
	VisitorSummary(ctx context.Context, visitorID string, recentLimit int) (*visitors.Summary, error)
	StatsRange(ctx context.Context, days int) ([]*visitors.DailyStats, error)
	Totals(ctx context.Context) (*visitors.Totals, error)
	CheckHealth(ctx context.Context) (visitors.DatabaseHealth, error)
}

// VisitorService exposes read-only visitor operations returning API DTOs.
type VisitorService struct {
	store VisitorReader
}

// NewVisitorService constructs a VisitorService around the provided reader.
func NewVisitorService(store VisitorReader) *VisitorService {
	if store == nil {
		return nil
	}
	return &VisitorService{store: store}
}

// Describe fetches a single visitor with recent activity. Returns nil when
// the visitor does not exist.
func (s *VisitorService) Describe(ctx context.Context, visitorID string) (*VisitorDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	summary, err := s.store.VisitorSummary(ctx, visitorID, recentVisitLimit)
	if err != nil || summary == nil {
		return nil, err
	}
	detail := FromVisitorSummary(summary)
	return &detail, nil
}

// Stats returns the daily stats window. Days at or below zero fall back to
// the default; anything above the cap is clamped.
func (s *VisitorService) Stats(ctx context.Context, days int) (*StatsResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	days = ClampStatsDays(days)
	rows, err := s.store.StatsRange(ctx, days)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Days: days, Rows: FromDailyStats(rows)}, nil
}

// Health reports database condition. Failures degrade the report rather than
// erroring so the health surface always answers.
func (s *VisitorService) Health(ctx context.Context) HealthResponse {
	if s == nil || s.store == nil {
		return HealthResponse{Status: HealthDegraded}
	}
	health, err := s.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	return FromHealth(&health)
}

// Totals returns whole-table row counts.
func (s *VisitorService) Totals(ctx context.Context) (TotalsInfo, error) {
	if s == nil || s.store == nil {
		return TotalsInfo{}, nil
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return TotalsInfo{}, err
	}
	return FromTotals(totals), nil
}

// ClampStatsDays normalizes a requested stats window.
func ClampStatsDays(days int) int {
	if days <= 0 {
		return DefaultStatsDays
	}
	if days > MaxStatsDays {
		return MaxStatsDays
	}
	return days
}
