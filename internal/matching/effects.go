package matching

import (
	"context"
	"time"

	"whorl/internal/logging"
	"whorl/internal/trust"
	"whorl/internal/visitors"
)

// queueEffects schedules the daily-stats upsert and the trust cache refresh
// for one accepted request. Effects run detached from the request context so
// a client disconnect cannot lose them; failures are logged, never returned.
func (e *Engine) queueEffects(visitorID string, delta visitors.StatsDelta) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), effectsTimeout)
		defer cancel()

		day := time.Now().UTC()
		if err := e.store.UpsertDailyStats(ctx, day, delta); err != nil {
			e.logger.Warn("daily stats update failed",
				logging.String("date", day.Format("2006-01-02")),
				logging.String(logging.FieldVisitorID, visitorID),
				logging.Error(err))
		}

		e.refreshTrustCache(ctx, visitorID)
	}()
}

// refreshTrustCache recomputes the score after the session write so the
// cached attributes fold in the visit just recorded. Last writer wins under
// concurrent requests; the scorer stays authoritative.
func (e *Engine) refreshTrustCache(ctx context.Context, visitorID string) {
	sessions, err := e.store.SessionsSince(ctx, visitorID, time.Now().UTC().Add(-e.trustWindow))
	if err != nil {
		e.logger.Warn("trust refresh read failed",
			logging.String(logging.FieldVisitorID, visitorID),
			logging.Error(err))
		return
	}

	result := trust.Assess(sessions)
	if err := e.store.UpdateVisitorTrust(ctx, visitorID, result.Attrs()); err != nil {
		e.logger.Warn("trust cache update failed",
			logging.String(logging.FieldVisitorID, visitorID),
			logging.String("trust_level", string(result.Level)),
			logging.Error(err))
	}
}
