package visitors

import (
	"context"
	"fmt"
	"time"
)

// UpsertDailyStats folds one identification into the aggregate row for the
// given UTC day, creating the row on first write. The running entropy average
// only absorbs submissions that carried an entropy value.
func (s *Store) UpsertDailyStats(ctx context.Context, day time.Time, delta StatsDelta) error {
	var exact, stable, gpu, fuzzyStable, fuzzy int
	switch delta.MatchType {
	case MatchExact:
		exact = 1
	case MatchStable:
		stable = 1
	case MatchGPU:
		gpu = 1
	case MatchFuzzyStable:
		fuzzyStable = 1
	case MatchFuzzy:
		fuzzy = 1
	}

	entropyValue := 0.0
	if delta.HasEntropy {
		entropyValue = delta.Entropy
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO daily_stats (date, total_identifications, unique_visitors, exact_matches, stable_matches, gpu_matches, fuzzy_stable_matches, fuzzy_matches, new_visitors, avg_entropy, entropy_samples)
        VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(date) DO UPDATE SET
            total_identifications = total_identifications + 1,
            unique_visitors = unique_visitors + excluded.unique_visitors,
            exact_matches = exact_matches + excluded.exact_matches,
            stable_matches = stable_matches + excluded.stable_matches,
            gpu_matches = gpu_matches + excluded.gpu_matches,
            fuzzy_stable_matches = fuzzy_stable_matches + excluded.fuzzy_stable_matches,
            fuzzy_matches = fuzzy_matches + excluded.fuzzy_matches,
            new_visitors = new_visitors + excluded.new_visitors,
            avg_entropy = CASE WHEN excluded.entropy_samples > 0
                THEN (avg_entropy * entropy_samples + excluded.avg_entropy) / (entropy_samples + 1)
                ELSE avg_entropy END,
            entropy_samples = entropy_samples + excluded.entropy_samples
    `,
		day.UTC().Format(dateLayout),
		boolToInt(delta.UniqueVisitor),
		exact,
		stable,
		gpu,
		fuzzyStable,
		fuzzy,
		boolToInt(delta.NewVisitor),
		entropyValue,
		boolToInt(delta.HasEntropy),
	)
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

// StatsRange returns aggregate rows for the last days UTC days including
// today, newest first. Days with no identifications have no row.
func (s *Store) StatsRange(ctx context.Context, days int) ([]*DailyStats, error) {
	if days < 1 {
		days = 1
	}
	cutoff := nowUTC().AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
        SELECT date, total_identifications, unique_visitors, exact_matches, stable_matches, gpu_matches, fuzzy_stable_matches, fuzzy_matches, new_visitors, avg_entropy
        FROM daily_stats
        WHERE date >= ?
        ORDER BY date DESC
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*DailyStats
	for rows.Next() {
		row := &DailyStats{}
		if scanErr := rows.Scan(
			&row.Date,
			&row.Total,
			&row.UniqueVisitors,
			&row.ExactMatches,
			&row.StableMatches,
			&row.GPUMatches,
			&row.FuzzyStableMatches,
			&row.FuzzyMatches,
			&row.NewVisitors,
			&row.AvgEntropy,
		); scanErr != nil {
			return nil, fmt.Errorf("scan daily stats: %w", scanErr)
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return stats, nil
}

// Totals returns table-level counts for status reporting.
func (s *Store) Totals(ctx context.Context) (*Totals, error) {
	totals := &Totals{}
	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM visitors", &totals.Visitors},
		{"SELECT COUNT(*) FROM fingerprints", &totals.Fingerprints},
		{"SELECT COUNT(*) FROM sessions", &totals.Sessions},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
	}
	return totals, nil
}
