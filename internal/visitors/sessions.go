package visitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetVisitor returns a visitor by id, or nil when it does not exist.
func (s *Store) GetVisitor(ctx context.Context, visitorID string) (*Visitor, error) {
	query := fmt.Sprintf("SELECT %s FROM visitors WHERE id = ?", visitorColumns)
	row := s.db.QueryRowContext(ctx, query, visitorID)
	visitor, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visitor %s: %w", visitorID, err)
	}
	return visitor, nil
}

// RecentSessions returns up to limit sessions for a visitor, newest first.
func (s *Store) RecentSessions(ctx context.Context, visitorID string, limit int) ([]*Session, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM sessions
        WHERE visitor_id = ?
        ORDER BY first_seen DESC, rowid DESC
        LIMIT ?
    `, sessionColumns)
	return s.querySessions(ctx, query, visitorID, limit)
}

// SessionsSince returns all sessions for a visitor first seen at or after the
// given instant, oldest first.
func (s *Store) SessionsSince(ctx context.Context, visitorID string, since time.Time) ([]*Session, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM sessions
        WHERE visitor_id = ? AND first_seen >= ?
        ORDER BY first_seen ASC, rowid ASC
    `, sessionColumns)
	return s.querySessions(ctx, query, visitorID, formatTime(since))
}

// CountSessions returns the total number of recorded sessions for a visitor.
func (s *Store) CountSessions(ctx context.Context, visitorID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE visitor_id = ?",
		visitorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// RecentVisits returns up to limit visits for a visitor, newest first. Each
// row joins the session with the browser recorded on its fingerprint.
func (s *Store) RecentVisits(ctx context.Context, visitorID string, limit int) ([]*Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.first_seen, s.ip_address, s.user_agent, COALESCE(f.browser, '')
        FROM sessions s
        LEFT JOIN fingerprints f ON f.id = s.fingerprint_id
        WHERE s.visitor_id = ?
        ORDER BY s.first_seen DESC, s.rowid DESC
        LIMIT ?
    `, visitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		var firstSeen, browser string
		var ip, agent sql.NullString
		if err := rows.Scan(&firstSeen, &ip, &agent, &browser); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		timestamp, err := parseTimeString(firstSeen)
		if err != nil {
			return nil, fmt.Errorf("parse visit timestamp: %w", err)
		}
		visits = append(visits, &Visit{
			Timestamp: timestamp,
			IPAddress: ip.String,
			Browser:   browser,
			UserAgent: agent.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan session: %w", scanErr)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// VisitorSummary assembles the visitor row with live visit and fingerprint
// counts plus the most recent visits. Returns nil when the visitor does not
// exist.
func (s *Store) VisitorSummary(ctx context.Context, visitorID string, recentLimit int) (*Summary, error) {
	visitor, err := s.GetVisitor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if visitor == nil {
		return nil, nil
	}

	visitCount, err := s.CountSessions(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	var fingerprintCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fingerprints WHERE visitor_id = ?",
		visitorID,
	).Scan(&fingerprintCount); err != nil {
		return nil, fmt.Errorf("count fingerprints: %w", err)
	}

	recent, err := s.RecentVisits(ctx, visitorID, recentLimit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Visitor:          visitor,
		VisitCount:       visitCount,
		FingerprintCount: fingerprintCount,
		Recent:           recent,
	}
	if len(recent) > 0 {
		last := recent[0].Timestamp
		summary.LastVisit = &last
	}
	return summary, nil
}
