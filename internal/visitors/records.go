package visitors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordNewVisitor creates a visitor together with its first fingerprint and
// session in one transaction.
func (s *Store) RecordNewVisitor(ctx context.Context, fp *NewFingerprint, session *NewSession) (*WriteResult, error) {
	result := &WriteResult{
		VisitorID:     uuid.NewString(),
		FingerprintID: uuid.NewString(),
		SessionID:     uuid.NewString(),
	}
	now := nowUTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx, `
            INSERT INTO visitors (id, created_at, updated_at, trust_level, crowd_score, unique_ips, visit_count)
            VALUES (?, ?, ?, 'new', 0, 0, 0)
        `, result.VisitorID, formatTime(now), formatTime(now)); execErr != nil {
			return fmt.Errorf("insert visitor: %w", execErr)
		}
		if execErr := insertFingerprint(ctx, tx, result.FingerprintID, result.VisitorID, fp, now); execErr != nil {
			return execErr
		}
		return insertSession(ctx, tx, result.SessionID, result.VisitorID, result.FingerprintID, session, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordMatch stores a newly observed fingerprint under an existing visitor
// and records the visit, in one transaction.
func (s *Store) RecordMatch(ctx context.Context, visitorID string, fp *NewFingerprint, session *NewSession) (*WriteResult, error) {
	result := &WriteResult{
		VisitorID:     visitorID,
		FingerprintID: uuid.NewString(),
		SessionID:     uuid.NewString(),
	}
	now := nowUTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if execErr := insertFingerprint(ctx, tx, result.FingerprintID, visitorID, fp, now); execErr != nil {
			return execErr
		}
		if execErr := insertSession(ctx, tx, result.SessionID, visitorID, result.FingerprintID, session, now); execErr != nil {
			return execErr
		}
		return touchVisitor(ctx, tx, visitorID, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordRepeat records a visit against a fingerprint the visitor has already
// submitted, without storing a duplicate fingerprint row.
func (s *Store) RecordRepeat(ctx context.Context, visitorID, fingerprintID string, session *NewSession) (*WriteResult, error) {
	result := &WriteResult{
		VisitorID:     visitorID,
		FingerprintID: fingerprintID,
		SessionID:     uuid.NewString(),
	}
	now := nowUTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if execErr := insertSession(ctx, tx, result.SessionID, visitorID, fingerprintID, session, now); execErr != nil {
			return execErr
		}
		return touchVisitor(ctx, tx, visitorID, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureVisitor re-creates a visitor row when a signed token references an id
// the database no longer holds.
func (s *Store) EnsureVisitor(ctx context.Context, visitorID string) error {
	now := formatTime(nowUTC())
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO visitors (id, created_at, updated_at, trust_level, crowd_score, unique_ips, visit_count)
        VALUES (?, ?, ?, 'new', 0, 0, 0)
        ON CONFLICT(id) DO NOTHING
    `, visitorID, now, now); err != nil {
		return fmt.Errorf("ensure visitor %s: %w", visitorID, err)
	}
	return nil
}

// UpdateVisitorTrust replaces the cached trust attributes for a visitor.
func (s *Store) UpdateVisitorTrust(ctx context.Context, visitorID string, attrs TrustAttrs) error {
	now := formatTime(nowUTC())
	if _, err := s.db.ExecContext(ctx, `
        UPDATE visitors
        SET trust_level = ?, crowd_score = ?, unique_ips = ?, visit_count = ?, last_score_update = ?, updated_at = ?
        WHERE id = ?
    `, string(attrs.Level), attrs.CrowdScore, attrs.UniqueIPs, attrs.VisitCount, now, now, visitorID); err != nil {
		return fmt.Errorf("update visitor trust %s: %w", visitorID, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertFingerprint(ctx context.Context, tx *sql.Tx, id, visitorID string, fp *NewFingerprint, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO fingerprints (id, visitor_id, fingerprint_hash, fuzzy_hash, stable_hash, gpu_timing_hash, components_json, entropy, confidence, is_farbled, browser, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		id,
		visitorID,
		fp.Hash,
		fp.FuzzyHash,
		nullableString(fp.StableHash),
		nullableString(fp.GPUTimingHash),
		nullableString(fp.ComponentsJSON),
		fp.Entropy,
		fp.Confidence,
		boolToInt(fp.IsFarbled),
		nullableString(fp.Browser),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("insert fingerprint: %w", err)
	}
	return nil
}

func insertSession(ctx context.Context, tx *sql.Tx, id, visitorID, fingerprintID string, session *NewSession, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO sessions (id, visitor_id, fingerprint_id, ip_address, user_agent, referer, tls_ja4, tls_ja3, header_order_hash, first_seen, last_seen)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		id,
		visitorID,
		fingerprintID,
		nullableString(session.IPAddress),
		nullableString(session.UserAgent),
		nullableString(session.Referer),
		nullableString(session.TLSJA4),
		nullableString(session.TLSJA3),
		nullableString(session.HeaderOrderHash),
		formatTime(now),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func touchVisitor(ctx context.Context, tx *sql.Tx, visitorID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE visitors SET updated_at = ? WHERE id = ?",
		formatTime(now), visitorID,
	); err != nil {
		return fmt.Errorf("touch visitor %s: %w", visitorID, err)
	}
	return nil
}
