package visitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindByExactHash returns the most recently stored fingerprint with the given
// full hash, or nil when no fingerprint matches.
func (s *Store) FindByExactHash(ctx context.Context, hash string) (*Fingerprint, error) {
	return s.findFingerprint(ctx, "fingerprint_hash = ?", hash)
}

// FindByStableHash returns the most recently stored fingerprint with the given
// stable hash. Fingerprints without a stable hash are never considered.
func (s *Store) FindByStableHash(ctx context.Context, stableHash string) (*Fingerprint, error) {
	return s.findFingerprint(ctx, "stable_hash = ? AND stable_hash IS NOT NULL AND stable_hash <> ''", stableHash)
}

// FindByGPUTimingHash returns the most recently stored fingerprint with the
// given GPU timing hash.
func (s *Store) FindByGPUTimingHash(ctx context.Context, gpuHash string) (*Fingerprint, error) {
	return s.findFingerprint(ctx, "gpu_timing_hash = ? AND gpu_timing_hash IS NOT NULL AND gpu_timing_hash <> ''", gpuHash)
}

func (s *Store) findFingerprint(ctx context.Context, where string, args ...any) (*Fingerprint, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM fingerprints WHERE %s ORDER BY created_at DESC, rowid DESC LIMIT 1",
		fingerprintColumns, where,
	)
	row := s.db.QueryRowContext(ctx, query, args...)
	fp, err := scanFingerprint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find fingerprint: %w", err)
	}
	return fp, nil
}

// RecentStableHashes returns up to limit stable hashes ordered newest first,
// for near-match scanning against fingerprints that carry a stable hash.
func (s *Store) RecentStableHashes(ctx context.Context, limit int) ([]HashCandidate, error) {
	query := `
        SELECT id, visitor_id, stable_hash
        FROM fingerprints
        WHERE stable_hash IS NOT NULL AND stable_hash <> ''
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
	return s.queryHashCandidates(ctx, query, limit)
}

// RecentFuzzyHashes returns up to limit fuzzy hashes ordered newest first.
func (s *Store) RecentFuzzyHashes(ctx context.Context, limit int) ([]HashCandidate, error) {
	query := `
        SELECT id, visitor_id, fuzzy_hash
        FROM fingerprints
        WHERE fuzzy_hash IS NOT NULL AND fuzzy_hash <> ''
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
	return s.queryHashCandidates(ctx, query, limit)
}

func (s *Store) queryHashCandidates(ctx context.Context, query string, limit int) ([]HashCandidate, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query hash candidates: %w", err)
	}
	defer rows.Close()

	var candidates []HashCandidate
	for rows.Next() {
		var candidate HashCandidate
		if scanErr := rows.Scan(&candidate.FingerprintID, &candidate.VisitorID, &candidate.Hash); scanErr != nil {
			return nil, fmt.Errorf("scan hash candidate: %w", scanErr)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hash candidates: %w", err)
	}
	return candidates, nil
}

// GetFingerprint returns a fingerprint by id, or nil when it does not exist.
func (s *Store) GetFingerprint(ctx context.Context, id string) (*Fingerprint, error) {
	query := fmt.Sprintf("SELECT %s FROM fingerprints WHERE id = ?", fingerprintColumns)
	row := s.db.QueryRowContext(ctx, query, id)
	fp, err := scanFingerprint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fingerprint %s: %w", id, err)
	}
	return fp, nil
}
