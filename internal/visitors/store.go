package visitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"whorl/internal/config"
)

// storedTimeLayout fixes persisted timestamps to UTC with millisecond
// precision so lexical comparison in SQL matches chronological order.
const storedTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// dateLayout keys daily_stats rows by UTC calendar day.
const dateLayout = "2006-01-02"

// Store manages visitor identity persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the visitor database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	// busy_timeout and foreign_keys are per-connection pragmas; the DSN form
	// applies them to every pooled connection, not just the first.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(storedTimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

const visitorColumns = "id, created_at, updated_at, trust_level, crowd_score, unique_ips, visit_count, last_score_update"

func scanVisitor(scanner interface{ Scan(dest ...any) error }) (*Visitor, error) {
	var (
		id            string
		createdRaw    string
		updatedRaw    string
		trustLevel    string
		crowdScore    float64
		uniqueIPs     int
		visitCount    int
		lastUpdateRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&createdRaw,
		&updatedRaw,
		&trustLevel,
		&crowdScore,
		&uniqueIPs,
		&visitCount,
		&lastUpdateRaw,
	); err != nil {
		return nil, err
	}

	visitor := &Visitor{
		ID:         id,
		TrustLevel: TrustLevel(trustLevel),
		CrowdScore: crowdScore,
		UniqueIPs:  uniqueIPs,
		VisitCount: visitCount,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		visitor.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		visitor.UpdatedAt = updated
	}
	if lastUpdateRaw.Valid {
		if updated, err := parseTimeString(lastUpdateRaw.String); err == nil {
			visitor.LastScoreUpdate = &updated
		}
	}
	return visitor, nil
}

const fingerprintColumns = "id, visitor_id, fingerprint_hash, fuzzy_hash, stable_hash, gpu_timing_hash, components_json, entropy, confidence, is_farbled, browser, created_at"

func scanFingerprint(scanner interface{ Scan(dest ...any) error }) (*Fingerprint, error) {
	var (
		id         string
		visitorID  string
		hash       string
		fuzzyHash  string
		stableHash sql.NullString
		gpuHash    sql.NullString
		components sql.NullString
		entropy    float64
		confidence float64
		isFarbled  sql.NullInt64
		browser    sql.NullString
		createdRaw string
	)

	if err := scanner.Scan(
		&id,
		&visitorID,
		&hash,
		&fuzzyHash,
		&stableHash,
		&gpuHash,
		&components,
		&entropy,
		&confidence,
		&isFarbled,
		&browser,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	fp := &Fingerprint{
		ID:             id,
		VisitorID:      visitorID,
		Hash:           hash,
		FuzzyHash:      fuzzyHash,
		StableHash:     stableHash.String,
		GPUTimingHash:  gpuHash.String,
		ComponentsJSON: components.String,
		Entropy:        entropy,
		Confidence:     confidence,
		Browser:        browser.String,
	}
	if isFarbled.Valid {
		fp.IsFarbled = isFarbled.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		fp.CreatedAt = created
	}
	return fp, nil
}

const sessionColumns = "id, visitor_id, fingerprint_id, ip_address, user_agent, referer, tls_ja4, tls_ja3, header_order_hash, first_seen, last_seen"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id            string
		visitorID     string
		fingerprintID string
		ipAddress     sql.NullString
		userAgent     sql.NullString
		referer       sql.NullString
		tlsJA4        sql.NullString
		tlsJA3        sql.NullString
		headerOrder   sql.NullString
		firstSeenRaw  string
		lastSeenRaw   string
	)

	if err := scanner.Scan(
		&id,
		&visitorID,
		&fingerprintID,
		&ipAddress,
		&userAgent,
		&referer,
		&tlsJA4,
		&tlsJA3,
		&headerOrder,
		&firstSeenRaw,
		&lastSeenRaw,
	); err != nil {
		return nil, err
	}

	session := &Session{
		ID:              id,
		VisitorID:       visitorID,
		FingerprintID:   fingerprintID,
		IPAddress:       ipAddress.String,
		UserAgent:       userAgent.String,
		Referer:         referer.String,
		TLSJA4:          tlsJA4.String,
		TLSJA3:          tlsJA3.String,
		HeaderOrderHash: headerOrder.String,
	}
	if first, err := parseTimeString(firstSeenRaw); err == nil {
		session.FirstSeen = first
	}
	if last, err := parseTimeString(lastSeenRaw); err == nil {
		session.LastSeen = last
	}
	return session, nil
}
