package visitors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

var requiredTables = []string{"visitors", "fingerprints", "sessions", "daily_stats"}

// CheckHealth returns diagnostic information about the visitor database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath: s.path,
	}

	if s.path == "" {
		return health, errors.New("visitor database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat visitor database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("visitor database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("visitor database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping visitor database: %w", err)
	}
	health.DatabaseReadable = true

	present := make(map[string]bool, len(requiredTables))
	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			rows.Close()
			health.Error = scanErr.Error()
			return health, fmt.Errorf("scan table info: %w", scanErr)
		}
		present[name] = true
	}
	if closeErr := rows.Close(); closeErr != nil {
		return health, fmt.Errorf("close table info: %w", closeErr)
	}
	if err := rows.Err(); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("iterate table info: %w", err)
	}

	health.TablesPresent = true
	for _, table := range requiredTables {
		if !present[table] {
			health.TablesPresent = false
			health.MissingTables = append(health.MissingTables, table)
		}
	}

	if health.TablesPresent {
		row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM visitors")
		if err := row.Scan(&health.TotalVisitors); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count visitors: %w", err)
		}
	}

	var integrity string
	row := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	if err := row.Scan(&integrity); err != nil && !errors.Is(err, sql.ErrNoRows) {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = integrity == "ok"

	return health, nil
}

// Flush removes all visitors, fingerprints, sessions, and daily aggregates.
// Returns the number of visitors removed.
func (s *Store) Flush(ctx context.Context) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"sessions", "fingerprints", "daily_stats"} {
			if _, execErr := tx.ExecContext(ctx, "DELETE FROM "+table); execErr != nil {
				return fmt.Errorf("flush %s: %w", table, execErr)
			}
		}
		res, execErr := tx.ExecContext(ctx, "DELETE FROM visitors")
		if execErr != nil {
			return fmt.Errorf("flush visitors: %w", execErr)
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return fmt.Errorf("flush visitors: %w", affErr)
		}
		removed = affected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
