// Package visitors manages visitor identity persistence backed by SQLite.
//
// The store owns four tables: visitors (one row per identity, carrying the
// cached trust attributes), fingerprints (immutable submission records, many
// per visitor), sessions (append-only visit log with request metadata), and
// daily_stats (per-UTC-day aggregate counters).
//
// Write operations that conclude a match are transactional: a fingerprint and
// its session land together or not at all. Lookup helpers resolve hash
// collisions to the most recently created record, and the bounded recency
// scans feed the fuzzy match layers without ever walking the whole table.
package visitors
