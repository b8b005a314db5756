package visitors_test

import (
	"context"
	"math"
	"testing"
	"time"

	"whorl/internal/testsupport"
	"whorl/internal/visitors"
)

func newFingerprint(hash, fuzzy string) *visitors.NewFingerprint {
	return &visitors.NewFingerprint{
		Hash:      hash,
		FuzzyHash: fuzzy,
		Entropy:   12.5,
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected healthy database, got %#v", health)
	}
	if !health.TablesPresent {
		t.Fatalf("expected all tables present, missing %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatalf("expected integrity check ok, got %v", health.IntegrityCheck)
	}
}

func TestRecordNewVisitorRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	fp := newFingerprint(testsupport.Hash('a'), testsupport.Hash('b'))
	fp.StableHash = testsupport.Hash('c')
	fp.Browser = "Firefox"
	session := &visitors.NewSession{
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0",
	}

	result, err := store.RecordNewVisitor(ctx, fp, session)
	if err != nil {
		t.Fatalf("RecordNewVisitor failed: %v", err)
	}
	if result.VisitorID == "" || result.FingerprintID == "" || result.SessionID == "" {
		t.Fatalf("expected all ids assigned, got %#v", result)
	}

	visitor, err := store.GetVisitor(ctx, result.VisitorID)
	if err != nil {
		t.Fatalf("GetVisitor failed: %v", err)
	}
	if visitor == nil {
		t.Fatal("expected visitor row")
	}
	if visitor.TrustLevel != visitors.TrustNew {
		t.Fatalf("expected new trust level, got %q", visitor.TrustLevel)
	}
	if visitor.CreatedAt.IsZero() || visitor.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps set, got %#v", visitor)
	}

	stored, err := store.GetFingerprint(ctx, result.FingerprintID)
	if err != nil {
		t.Fatalf("GetFingerprint failed: %v", err)
	}
	if stored == nil || stored.VisitorID != result.VisitorID {
		t.Fatalf("unexpected fingerprint: %#v", stored)
	}
	if stored.StableHash != fp.StableHash || stored.Browser != "Firefox" {
		t.Fatalf("fingerprint fields not persisted: %#v", stored)
	}

	sessions, err := store.RecentSessions(ctx, result.VisitorID, 10)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].IPAddress != "203.0.113.7" || sessions[0].FingerprintID != result.FingerprintID {
		t.Fatalf("unexpected session: %#v", sessions[0])
	}
}

func TestFindByExactHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	hash := testsupport.Hash('1')
	result := testsupport.RecordVisitor(t, store, newFingerprint(hash, testsupport.Hash('2')), nil)

	found, err := store.FindByExactHash(ctx, hash)
	if err != nil {
		t.Fatalf("FindByExactHash failed: %v", err)
	}
	if found == nil || found.VisitorID != result.VisitorID {
		t.Fatalf("expected stored fingerprint, got %#v", found)
	}

	missing, err := store.FindByExactHash(ctx, testsupport.Hash('f'))
	if err != nil {
		t.Fatalf("FindByExactHash failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected no match, got %#v", missing)
	}
}

func TestFindByStableHashSkipsFingerprintsWithoutOne(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)

	found, err := store.FindByStableHash(ctx, "")
	if err != nil {
		t.Fatalf("FindByStableHash failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no match for empty stable hash, got %#v", found)
	}

	withStable := newFingerprint(testsupport.Hash('c'), testsupport.Hash('d'))
	withStable.StableHash = testsupport.Hash('e')
	result := testsupport.RecordVisitor(t, store, withStable, nil)

	found, err = store.FindByStableHash(ctx, withStable.StableHash)
	if err != nil {
		t.Fatalf("FindByStableHash failed: %v", err)
	}
	if found == nil || found.VisitorID != result.VisitorID {
		t.Fatalf("expected stable match, got %#v", found)
	}
}

func TestFindByExactHashPrefersMostRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	hash := testsupport.Hash('9')
	testsupport.RecordVisitor(t, store, newFingerprint(hash, testsupport.Hash('1')), nil)
	second := testsupport.RecordVisitor(t, store, newFingerprint(hash, testsupport.Hash('2')), nil)

	found, err := store.FindByExactHash(ctx, hash)
	if err != nil {
		t.Fatalf("FindByExactHash failed: %v", err)
	}
	if found == nil || found.VisitorID != second.VisitorID {
		t.Fatalf("expected most recent fingerprint to win, got %#v", found)
	}
}

func TestRecentFuzzyHashesOrderingAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('1')), nil)
	second := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('b'), testsupport.Hash('2')), nil)
	third := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('c'), testsupport.Hash('3')), nil)

	candidates, err := store.RecentFuzzyHashes(ctx, 2)
	if err != nil {
		t.Fatalf("RecentFuzzyHashes failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected limit to apply, got %d candidates", len(candidates))
	}
	if candidates[0].VisitorID != third.VisitorID || candidates[1].VisitorID != second.VisitorID {
		t.Fatalf("expected newest-first ordering, got %#v", candidates)
	}
	_ = first

	stable, err := store.RecentStableHashes(ctx, 10)
	if err != nil {
		t.Fatalf("RecentStableHashes failed: %v", err)
	}
	if len(stable) != 0 {
		t.Fatalf("expected no stable candidates, got %#v", stable)
	}
}

func TestRecordMatchAddsFingerprintAndSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	initial := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)

	match, err := store.RecordMatch(ctx, initial.VisitorID, newFingerprint(testsupport.Hash('c'), testsupport.Hash('d')), &visitors.NewSession{IPAddress: "198.51.100.8"})
	if err != nil {
		t.Fatalf("RecordMatch failed: %v", err)
	}
	if match.VisitorID != initial.VisitorID {
		t.Fatalf("expected same visitor, got %q", match.VisitorID)
	}
	if match.FingerprintID == initial.FingerprintID {
		t.Fatal("expected a new fingerprint row")
	}

	count, err := store.CountSessions(ctx, initial.VisitorID)
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two sessions, got %d", count)
	}
}

func TestRecordRepeatReusesFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	initial := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)

	repeat, err := store.RecordRepeat(ctx, initial.VisitorID, initial.FingerprintID, &visitors.NewSession{IPAddress: "198.51.100.9"})
	if err != nil {
		t.Fatalf("RecordRepeat failed: %v", err)
	}
	if repeat.FingerprintID != initial.FingerprintID {
		t.Fatalf("expected fingerprint reuse, got %q", repeat.FingerprintID)
	}

	summary, err := store.VisitorSummary(ctx, initial.VisitorID, 10)
	if err != nil {
		t.Fatalf("VisitorSummary failed: %v", err)
	}
	if summary == nil {
		t.Fatal("expected summary")
	}
	if summary.VisitCount != 2 || summary.FingerprintCount != 1 {
		t.Fatalf("expected 2 visits over 1 fingerprint, got %#v", summary)
	}
	if summary.LastVisit == nil {
		t.Fatal("expected last visit timestamp")
	}
}

func TestRecentVisitsJoinsFingerprintBrowser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	chrome := newFingerprint(testsupport.Hash('a'), testsupport.Hash('b'))
	chrome.Browser = "Chrome"
	initial := testsupport.RecordVisitor(t, store, chrome, &visitors.NewSession{IPAddress: "198.51.100.1"})

	firefox := newFingerprint(testsupport.Hash('c'), testsupport.Hash('d'))
	firefox.Browser = "Firefox"
	if _, err := store.RecordMatch(ctx, initial.VisitorID, firefox, &visitors.NewSession{IPAddress: "198.51.100.2", UserAgent: "Mozilla/5.0"}); err != nil {
		t.Fatalf("RecordMatch failed: %v", err)
	}

	visits, err := store.RecentVisits(ctx, initial.VisitorID, 10)
	if err != nil {
		t.Fatalf("RecentVisits failed: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("expected two visits, got %d", len(visits))
	}
	if visits[0].Browser != "Firefox" || visits[0].IPAddress != "198.51.100.2" {
		t.Fatalf("unexpected newest visit: %#v", visits[0])
	}
	if visits[0].UserAgent != "Mozilla/5.0" {
		t.Fatalf("expected user agent carried through, got %q", visits[0].UserAgent)
	}
	if visits[1].Browser != "Chrome" || visits[1].IPAddress != "198.51.100.1" {
		t.Fatalf("unexpected older visit: %#v", visits[1])
	}
	if visits[0].Timestamp.IsZero() || visits[1].Timestamp.IsZero() {
		t.Fatal("expected visit timestamps set")
	}
}

func TestEnsureVisitorIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.EnsureVisitor(ctx, "visitor-restored"); err != nil {
		t.Fatalf("EnsureVisitor failed: %v", err)
	}
	visitor, err := store.GetVisitor(ctx, "visitor-restored")
	if err != nil {
		t.Fatalf("GetVisitor failed: %v", err)
	}
	if visitor == nil || visitor.TrustLevel != visitors.TrustNew {
		t.Fatalf("expected re-created visitor, got %#v", visitor)
	}
	created := visitor.CreatedAt

	if err := store.EnsureVisitor(ctx, "visitor-restored"); err != nil {
		t.Fatalf("EnsureVisitor second call failed: %v", err)
	}
	again, err := store.GetVisitor(ctx, "visitor-restored")
	if err != nil {
		t.Fatalf("GetVisitor failed: %v", err)
	}
	if !again.CreatedAt.Equal(created) {
		t.Fatalf("expected creation time preserved, got %v then %v", created, again.CreatedAt)
	}
}

func TestUpdateVisitorTrust(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	result := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)

	attrs := visitors.TrustAttrs{
		Level:      visitors.TrustTrusted,
		CrowdScore: 0.45,
		UniqueIPs:  3,
		VisitCount: 6,
	}
	if err := store.UpdateVisitorTrust(ctx, result.VisitorID, attrs); err != nil {
		t.Fatalf("UpdateVisitorTrust failed: %v", err)
	}

	visitor, err := store.GetVisitor(ctx, result.VisitorID)
	if err != nil {
		t.Fatalf("GetVisitor failed: %v", err)
	}
	if visitor.TrustLevel != visitors.TrustTrusted || visitor.CrowdScore != 0.45 {
		t.Fatalf("trust attrs not persisted: %#v", visitor)
	}
	if visitor.UniqueIPs != 3 || visitor.VisitCount != 6 {
		t.Fatalf("trust counts not persisted: %#v", visitor)
	}
	if visitor.LastScoreUpdate == nil {
		t.Fatal("expected last score update timestamp")
	}
}

func TestSessionsSinceWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	result := testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)

	past := time.Now().UTC().Add(-time.Hour)
	sessions, err := store.SessionsSince(ctx, result.VisitorID, past)
	if err != nil {
		t.Fatalf("SessionsSince failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session in window, got %d", len(sessions))
	}

	future := time.Now().UTC().Add(time.Hour)
	sessions, err = store.SessionsSince(ctx, result.VisitorID, future)
	if err != nil {
		t.Fatalf("SessionsSince failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions after cutoff, got %d", len(sessions))
	}
}

func TestUpsertDailyStatsFoldsDeltas(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	day := time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)

	deltas := []visitors.StatsDelta{
		{MatchType: visitors.MatchExact, UniqueVisitor: true, Entropy: 10, HasEntropy: true},
		{MatchType: visitors.MatchFuzzy, Entropy: 20, HasEntropy: true},
		{MatchType: visitors.MatchNew, NewVisitor: true, UniqueVisitor: true},
	}
	for _, delta := range deltas {
		if err := store.UpsertDailyStats(ctx, day, delta); err != nil {
			t.Fatalf("UpsertDailyStats failed: %v", err)
		}
	}

	stats, err := store.StatsRange(ctx, 365)
	if err != nil {
		t.Fatalf("StatsRange failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one aggregate row, got %d", len(stats))
	}
	row := stats[0]
	if row.Date != "2026-02-14" {
		t.Fatalf("unexpected date key %q", row.Date)
	}
	if row.Total != 3 || row.UniqueVisitors != 2 || row.NewVisitors != 1 {
		t.Fatalf("unexpected counts: %#v", row)
	}
	if row.ExactMatches != 1 || row.FuzzyMatches != 1 || row.StableMatches != 0 {
		t.Fatalf("unexpected match counts: %#v", row)
	}
	if math.Abs(row.AvgEntropy-15.0) > 1e-9 {
		t.Fatalf("expected entropy average over carrying submissions only, got %v", row.AvgEntropy)
	}
}

func TestStatsRangeFiltersOldDays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	today := time.Now().UTC()
	old := today.AddDate(0, 0, -30)

	if err := store.UpsertDailyStats(ctx, today, visitors.StatsDelta{MatchType: visitors.MatchExact}); err != nil {
		t.Fatalf("UpsertDailyStats failed: %v", err)
	}
	if err := store.UpsertDailyStats(ctx, old, visitors.StatsDelta{MatchType: visitors.MatchExact}); err != nil {
		t.Fatalf("UpsertDailyStats failed: %v", err)
	}

	stats, err := store.StatsRange(ctx, 7)
	if err != nil {
		t.Fatalf("StatsRange failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected only recent rows, got %d", len(stats))
	}

	stats, err = store.StatsRange(ctx, 60)
	if err != nil {
		t.Fatalf("StatsRange failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected both rows in wide range, got %d", len(stats))
	}
	if stats[0].Date < stats[1].Date {
		t.Fatalf("expected newest-first ordering, got %q then %q", stats[0].Date, stats[1].Date)
	}
}

func TestTotalsAndFlush(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('a'), testsupport.Hash('b')), nil)
	testsupport.RecordVisitor(t, store, newFingerprint(testsupport.Hash('c'), testsupport.Hash('d')), nil)

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.Visitors != 2 || totals.Fingerprints != 2 || totals.Sessions != 2 {
		t.Fatalf("unexpected totals: %#v", totals)
	}

	removed, err := store.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 visitors removed, got %d", removed)
	}

	totals, err = store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.Visitors != 0 || totals.Fingerprints != 0 || totals.Sessions != 0 {
		t.Fatalf("expected empty database after flush, got %#v", totals)
	}
}
