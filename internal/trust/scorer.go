package trust

import (
	"math"
	"time"

	"whorl/internal/visitors"
)

// Result is one scoring pass over a visitor's recent sessions.
type Result struct {
	Score      float64
	VisitCount int
	UniqueIPs  int
	DaySpan    int
	IsTrusted  bool
	Level      visitors.TrustLevel
}

// Assess scores the sessions inside the trust window. Callers pass the
// window-filtered session list; a visitor with no recent sessions scores
// zero at level new.
func Assess(sessions []*visitors.Session) Result {
	result := Result{Level: visitors.TrustNew}
	if len(sessions) == 0 {
		return result
	}

	result.VisitCount = len(sessions)
	result.UniqueIPs = countUniqueIPs(sessions)
	result.DaySpan = daySpan(sessions)

	visitFactor := 0.0
	switch {
	case result.VisitCount >= 10:
		visitFactor = 0.4
	case result.VisitCount >= 5:
		visitFactor = 0.3
	case result.VisitCount >= 3:
		visitFactor = 0.2
	case result.VisitCount >= 2:
		visitFactor = 0.1
	}

	ipFactor := 0.0
	switch {
	case result.UniqueIPs >= 3:
		ipFactor = 0.4
	case result.UniqueIPs >= 2:
		ipFactor = 0.3
	case result.UniqueIPs == 1 && result.VisitCount >= 3:
		ipFactor = 0.1
	}

	timeFactor := 0.0
	switch {
	case result.DaySpan >= 5:
		timeFactor = 0.2
	case result.DaySpan >= 3:
		timeFactor = 0.15
	case result.DaySpan >= 1:
		timeFactor = 0.1
	}

	result.Score = round2(visitFactor + ipFactor + timeFactor)
	result.IsTrusted = result.VisitCount >= 3 && result.UniqueIPs >= 2

	switch {
	case result.Score >= 0.7:
		result.Level = visitors.TrustVerified
	case result.IsTrusted:
		result.Level = visitors.TrustTrusted
	case result.VisitCount >= 2:
		result.Level = visitors.TrustReturning
	}

	return result
}

// Attrs converts a scoring result into the cached form stored on the
// visitor row.
func (r Result) Attrs() visitors.TrustAttrs {
	return visitors.TrustAttrs{
		Level:      r.Level,
		CrowdScore: r.Score,
		UniqueIPs:  r.UniqueIPs,
		VisitCount: r.VisitCount,
	}
}

func countUniqueIPs(sessions []*visitors.Session) int {
	seen := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		if session.IPAddress == "" {
			continue
		}
		seen[session.IPAddress] = struct{}{}
	}
	return len(seen)
}

// daySpan is the ceiling of the distance between the earliest and latest
// session, in days. A single session spans zero days.
func daySpan(sessions []*visitors.Session) int {
	earliest := sessions[0].FirstSeen
	latest := sessions[0].FirstSeen
	for _, session := range sessions[1:] {
		if session.FirstSeen.Before(earliest) {
			earliest = session.FirstSeen
		}
		if session.FirstSeen.After(latest) {
			latest = session.FirstSeen
		}
	}

	span := latest.Sub(earliest)
	if span <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	return int((span + day - 1) / day)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
