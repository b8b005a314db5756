package api

import (
	"time"

	"whorl/internal/matching"
	"whorl/internal/visitors"
)

// ToSubmission converts a wire submission plus transport metadata into the
// engine's input form. Components are retained verbatim; the client timestamp
// is informational and intentionally not carried.
func ToSubmission(req *IdentifySubmission, meta matching.RequestMeta) *matching.Submission {
	if req == nil {
		return &matching.Submission{Request: meta}
	}
	sub := &matching.Submission{
		Fingerprint:     req.Fingerprint,
		FuzzyHash:       req.FuzzyHash,
		StableHash:      req.StableHash,
		GPUTimingHash:   req.GPUTimingHash,
		Entropy:         req.Entropy,
		IsFarbled:       req.IsFarbled,
		DetectedBrowser: req.DetectedBrowser,
		PersistentID:    req.PersistentID,
		Request:         meta,
	}
	if req.GPUTiming != nil {
		sub.GPUTiming = matching.GPUTiming{
			Supported: req.GPUTiming.Supported,
			GPUScore:  req.GPUTiming.GPUScore,
		}
	}
	if len(req.Components) > 0 {
		sub.Components = string(req.Components)
	}
	return sub
}

// FromMatch converts an engine decision into the response payload. The
// request echo is taken from the newest recorded visit, which is always the
// one this decision just wrote.
func FromMatch(result *matching.Result) IdentifyResponse {
	if result == nil {
		return IdentifyResponse{}
	}
	resp := IdentifyResponse{
		VisitorID:     result.VisitorID,
		MatchType:     string(result.MatchType),
		Confidence:    result.Confidence,
		IsNewVisitor:  result.IsNewVisitor,
		FingerprintID: result.FingerprintID,
	}
	if summary := result.Visitor; summary != nil {
		if summary.Visitor != nil {
			resp.Visitor.FirstSeen = FormatTimestamp(summary.Visitor.CreatedAt)
		}
		resp.Visitor.VisitCount = summary.VisitCount
		if summary.LastVisit != nil {
			resp.Visitor.LastVisit = FormatTimestamp(*summary.LastVisit)
		}
		resp.RecentVisits = fromVisits(summary.Recent)
		if len(summary.Recent) > 0 {
			current := summary.Recent[0]
			resp.Request = VisitInfo{
				Timestamp: FormatTimestamp(current.Timestamp),
				IPAddress: current.IPAddress,
				Browser:   result.Browser,
			}
		}
	}
	if result.Identity.ShouldUpdate {
		resp.PersistentIdentity = &PersistentIdentity{
			ShouldUpdate: true,
			Signature:    result.Identity.Signature,
		}
	}
	return resp
}

// FromVisitorSummary converts a stored visitor view into the admin DTO.
func FromVisitorSummary(summary *visitors.Summary) VisitorDetail {
	if summary == nil || summary.Visitor == nil {
		return VisitorDetail{}
	}
	visitor := summary.Visitor
	detail := VisitorDetail{
		ID:               visitor.ID,
		TrustLevel:       string(visitor.TrustLevel),
		CrowdScore:       visitor.CrowdScore,
		UniqueIPs:        visitor.UniqueIPs,
		VisitCount:       summary.VisitCount,
		FingerprintCount: summary.FingerprintCount,
		CreatedAt:        FormatTimestamp(visitor.CreatedAt),
		RecentVisits:     fromVisits(summary.Recent),
	}
	if summary.LastVisit != nil {
		detail.LastVisit = FormatTimestamp(*summary.LastVisit)
	}
	if visitor.LastScoreUpdate != nil {
		detail.LastScoreUpdate = FormatTimestamp(*visitor.LastScoreUpdate)
	}
	return detail
}

// FromDailyStats converts stored aggregate rows into DTOs.
func FromDailyStats(rows []*visitors.DailyStats) []DailyStats {
	if len(rows) == 0 {
		return nil
	}
	out := make([]DailyStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, DailyStats{
			Date:               row.Date,
			Total:              row.Total,
			UniqueVisitors:     row.UniqueVisitors,
			ExactMatches:       row.ExactMatches,
			StableMatches:      row.StableMatches,
			GPUMatches:         row.GPUMatches,
			FuzzyStableMatches: row.FuzzyStableMatches,
			FuzzyMatches:       row.FuzzyMatches,
			NewVisitors:        row.NewVisitors,
			AvgEntropy:         row.AvgEntropy,
		})
	}
	return out
}

// FromTotals converts table counts for status output.
func FromTotals(totals *visitors.Totals) TotalsInfo {
	if totals == nil {
		return TotalsInfo{}
	}
	return TotalsInfo{
		Visitors:     totals.Visitors,
		Fingerprints: totals.Fingerprints,
		Sessions:     totals.Sessions,
	}
}

// FromHealth converts a store health report, deriving the coarse status.
func FromHealth(health *visitors.DatabaseHealth) HealthResponse {
	if health == nil {
		return HealthResponse{Status: HealthDegraded}
	}
	resp := HealthResponse{
		Database: DatabaseHealthInfo{
			Path:           health.DBPath,
			Exists:         health.DatabaseExists,
			Readable:       health.DatabaseReadable,
			MissingTables:  health.MissingTables,
			TotalVisitors:  health.TotalVisitors,
			IntegrityCheck: health.IntegrityCheck,
			Error:          health.Error,
		},
	}
	resp.Status = HealthOK
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck ||
		len(health.MissingTables) > 0 || health.Error != "" {
		resp.Status = HealthDegraded
	}
	return resp
}

func fromVisits(visits []*visitors.Visit) []VisitInfo {
	if len(visits) == 0 {
		return nil
	}
	out := make([]VisitInfo, 0, len(visits))
	for _, visit := range visits {
		out = append(out, VisitInfo{
			Timestamp: FormatTimestamp(visit.Timestamp),
			IPAddress: visit.IPAddress,
			Browser:   visit.Browser,
		})
	}
	return out
}

// FormatTimestamp renders a time in the wire's millisecond UTC layout, or an
// empty string for the zero time.
func FormatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
