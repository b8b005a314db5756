package matching

import (
	"context"
	"fmt"
	"math"
	"time"

	"whorl/internal/hashutil"
	"whorl/internal/logging"
	"whorl/internal/trust"
	"whorl/internal/visitors"
)

// Base confidences per layer. Fuzzy layers derive theirs from the Hamming
// distance instead.
const (
	baseExact  = 1.0
	baseStable = 0.95
	baseGPU    = 0.92
	baseNew    = 1.0
)

// IdentityAdvice tells the client whether to rewrite its stored token. The
// client reassembles a token from the returned signature and the result's
// visitor id.
type IdentityAdvice struct {
	ShouldUpdate bool
	Signature    string
}

// Result is one identification decision after persistence. Browser carries
// the submission's normalized browser name for response echoing.
type Result struct {
	MatchType     visitors.MatchType
	Confidence    float64
	VisitorID     string
	FingerprintID string
	IsNewVisitor  bool
	Browser       string
	Trust         *trust.Result
	Identity      IdentityAdvice
	Visitor       *visitors.Summary
}

type layerMatch struct {
	matchType     visitors.MatchType
	base          float64
	visitorID     string
	fingerprintID string
	distance      int
}

// Identify runs the submission through the layer pipeline, persists the
// outcome, and schedules the stats and trust side effects.
func (e *Engine) Identify(ctx context.Context, sub *Submission) (*Result, error) {
	if err := sub.normalize(e.gpuScoreMin); err != nil {
		return nil, err
	}

	token := e.signer.Validate(sub.PersistentID)

	match, err := e.match(ctx, sub)
	if err != nil {
		return nil, err
	}

	// A valid token is authoritative for the visitor identity; the match
	// still decides type and confidence.
	visitorID := match.visitorID
	if token.Valid {
		visitorID = token.VisitorID
	}

	// Score prior history only, before this request's session lands.
	trustResult := trust.Result{Level: visitors.TrustNew}
	if visitorID != "" {
		sessions, sessErr := e.store.SessionsSince(ctx, visitorID, time.Now().UTC().Add(-e.trustWindow))
		if sessErr != nil {
			return nil, sessErr
		}
		trustResult = trust.Assess(sessions)
	}

	confidence := finalConfidence(match, trustResult)

	session := &visitors.NewSession{
		IPAddress:       sub.Request.IPAddress,
		UserAgent:       sub.Request.UserAgent,
		Referer:         sub.Request.Referer,
		TLSJA4:          sub.Request.TLSJA4,
		TLSJA3:          sub.Request.TLSJA3,
		HeaderOrderHash: sub.Request.HeaderOrderHash,
	}

	if token.Valid {
		// The token may re-introduce an id the database no longer holds.
		if ensureErr := e.store.EnsureVisitor(ctx, visitorID); ensureErr != nil {
			return nil, ensureErr
		}
	}

	var write *visitors.WriteResult
	isNew := false
	switch {
	case match.matchType == visitors.MatchNew && !token.Valid:
		write, err = e.store.RecordNewVisitor(ctx, e.buildFingerprint(sub, confidence), session)
		isNew = true
	case match.matchType == visitors.MatchExact:
		write, err = e.store.RecordRepeat(ctx, visitorID, match.fingerprintID, session)
	default:
		write, err = e.store.RecordMatch(ctx, visitorID, e.buildFingerprint(sub, confidence), session)
	}
	if err != nil {
		return nil, err
	}

	e.logDecision(match, write.VisitorID, confidence, isNew)

	e.queueEffects(write.VisitorID, visitors.StatsDelta{
		MatchType:     match.matchType,
		NewVisitor:    isNew,
		UniqueVisitor: isNew,
		Entropy:       sub.entropyValue(),
		HasEntropy:    sub.Entropy != nil,
	})

	summary, err := e.store.VisitorSummary(ctx, write.VisitorID, recentVisitLimit)
	if err != nil {
		return nil, err
	}

	advice := IdentityAdvice{}
	if !token.Valid || token.NeedsRefresh {
		advice = IdentityAdvice{
			ShouldUpdate: true,
			Signature:    e.signer.Signature(write.VisitorID),
		}
	}

	return &Result{
		MatchType:     match.matchType,
		Confidence:    confidence,
		VisitorID:     write.VisitorID,
		FingerprintID: write.FingerprintID,
		IsNewVisitor:  isNew,
		Browser:       normalizeBrowser(sub.DetectedBrowser),
		Trust:         &trustResult,
		Identity:      advice,
		Visitor:       summary,
	}, nil
}

// match walks the layers strictly in order; the first hit wins.
func (e *Engine) match(ctx context.Context, sub *Submission) (layerMatch, error) {
	fp, err := e.store.FindByExactHash(ctx, sub.Fingerprint)
	if err != nil {
		return layerMatch{}, fmt.Errorf("exact lookup: %w", err)
	}
	if fp != nil {
		return layerMatch{matchType: visitors.MatchExact, base: baseExact, visitorID: fp.VisitorID, fingerprintID: fp.ID}, nil
	}

	if sub.StableHash != "" {
		fp, err = e.store.FindByStableHash(ctx, sub.StableHash)
		if err != nil {
			return layerMatch{}, fmt.Errorf("stable lookup: %w", err)
		}
		if fp != nil {
			return layerMatch{matchType: visitors.MatchStable, base: baseStable, visitorID: fp.VisitorID, fingerprintID: fp.ID}, nil
		}
	}

	if sub.GPUTimingHash != "" {
		fp, err = e.store.FindByGPUTimingHash(ctx, sub.GPUTimingHash)
		if err != nil {
			return layerMatch{}, fmt.Errorf("gpu lookup: %w", err)
		}
		if fp != nil {
			return layerMatch{matchType: visitors.MatchGPU, base: baseGPU, visitorID: fp.VisitorID, fingerprintID: fp.ID}, nil
		}
	}

	if sub.StableHash != "" {
		candidates, scanErr := e.store.RecentStableHashes(ctx, e.stableScanLimit)
		if scanErr != nil {
			return layerMatch{}, fmt.Errorf("stable scan: %w", scanErr)
		}
		if best, distance, ok := nearestCandidate(sub.StableHash, candidates, e.stableFuzzyThreshold); ok {
			return layerMatch{
				matchType:     visitors.MatchFuzzyStable,
				base:          fuzzyConfidence(distance),
				visitorID:     best.VisitorID,
				fingerprintID: best.FingerprintID,
				distance:      distance,
			}, nil
		}
	}

	candidates, scanErr := e.store.RecentFuzzyHashes(ctx, e.fuzzyScanLimit)
	if scanErr != nil {
		return layerMatch{}, fmt.Errorf("fuzzy scan: %w", scanErr)
	}
	if best, distance, ok := nearestCandidate(sub.FuzzyHash, candidates, e.fuzzyThreshold); ok {
		return layerMatch{
			matchType:     visitors.MatchFuzzy,
			base:          fuzzyConfidence(distance),
			visitorID:     best.VisitorID,
			fingerprintID: best.FingerprintID,
			distance:      distance,
		}, nil
	}

	return layerMatch{matchType: visitors.MatchNew, base: baseNew}, nil
}

// nearestCandidate picks the closest candidate within the threshold. The scan
// is newest-first and only strict improvements replace the best candidate, so
// distance ties resolve to the most recent fingerprint. Candidates whose hash
// length does not match the target are skipped.
func nearestCandidate(target string, candidates []visitors.HashCandidate, threshold int) (visitors.HashCandidate, int, bool) {
	var best visitors.HashCandidate
	bestDistance := threshold + 1
	for _, candidate := range candidates {
		distance, err := hashutil.Hamming(target, candidate.Hash)
		if err != nil {
			continue
		}
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	if bestDistance > threshold {
		return visitors.HashCandidate{}, 0, false
	}
	return best, bestDistance, true
}

func fuzzyConfidence(distance int) float64 {
	return 1 - float64(distance)/float64(hashutil.HashLen)
}

// finalConfidence applies the trust gate or boost to the layer's base
// confidence. New-visitor decisions keep their base.
func finalConfidence(match layerMatch, trustResult trust.Result) float64 {
	if match.matchType == visitors.MatchNew {
		return baseNew
	}
	if !trust.ShouldTrust(trustResult, match.matchType) {
		return round3(0.7 * match.base)
	}
	boosted := match.base + trust.ConfidenceBoost(trustResult, match.matchType)
	if boosted > 1 {
		boosted = 1
	}
	return round3(boosted)
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}

func (e *Engine) buildFingerprint(sub *Submission, confidence float64) *visitors.NewFingerprint {
	return &visitors.NewFingerprint{
		Hash:           sub.Fingerprint,
		FuzzyHash:      sub.FuzzyHash,
		StableHash:     sub.StableHash,
		GPUTimingHash:  sub.GPUTimingHash,
		ComponentsJSON: sub.Components,
		Entropy:        sub.entropyValue(),
		Confidence:     confidence,
		IsFarbled:      sub.IsFarbled,
		Browser:        normalizeBrowser(sub.DetectedBrowser),
	}
}

func (e *Engine) logDecision(match layerMatch, visitorID string, confidence float64, isNew bool) {
	attrs := []logging.Attr{
		logging.String(logging.FieldVisitorID, visitorID),
		logging.String(logging.FieldMatchType, string(match.matchType)),
		logging.Float64(logging.FieldConfidence, confidence),
	}
	if match.matchType == visitors.MatchFuzzyStable || match.matchType == visitors.MatchFuzzy {
		attrs = append(attrs, logging.Int("distance", match.distance))
	}

	message := "matched returning visitor"
	if match.matchType == visitors.MatchNew {
		message = "created new visitor"
		if !isNew {
			message = "recorded fingerprint for token visitor"
		}
	}
	e.logger.Info(message, logging.Args(attrs...)...)
}
