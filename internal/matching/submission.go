package matching

import (
	"whorl/internal/hashutil"
)

// GPUTiming carries the client-reported validity metadata for the GPU timing
// hash. Privacy-mode throttling collapses distinct devices onto a trivial
// timing vector, so a low score marks the hash unusable.
type GPUTiming struct {
	Supported bool
	GPUScore  float64
}

// RequestMeta is the transport metadata persisted to the session row. None of
// it participates in matching.
type RequestMeta struct {
	IPAddress       string
	UserAgent       string
	Referer         string
	TLSJA4          string
	TLSJA3          string
	HeaderOrderHash string
}

// Submission is one identification request after transport decoding.
type Submission struct {
	Fingerprint     string
	FuzzyHash       string
	StableHash      string
	GPUTimingHash   string
	GPUTiming       GPUTiming
	Components      string
	Entropy         *float64
	IsFarbled       bool
	DetectedBrowser string
	PersistentID    string
	Request         RequestMeta
}

// normalize lowercases the hash fields and validates them. The two required
// hashes must be 64 hex characters; optional hashes that fail validation are
// dropped rather than rejected. The GPU hash additionally requires usable
// timing metadata, with the minimum score taken from configuration.
func (s *Submission) normalize(gpuScoreMin float64) error {
	s.Fingerprint = hashutil.Normalize(s.Fingerprint)
	s.FuzzyHash = hashutil.Normalize(s.FuzzyHash)
	s.StableHash = hashutil.Normalize(s.StableHash)
	s.GPUTimingHash = hashutil.Normalize(s.GPUTimingHash)

	var invalid []string
	if !hashutil.IsHash(s.Fingerprint) {
		invalid = append(invalid, "fingerprint")
	}
	if !hashutil.IsHash(s.FuzzyHash) {
		invalid = append(invalid, "fuzzyHash")
	}
	if len(invalid) > 0 {
		return &InvalidSubmissionError{Fields: invalid}
	}

	if s.StableHash != "" && !hashutil.IsHash(s.StableHash) {
		s.StableHash = ""
	}
	if !s.usableGPUHash(gpuScoreMin) {
		s.GPUTimingHash = ""
	}
	return nil
}

func (s *Submission) usableGPUHash(gpuScoreMin float64) bool {
	if s.GPUTimingHash == "" || !hashutil.IsHash(s.GPUTimingHash) {
		return false
	}
	return s.GPUTiming.Supported && s.GPUTiming.GPUScore > gpuScoreMin
}

func (s *Submission) entropyValue() float64 {
	if s.Entropy == nil {
		return 0
	}
	return *s.Entropy
}
