// Package hashutil provides the hash primitives used by fingerprint matching:
// hex digest validation, character-level Hamming distance, and SHA-256 based
// digest helpers.
//
// Fingerprint digests are 64-character lowercase hex strings. Hamming distance
// operates on the hex characters directly rather than decoded bytes so that a
// one-character drift in a fuzzy digest counts as distance one.
package hashutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HashLen is the required character length of a fingerprint digest.
const HashLen = 64

// ErrLengthMismatch reports a Hamming comparison across different lengths.
var ErrLengthMismatch = errors.New("hash length mismatch")

// IsHash reports whether s is a well-formed fingerprint digest: exactly
// HashLen characters drawn from the hex alphabet. Case is accepted here;
// Normalize lowercases before storage and comparison.
func IsHash(s string) bool {
	if len(s) != HashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Normalize trims surrounding whitespace and lowercases a digest for storage
// and comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Hamming returns the number of character positions at which a and b differ.
// Inputs of different lengths are not comparable and return ErrLengthMismatch.
func Hamming(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			distance++
		}
	}
	return distance, nil
}

// Similarity maps Hamming distance onto [0, 1]: identical strings score 1.0,
// length mismatches score 0.0.
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	distance, err := Hamming(a, b)
	if err != nil {
		return 0.0
	}
	return 1.0 - float64(distance)/float64(len(a))
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HMACSHA256Hex returns the lowercase hex HMAC-SHA-256 of message under secret.
func HMACSHA256Hex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
