// Package identity implements the signed persistent-identity token that lets a
// returning browser short-circuit fingerprint matching.
//
// A token is three dot-separated parts: the visitor UUID, a truncated HMAC of
// that UUID under the server secret, and the creation time in Unix
// milliseconds. The signature binds the visitor id only; the timestamp is
// covered by the age policy rather than the MAC, so a tampered timestamp can
// age a token out but never redirect it to another visitor.
package identity

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whorl/internal/hashutil"
)

// SignatureLen is the number of hex characters kept from the visitor HMAC.
const SignatureLen = 16

// ErrMalformedToken reports a token that does not parse as id.signature.ms.
var ErrMalformedToken = errors.New("malformed identity token")

// Token is a parsed persistent-identity token.
type Token struct {
	VisitorID string
	Signature string
	CreatedAt time.Time
}

// Validation is the outcome of checking a presented token.
type Validation struct {
	Valid        bool
	VisitorID    string
	NeedsRefresh bool
	// RefreshedToken carries a newly signed token when NeedsRefresh is set.
	RefreshedToken string
}

// Signer mints and checks identity tokens with a fixed server secret.
type Signer struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer enforcing the given maximum token age.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: secret, maxAge: maxAge, now: time.Now}
}

// Signature returns the truncated visitor HMAC clients embed in new tokens.
func (s *Signer) Signature(visitorID string) string {
	return hashutil.HMACSHA256Hex(s.secret, visitorID)[:SignatureLen]
}

// Sign mints a fresh token for a visitor stamped with the current time.
func (s *Signer) Sign(visitorID string) string {
	return fmt.Sprintf("%s.%s.%d", visitorID, s.Signature(visitorID), s.now().UnixMilli())
}

// Parse splits a raw token into its parts without checking the signature.
func Parse(raw string) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Token{}, ErrMalformedToken
	}
	visitorID, signature, stamp := parts[0], parts[1], parts[2]
	if visitorID == "" || len(signature) != SignatureLen {
		return Token{}, ErrMalformedToken
	}
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return Token{}, ErrMalformedToken
	}
	return Token{
		VisitorID: visitorID,
		Signature: signature,
		CreatedAt: time.UnixMilli(ms).UTC(),
	}, nil
}

// Verify reports whether a parsed token's signature matches the visitor id.
// Both signatures are decoded to raw bytes and compared in constant time.
func (s *Signer) Verify(token Token) bool {
	presented, err := hex.DecodeString(token.Signature)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(s.Signature(token.VisitorID))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(presented, expected) == 1
}

// Validate applies the full token policy to a raw token: parse, verify, and
// enforce the age window. Tokens older than half the maximum age come back
// with NeedsRefresh and a replacement token. Any failure yields a zero-valued
// Validation; callers treat that the same as no token at all.
func (s *Signer) Validate(raw string) Validation {
	token, err := Parse(raw)
	if err != nil {
		return Validation{}
	}
	if !s.Verify(token) {
		return Validation{}
	}
	age := s.now().Sub(token.CreatedAt)
	if age < 0 || age > s.maxAge {
		return Validation{}
	}
	result := Validation{Valid: true, VisitorID: token.VisitorID}
	if age > s.maxAge/2 {
		result.NeedsRefresh = true
		result.RefreshedToken = s.Sign(token.VisitorID)
	}
	return result
}
