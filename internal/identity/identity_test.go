package identity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testVisitorID = "2f1c9a34-8b7d-4e12-9c56-0d3f8a61b270"

func newTestSigner(maxAge time.Duration, at time.Time) *Signer {
	s := NewSigner("test-secret", maxAge)
	s.now = func() time.Time { return at }
	return s
}

func TestSignRoundTrip(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestSigner(365*24*time.Hour, base)

	raw := signer.Sign(testVisitorID)
	token, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if token.VisitorID != testVisitorID {
		t.Fatalf("VisitorID = %q, want %q", token.VisitorID, testVisitorID)
	}
	if !token.CreatedAt.Equal(base) {
		t.Fatalf("CreatedAt = %v, want %v", token.CreatedAt, base)
	}
	if !signer.Verify(token) {
		t.Fatal("freshly signed token failed verification")
	}

	validation := signer.Validate(raw)
	if !validation.Valid {
		t.Fatal("freshly signed token failed validation")
	}
	if validation.VisitorID != testVisitorID {
		t.Fatalf("validation VisitorID = %q, want %q", validation.VisitorID, testVisitorID)
	}
	if validation.NeedsRefresh {
		t.Fatal("fresh token should not need refresh")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestSigner(365*24*time.Hour, base)

	raw := signer.Sign(testVisitorID)
	token, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	flipped := []byte(token.Signature)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	token.Signature = string(flipped)
	if signer.Verify(token) {
		t.Fatal("tampered signature verified")
	}
	if signer.Validate(token.VisitorID + "." + token.Signature + ".1234567890123").Valid {
		t.Fatal("tampered token validated")
	}
}

func TestVerifyRejectsForeignVisitor(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestSigner(365*24*time.Hour, base)

	raw := signer.Sign(testVisitorID)
	token, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	token.VisitorID = "99999999-8b7d-4e12-9c56-0d3f8a61b270"
	if signer.Verify(token) {
		t.Fatal("signature verified against a different visitor id")
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"one part", "just-an-id"},
		{"two parts", "id.signature"},
		{"four parts", "id.sig.123.extra"},
		{"non-numeric timestamp", testVisitorID + "." + strings.Repeat("a", 16) + ".notanumber"},
		{"short signature", testVisitorID + ".abcd.1234567890123"},
		{"empty visitor", "." + strings.Repeat("a", 16) + ".1234567890123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.raw); !errors.Is(err, ErrMalformedToken) {
				t.Fatalf("Parse(%q) error = %v, want ErrMalformedToken", tt.raw, err)
			}
		})
	}
}

func TestValidateAgePolicy(t *testing.T) {
	maxAge := 365 * 24 * time.Hour
	signed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	signer := newTestSigner(maxAge, signed)
	raw := signer.Sign(testVisitorID)

	tests := []struct {
		name         string
		at           time.Time
		valid        bool
		needsRefresh bool
	}{
		{"fresh", signed.Add(time.Hour), true, false},
		{"just under half age", signed.Add(maxAge/2 - time.Hour), true, false},
		{"past half age", signed.Add(maxAge/2 + time.Hour), true, true},
		{"at max age", signed.Add(maxAge), true, true},
		{"expired", signed.Add(maxAge + time.Hour), false, false},
		{"from the future", signed.Add(-time.Hour), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := newTestSigner(maxAge, tt.at)
			validation := check.Validate(raw)
			if validation.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", validation.Valid, tt.valid)
			}
			if validation.NeedsRefresh != tt.needsRefresh {
				t.Fatalf("NeedsRefresh = %v, want %v", validation.NeedsRefresh, tt.needsRefresh)
			}
			if tt.needsRefresh {
				if validation.RefreshedToken == "" {
					t.Fatal("expected refreshed token")
				}
				refreshed := check.Validate(validation.RefreshedToken)
				if !refreshed.Valid || refreshed.NeedsRefresh {
					t.Fatalf("refreshed token validation = %+v", refreshed)
				}
			}
		})
	}
}

func TestValidateWrongSecret(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestSigner(365*24*time.Hour, base)
	raw := signer.Sign(testVisitorID)

	other := NewSigner("other-secret", 365*24*time.Hour)
	other.now = func() time.Time { return base }
	if other.Validate(raw).Valid {
		t.Fatal("token validated under a different secret")
	}
}
