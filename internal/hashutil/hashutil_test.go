package hashutil

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestIsHash(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"lowercase hex", strings.Repeat("a", 64), true},
		{"uppercase hex", strings.Repeat("F", 64), true},
		{"digits", strings.Repeat("0", 64), true},
		{"too short", strings.Repeat("a", 63), false},
		{"too long", strings.Repeat("a", 65), false},
		{"empty", "", false},
		{"non-hex character", strings.Repeat("a", 63) + "g", false},
		{"whitespace", strings.Repeat("a", 63) + " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHash(tt.in); got != tt.want {
				t.Fatalf("IsHash(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  ABCDef  "); got != "abcdef" {
		t.Fatalf("Normalize = %q, want %q", got, "abcdef")
	}
}

func TestHammingIdentical(t *testing.T) {
	s := strings.Repeat("a", 64)
	d, err := Hamming(s, s)
	if err != nil {
		t.Fatalf("Hamming failed: %v", err)
	}
	if d != 0 {
		t.Fatalf("Hamming of identical strings = %d, want 0", d)
	}
}

func TestHammingSymmetric(t *testing.T) {
	a := strings.Repeat("a", 60) + "bcde"
	b := strings.Repeat("a", 64)
	ab, err := Hamming(a, b)
	if err != nil {
		t.Fatalf("Hamming(a, b) failed: %v", err)
	}
	ba, err := Hamming(b, a)
	if err != nil {
		t.Fatalf("Hamming(b, a) failed: %v", err)
	}
	if ab != ba {
		t.Fatalf("Hamming not symmetric: %d vs %d", ab, ba)
	}
	if ab != 4 {
		t.Fatalf("Hamming = %d, want 4", ab)
	}
}

func TestHammingLengthMismatch(t *testing.T) {
	_, err := Hamming("abc", "abcd")
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	a := strings.Repeat("a", 64)
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", a, a, 1.0},
		{"one char off", strings.Repeat("a", 63) + "b", a, 1.0 - 1.0/64.0},
		{"length mismatch", "abc", "abcd", 0.0},
		{"both empty", "", "", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("SHA256Hex(\"\") = %q, want %q", got, want)
	}
	if !IsHash(got) {
		t.Fatalf("digest %q is not a valid hash", got)
	}
}

func TestHMACSHA256HexDeterministic(t *testing.T) {
	first := HMACSHA256Hex("secret", "visitor")
	second := HMACSHA256Hex("secret", "visitor")
	if first != second {
		t.Fatalf("HMAC not deterministic: %q vs %q", first, second)
	}
	if !IsHash(first) {
		t.Fatalf("digest %q is not a valid hash", first)
	}
	other := HMACSHA256Hex("other-secret", "visitor")
	if other == first {
		t.Fatal("different secrets produced identical digests")
	}
}
