package common

import (
	"encoding/hex"
	"regexp"
	"testing"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_EntropyHint(t *testing.T) {
	const n = 32
	a, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Logf("warning: two MakeRandHexString(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- RandDigits ----------

func TestRandDigits_FormatAndLength(t *testing.T) {
	re := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 50; i++ {
		code := RandDigits(4)
		if !re.MatchString(code) {
			t.Fatalf("expected 4 digits, got %q", code)
		}
	}
}

// ---------- Fingerprint ----------

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint("a.txt", 10, PlaceholderSHA256)
	b := Fingerprint("a.txt", 10, PlaceholderSHA256)
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if a == Fingerprint("a.txt", 11, PlaceholderSHA256) {
		t.Fatalf("size change should change fingerprint")
	}
	if a == Fingerprint("b.txt", 10, PlaceholderSHA256) {
		t.Fatalf("name change should change fingerprint")
	}
}

// ---------- FormatBytes ----------

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		512:     "512 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		1 << 20: "1.0 MB",
		1 << 30: "1.0 GB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
