package commitment

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestFingerprintKnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{in: "abc", want: "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, tt := range tests {
		if got := Fingerprint(tt.in).Hex(); got != tt.want {
			t.Fatalf("fingerprint(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCommitDeterministic(t *testing.T) {
	engine := Default()
	data := Data{Name: "Jane Doe", Email: "jane@example.edu", Course: "BSc Physics", EnrollmentDate: "2020-09-01"}

	first, err := engine.CommitData(data)
	if err != nil {
		t.Fatalf("commit first: %v", err)
	}
	second, err := engine.CommitData(data)
	if err != nil {
		t.Fatalf("commit second: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical commitments, got %s and %s", first.Value, second.Value)
	}
	if first.EnrollmentEpoch != 1598918400 {
		t.Fatalf("expected enrollment epoch 1598918400, got %d", first.EnrollmentEpoch)
	}
	if first.NameDigest != Fingerprint("Jane Doe") || first.EmailDigest != Fingerprint("jane@example.edu") {
		t.Fatalf("expected fingerprints of the raw name and email")
	}
}

func TestCommitSensitivity(t *testing.T) {
	engine := Default()
	base := Data{Name: "Jane Doe", Email: "jane@example.edu", Course: "BSc Physics", EnrollmentDate: "2020-09-01"}
	seen := make(map[Digest]string)

	record := func(label string, data Data) {
		t.Helper()
		c, err := engine.CommitData(data)
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		if prev, ok := seen[c.Value]; ok {
			t.Fatalf("collision between %s and %s", prev, label)
		}
		seen[c.Value] = label
	}

	record("base", base)
	for i := 0; i < 32; i++ {
		d := base
		d.Name = fmt.Sprintf("Jane Doe %d", i)
		record("name-"+d.Name, d)

		d = base
		d.Email = fmt.Sprintf("jane%d@example.edu", i)
		record("email-"+d.Email, d)

		d = base
		d.Course = fmt.Sprintf("BSc Physics %d", i)
		record("course-"+d.Course, d)

		d = base
		d.EnrollmentDate = fmt.Sprintf("%d", 1598918400+i+1)
		record("date-"+d.EnrollmentDate, d)
	}

	single := base
	single.Email = "jane@example.org"
	record("single-char-email", single)
}

func TestPackedEncodingLayout(t *testing.T) {
	engine := Default()
	name := Fingerprint("n")
	email := Fingerprint("e")
	enrollment := big.NewInt(1598918400)

	encoded, err := engine.Encode(name, email, "Course", enrollment)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 3*DigestSize+len("Course") {
		t.Fatalf("unexpected packed length %d", len(encoded))
	}
	if !bytes.Equal(encoded[:32], name[:]) || !bytes.Equal(encoded[32:64], email[:]) {
		t.Fatalf("expected fingerprints at the front of the preimage")
	}
	if string(encoded[64:70]) != "Course" {
		t.Fatalf("expected raw course bytes after fingerprints")
	}
	tail := new(big.Int).SetBytes(encoded[70:])
	if tail.Cmp(enrollment) != 0 {
		t.Fatalf("expected big-endian uint256 enrollment, got %s", tail)
	}

	commit, err := engine.Commit(name, email, "Course", enrollment)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if commit != keccak256(encoded) {
		t.Fatalf("commit must hash exactly the encoded preimage")
	}
}

func TestEmptyCourseIsAccepted(t *testing.T) {
	if _, err := Default().CommitFields("a", "b", "", 0); err != nil {
		t.Fatalf("expected empty course and zero date to be accepted: %v", err)
	}
}

func TestLengthPrefixedSchemeDiffers(t *testing.T) {
	prefixed, err := NewEngine(SchemeLengthPrefixed)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	packed := Default()
	a, _ := packed.CommitFields("Jane", "j@x", "MSc", 1)
	b, _ := prefixed.CommitFields("Jane", "j@x", "MSc", 1)
	if a.Value == b.Value {
		t.Fatalf("expected schemes to produce different commitments")
	}
	encoded, err := prefixed.Encode(a.NameDigest, a.EmailDigest, "MSc", big.NewInt(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := new(big.Int).SetBytes(encoded[64:96]).Int64(); got != 3 {
		t.Fatalf("expected course length prefix 3, got %d", got)
	}
}

func TestCommitRejectsInvalidEnrollment(t *testing.T) {
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	for _, value := range []*big.Int{nil, big.NewInt(-1), overflow} {
		if _, err := Commit(Digest{}, Digest{}, "x", value); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", value, err)
		}
	}
	if _, err := Commit(Digest{}, Digest{}, "x", maxUint256); err != nil {
		t.Fatalf("expected max uint256 to be accepted: %v", err)
	}
}

func TestParseScheme(t *testing.T) {
	if s, err := ParseScheme(""); err != nil || s != SchemePacked {
		t.Fatalf("expected default packed scheme, got %q %v", s, err)
	}
	if s, err := ParseScheme("LENGTH_PREFIXED"); err != nil || s != SchemeLengthPrefixed {
		t.Fatalf("expected length_prefixed, got %q %v", s, err)
	}
	if _, err := ParseScheme("abi"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown scheme to fail")
	}
}

func TestParseDigest(t *testing.T) {
	d := Fingerprint("abc")
	parsed, err := ParseDigest(d.Hex())
	if err != nil || parsed != d {
		t.Fatalf("parse digest: %v", err)
	}
	if _, err := ParseDigest("0x1234"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short digest to fail")
	}
	if _, err := ParseDigest("0x" + string(bytes.Repeat([]byte("zz"), 32))); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected non-hex digest to fail")
	}
}
