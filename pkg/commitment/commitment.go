// Package commitment computes the one-way fingerprints that bind a
// certificate's personal data to its ledger entry.
//
// The issuer and every verifier must produce identical bytes for the same
// inputs, so all encoding decisions live here and nowhere else.
package commitment

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidInput = errors.New("invalid commitment input")

type Scheme string

const (
	// SchemePacked is keccak256(nameHash ‖ emailHash ‖ course ‖ uint256(enrollment)).
	// The course is the only variable-width field and sits between fixed-width
	// fields, so the total length fixes its boundaries.
	SchemePacked Scheme = "packed"
	// SchemeLengthPrefixed inserts a uint256 byte length before the course.
	SchemeLengthPrefixed Scheme = "length_prefixed"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func ParseScheme(value string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(value))) {
	case "", SchemePacked:
		return SchemePacked, nil
	case SchemeLengthPrefixed:
		return SchemeLengthPrefixed, nil
	}
	return "", fmt.Errorf("%w: unknown commitment scheme %q", ErrInvalidInput, value)
}

// Data is the personal-data form a holder or issuer fills in.
type Data struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Course         string `json:"course"`
	EnrollmentDate string `json:"enrollment_date"`
}

type Commitment struct {
	Scheme          Scheme `json:"scheme"`
	NameDigest      Digest `json:"name_hash"`
	EmailDigest     Digest `json:"email_hash"`
	Course          string `json:"course"`
	EnrollmentEpoch uint64 `json:"enrollment_date"`
	Value           Digest `json:"commitment"`
}

type Engine struct {
	scheme Scheme
}

func NewEngine(scheme Scheme) (*Engine, error) {
	switch scheme {
	case "":
		scheme = SchemePacked
	case SchemePacked, SchemeLengthPrefixed:
	default:
		return nil, fmt.Errorf("%w: unknown commitment scheme %q", ErrInvalidInput, scheme)
	}
	return &Engine{scheme: scheme}, nil
}

func Default() *Engine {
	return &Engine{scheme: SchemePacked}
}

func (e *Engine) Scheme() Scheme {
	if e == nil || e.scheme == "" {
		return SchemePacked
	}
	return e.scheme
}

// Fingerprint hashes the UTF-8 bytes of value. No normalisation is applied:
// "Jane Doe" and "jane doe" are different fingerprints.
func Fingerprint(value string) Digest {
	return keccak256([]byte(value))
}

func (e *Engine) Fingerprint(value string) Digest {
	return Fingerprint(value)
}

func Commit(nameDigest, emailDigest Digest, course string, enrollment *big.Int) (Digest, error) {
	return Default().Commit(nameDigest, emailDigest, course, enrollment)
}

func (e *Engine) Commit(nameDigest, emailDigest Digest, course string, enrollment *big.Int) (Digest, error) {
	word, err := uint256Word(enrollment)
	if err != nil {
		return Digest{}, err
	}
	if e.Scheme() == SchemeLengthPrefixed {
		length, _ := uint256Word(big.NewInt(int64(len(course))))
		return keccak256(nameDigest[:], emailDigest[:], length[:], []byte(course), word[:]), nil
	}
	return keccak256(nameDigest[:], emailDigest[:], []byte(course), word[:]), nil
}

// Encode returns the exact preimage that Commit hashes.
func (e *Engine) Encode(nameDigest, emailDigest Digest, course string, enrollment *big.Int) ([]byte, error) {
	word, err := uint256Word(enrollment)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, DigestSize*4+len(course))
	out = append(out, nameDigest[:]...)
	out = append(out, emailDigest[:]...)
	if e.Scheme() == SchemeLengthPrefixed {
		length, _ := uint256Word(big.NewInt(int64(len(course))))
		out = append(out, length[:]...)
	}
	out = append(out, course...)
	out = append(out, word[:]...)
	return out, nil
}

func (e *Engine) CommitData(data Data) (Commitment, error) {
	epoch, err := ParseEnrollmentDate(data.EnrollmentDate)
	if err != nil {
		return Commitment{}, err
	}
	return e.CommitFields(data.Name, data.Email, data.Course, epoch)
}

func (e *Engine) CommitFields(name, email, course string, enrollmentEpoch uint64) (Commitment, error) {
	nameDigest := e.Fingerprint(name)
	emailDigest := e.Fingerprint(email)
	value, err := e.Commit(nameDigest, emailDigest, course, new(big.Int).SetUint64(enrollmentEpoch))
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{
		Scheme:          e.Scheme(),
		NameDigest:      nameDigest,
		EmailDigest:     emailDigest,
		Course:          course,
		EnrollmentEpoch: enrollmentEpoch,
		Value:           value,
	}, nil
}

func uint256Word(value *big.Int) ([DigestSize]byte, error) {
	var word [DigestSize]byte
	if value == nil {
		return word, fmt.Errorf("%w: enrollment date is required", ErrInvalidInput)
	}
	if value.Sign() < 0 {
		return word, fmt.Errorf("%w: enrollment date must not be negative", ErrInvalidInput)
	}
	if value.Cmp(maxUint256) > 0 {
		return word, fmt.Errorf("%w: enrollment date exceeds uint256", ErrInvalidInput)
	}
	value.FillBytes(word[:])
	return word, nil
}
