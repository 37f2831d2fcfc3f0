package commitment

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const DigestSize = 32

// Digest is a Keccak-256 output.
type Digest [DigestSize]byte

func (d Digest) Hex() string {
	return "0x" + hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func ParseDigest(value string) (Digest, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	if len(trimmed) != DigestSize*2 {
		return Digest{}, fmt.Errorf("%w: digest must be %d hex characters", ErrInvalidInput, DigestSize*2)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: digest is not hex", ErrInvalidInput)
	}
	var out Digest
	copy(out[:], raw)
	return out, nil
}

func keccak256(parts ...[]byte) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, part := range parts {
		h.Write(part)
	}
	var out Digest
	h.Sum(out[:0])
	return out
}
