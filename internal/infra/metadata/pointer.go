package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

var ErrInvalidPointer = errors.New("invalid content pointer")

// ParsePointer accepts a bare CID or an ipfs:// URI, optionally followed by
// a path inside the DAG.
func ParsePointer(pointer string) (cid.Cid, string, error) {
	p := strings.TrimSpace(pointer)
	p = strings.TrimPrefix(p, "ipfs://")
	p = strings.TrimPrefix(p, "/ipfs/")
	if p == "" {
		return cid.Undef, "", fmt.Errorf("%w: empty", ErrInvalidPointer)
	}
	root, rest, _ := strings.Cut(p, "/")
	c, err := cid.Decode(root)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("%w: %v", ErrInvalidPointer, err)
	}
	return c, rest, nil
}

// ValidatePointer reports whether pointer names an IPFS object.
func ValidatePointer(pointer string) error {
	_, _, err := ParsePointer(pointer)
	return err
}

// Normalize returns the canonical gateway path for pointer.
func Normalize(pointer string) (string, error) {
	c, rest, err := ParsePointer(pointer)
	if err != nil {
		return "", err
	}
	if rest == "" {
		return c.String(), nil
	}
	return c.String() + "/" + rest, nil
}
