// Package metadata builds, validates and fetches the off-ledger certificate
// documents referenced by a record's content pointer.
package metadata

import (
	"encoding/json"

	"certichain/pkg/commitment"
)

const PlaceholderImage = "ipfs://QmPlaceholderImage"

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Document is the ERC-721 style metadata an issuer uploads to IPFS.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Build returns the document for a certificate. Only the name fingerprint is
// embedded; the email never appears.
func Build(name, course string, enrollmentEpoch uint64) Document {
	return Document{
		Name:        "Certificate: " + course,
		Description: "Academic Certificate for " + course,
		Image:       PlaceholderImage,
		Attributes: []Attribute{
			{TraitType: "Student Name Hash", Value: commitment.Fingerprint(name).Hex()},
			{TraitType: "Course", Value: course},
			{TraitType: "Enrollment Date", Value: enrollmentEpoch},
		},
	}
}

func (d Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
