package domain

import (
	"strings"
	"time"

	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

// PlaceholderContentPointer is what issuers submit when no metadata
// document was uploaded.
const PlaceholderContentPointer = "QmPlaceholder"

// Record mirrors the ledger's certificate struct. The ledger returns a zero
// value for ids it never assigned.
type Record struct {
	ID               uint64            `json:"id"`
	Issuer           common.Address    `json:"issuer"`
	NameFingerprint  commitment.Digest `json:"name_hash"`
	EmailFingerprint commitment.Digest `json:"email_hash"`
	Course           string            `json:"course"`
	IssueDate        uint64            `json:"issue_date"`
	EnrollmentDate   uint64            `json:"enrollment_date"`
	Valid            bool              `json:"is_valid"`
	RevokeReason     string            `json:"revoke_reason,omitempty"`
	ContentPointer   string            `json:"content_pointer,omitempty"`
}

func (r Record) Exists() bool {
	return r.Issuer != (common.Address{})
}

func (r Record) IssuedAt() time.Time {
	return time.Unix(int64(r.IssueDate), 0).UTC()
}

func (r Record) EnrolledAt() time.Time {
	return commitment.EnrollmentTime(r.EnrollmentDate)
}

// IssueSubmission is the full argument list of the ledger's issue call.
type IssueSubmission struct {
	Subject          common.Address
	NameFingerprint  commitment.Digest
	EmailFingerprint commitment.Digest
	Course           string
	EnrollmentDate   uint64
	ContentPointer   string
	Commitment       commitment.Digest
}

// TxReceipt describes a finalized ledger write.
type TxReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

type IssueReceipt struct {
	TxReceipt
	RecordID uint64 `json:"record_id"`
}

type Institution struct {
	Address    common.Address `json:"address"`
	Name       string         `json:"name,omitempty"`
	Authorized bool           `json:"authorized"`
}

func IsPlaceholderPointer(pointer string) bool {
	return strings.HasPrefix(pointer, PlaceholderContentPointer)
}
