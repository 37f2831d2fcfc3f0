package domain

import (
	"strconv"
	"time"

	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventCertificateIssued     EventKind = "certificate_issued"
	EventCertificateRevoked    EventKind = "certificate_revoked"
	EventInstitutionRegistered EventKind = "institution_registered"
	EventInstitutionRemoved    EventKind = "institution_removed"
)

// Certificate reports whether events of this kind carry a record id.
func (k EventKind) Certificate() bool {
	return k == EventCertificateIssued || k == EventCertificateRevoked
}

// LedgerEvent is one decoded contract log. Only the fields relevant to Kind
// are populated.
type LedgerEvent struct {
	Kind            EventKind         `json:"kind"`
	RecordID        uint64            `json:"record_id,omitempty"`
	Issuer          common.Address    `json:"issuer,omitempty"`
	Subject         common.Address    `json:"subject,omitempty"`
	Commitment      commitment.Digest `json:"commitment,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Institution     common.Address    `json:"institution,omitempty"`
	InstitutionName string            `json:"institution_name,omitempty"`
	BlockNumber     uint64            `json:"block_number"`
	TxHash          string            `json:"tx_hash"`
	LogIndex        uint              `json:"log_index"`
	ObservedAt      time.Time         `json:"observed_at"`
}

// Key identifies a log across replays of the same chain range.
func (e LedgerEvent) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(uint64(e.LogIndex), 10)
}
