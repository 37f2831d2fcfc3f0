package usecase

import (
	"context"
	"encoding/json"
	"time"

	"certichain/internal/domain"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

// CertificateLedger is the certificate-issuing contract.
type CertificateLedger interface {
	IssueCertificate(ctx context.Context, sub domain.IssueSubmission) (domain.IssueReceipt, error)
	RevokeCertificate(ctx context.Context, recordID uint64, reason string) (domain.TxReceipt, error)
	// GetCertificate returns the zero Record (Exists() == false) for unknown ids.
	GetCertificate(ctx context.Context, recordID uint64) (domain.Record, error)
	// GetCertificateByCommitment returns 0 when the commitment is unknown.
	GetCertificateByCommitment(ctx context.Context, commit commitment.Digest) (uint64, error)
}

// InstitutionRegistry is the owner-gated institution allow-list.
type InstitutionRegistry interface {
	IsAuthorizedInstitution(ctx context.Context, institution common.Address) (bool, error)
	GetInstitution(ctx context.Context, institution common.Address) (domain.Institution, error)
	GetOwner(ctx context.Context) (common.Address, error)
	GetAllInstitutions(ctx context.Context) ([]common.Address, error)
	RegisterInstitution(ctx context.Context, institution common.Address, name string) (domain.TxReceipt, error)
	RemoveInstitution(ctx context.Context, institution common.Address) (domain.TxReceipt, error)
}

// Account exposes the address a ledger client signs writes with.
type Account interface {
	Account() (common.Address, bool)
}

type EventSource interface {
	Subscribe(ctx context.Context, fromBlock uint64) (Subscription, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// Subscription delivers events in ledger order until Unsubscribe is called or
// its context ends. Err yields at most one terminal error.
type Subscription interface {
	Events() <-chan domain.LedgerEvent
	Err() <-chan error
	Unsubscribe()
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, pointer string) (json.RawMessage, error)
}

type IssuancePolicy interface {
	Evaluate(ctx context.Context, input domain.IssuancePolicyInput) (domain.PolicyEvaluation, error)
}

type IssuanceJournal interface {
	Append(ctx context.Context, entry IssuanceEntry) error
}

// IssuanceLog is a journal that can be read back.
type IssuanceLog interface {
	IssuanceJournal
	ListByCommitment(ctx context.Context, commit commitment.Digest) ([]IssuanceEntry, error)
}

type HistoryStore interface {
	// Append reports false when the event was already stored.
	Append(ctx context.Context, event domain.LedgerEvent) (bool, error)
	List(ctx context.Context, filter HistoryFilter) ([]domain.LedgerEvent, error)
	LastBlock(ctx context.Context) (uint64, bool, error)
}

type HistoryFilter struct {
	Kind     domain.EventKind
	RecordID *uint64
	Limit    int
}

type IssuanceEntry struct {
	ID         string
	Issuer     common.Address
	Subject    common.Address
	Commitment commitment.Digest
	Status     string
	RecordID   *uint64
	TxHash     string
	Error      string
	CreatedAt  time.Time
}

const (
	IssuanceStatusFinalized = "finalized"
	IssuanceStatusRejected  = "rejected"
	IssuanceStatusFailed    = "failed"
)

// Observer receives operational measurements. A nil Observer is ignored.
type Observer interface {
	ObserveVerdict(path domain.VerificationPath, status domain.VerdictStatus)
	ObserveLedgerCall(op string, elapsed time.Duration, err error)
	ObserveIssuance(outcome string)
	ObserveHistoryEvent(kind domain.EventKind)
}

type noopObserver struct{}

func (noopObserver) ObserveVerdict(domain.VerificationPath, domain.VerdictStatus) {}
func (noopObserver) ObserveLedgerCall(string, time.Duration, error)              {}
func (noopObserver) ObserveIssuance(string)                                      {}
func (noopObserver) ObserveHistoryEvent(domain.EventKind)                        {}

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}
