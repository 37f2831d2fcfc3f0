package usecase

import (
	"context"
	"errors"
	"time"

	"certichain/internal/domain"
	"certichain/pkg/commitment"
)

// CommitmentRegistry resolves commitments to record ids.
type CommitmentRegistry struct {
	Ledger   CertificateLedger
	Timeout  time.Duration
	Observer Observer
}

func NewCommitmentRegistry(ledger CertificateLedger, timeout time.Duration) *CommitmentRegistry {
	return &CommitmentRegistry{Ledger: ledger, Timeout: timeout}
}

// Resolve returns the record id bound to commit. The ledger's sentinel 0 is
// reported as domain.ErrNotFound.
func (r *CommitmentRegistry) Resolve(ctx context.Context, commit commitment.Digest) (uint64, error) {
	if r == nil || r.Ledger == nil {
		return 0, errors.New("certificate ledger is required")
	}
	id, err := callLedger(ctx, r.Timeout, r.Observer, "getCertificateByHash", func(ctx context.Context) (uint64, error) {
		return r.Ledger.GetCertificateByCommitment(ctx, commit)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	if id == 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
