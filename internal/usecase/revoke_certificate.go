package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"certichain/internal/domain"

	"github.com/sirupsen/logrus"
)

// RevokeCertificate invalidates a record. Revocation is one-way; the ledger
// has no operation that sets a record valid again.
type RevokeCertificate struct {
	Certificates CertificateLedger
	Timeout      time.Duration
	Observer     Observer
	Log          *logrus.Entry
}

func NewRevokeCertificate(certificates CertificateLedger, timeout time.Duration) *RevokeCertificate {
	return &RevokeCertificate{Certificates: certificates, Timeout: timeout}
}

func (uc *RevokeCertificate) Execute(ctx context.Context, recordID uint64, reason string) (domain.TxReceipt, error) {
	if uc == nil {
		return domain.TxReceipt{}, errors.New("revoke certificate usecase is nil")
	}
	if uc.Certificates == nil {
		return domain.TxReceipt{}, errors.New("certificate ledger is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.TxReceipt{}, domain.InputError("revocation reason is required")
	}

	record, err := callLedger(ctx, uc.Timeout, uc.Observer, "getCertificate", func(ctx context.Context) (domain.Record, error) {
		return uc.Certificates.GetCertificate(ctx, recordID)
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}
	if !record.Exists() {
		return domain.TxReceipt{}, fmt.Errorf("certificate %d: %w", recordID, domain.ErrNotFound)
	}
	if !record.Valid {
		return domain.TxReceipt{}, fmt.Errorf("certificate %d: %w", recordID, domain.ErrAlreadyRevoked)
	}
	if acct, ok := uc.Certificates.(Account); ok {
		caller, signed := acct.Account()
		if !signed {
			return domain.TxReceipt{}, domain.ErrReadOnly
		}
		if caller != record.Issuer {
			return domain.TxReceipt{}, fmt.Errorf("certificate %d: %w", recordID, domain.ErrNotIssuer)
		}
	}

	receipt, err := uc.Certificates.RevokeCertificate(ctx, recordID, reason)
	log := logOrDiscard(uc.Log).WithField("record_id", recordID)
	if err != nil {
		log.WithError(err).Warn("certificate revocation failed")
		return domain.TxReceipt{}, err
	}
	log.WithField("tx_hash", receipt.TxHash).Info("certificate revoked")
	return receipt, nil
}
