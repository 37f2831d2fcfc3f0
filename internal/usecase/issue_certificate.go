package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"certichain/internal/domain"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type IssueRequest struct {
	Subject        string `json:"subject"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Course         string `json:"course"`
	EnrollmentDate string `json:"enrollment_date"`
	ContentPointer string `json:"content_pointer,omitempty"`
}

type IssueResult struct {
	RecordID    uint64                   `json:"record_id"`
	TxHash      string                   `json:"tx_hash"`
	BlockNumber uint64                   `json:"block_number"`
	Commitment  commitment.Commitment    `json:"commitment"`
	Policy      *domain.PolicyEvaluation `json:"policy,omitempty"`
}

// IssueCertificate commits the holder's data and records it on the ledger.
// It returns only after the ledger write is final.
type IssueCertificate struct {
	Engine       *commitment.Engine
	Certificates CertificateLedger
	Institutions InstitutionRegistry
	// Issuer is the signing account. When zero it is read from Certificates
	// if that implements Account.
	Issuer          common.Address
	Policy          IssuancePolicy
	Journal         IssuanceJournal
	ValidatePointer func(string) error
	Timeout         time.Duration
	Observer        Observer
	Log             *logrus.Entry
	Now             func() time.Time
}

func NewIssueCertificate(engine *commitment.Engine, certificates CertificateLedger, institutions InstitutionRegistry) *IssueCertificate {
	return &IssueCertificate{Engine: engine, Certificates: certificates, Institutions: institutions}
}

func (uc *IssueCertificate) Execute(ctx context.Context, req IssueRequest) (IssueResult, error) {
	if uc == nil {
		return IssueResult{}, errors.New("issue certificate usecase is nil")
	}
	if uc.Certificates == nil {
		return IssueResult{}, errors.New("certificate ledger is required")
	}

	sub, commit, err := uc.prepare(req)
	if err != nil {
		uc.observe("invalid")
		return IssueResult{}, err
	}
	issuer, ok := uc.issuer()
	if !ok {
		return IssueResult{}, domain.ErrReadOnly
	}
	log := logOrDiscard(uc.Log).WithFields(logrus.Fields{
		"issuer":     issuer.Hex(),
		"commitment": commit.Value.Hex(),
	})

	result := IssueResult{Commitment: commit}
	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, uc.policyInput(issuer, req, sub))
		if err != nil {
			return IssueResult{}, fmt.Errorf("evaluate issuance policy: %w", err)
		}
		result.Policy = &eval
		if !eval.Result.Allow {
			uc.observe("denied")
			uc.journal(ctx, log, issuer, sub, IssuanceStatusRejected, nil, "", denySummary(eval.Result.Deny))
			return result, domain.InputError("issuance policy denied: %s", denySummary(eval.Result.Deny))
		}
	}

	if err := uc.preflight(ctx, issuer, commit.Value); err != nil {
		if !errors.Is(err, domain.ErrTransient) {
			uc.observe(outcomeFor(err))
			uc.journal(ctx, log, issuer, sub, IssuanceStatusRejected, nil, "", domain.Display(err))
		}
		return result, err
	}

	receipt, err := uc.Certificates.IssueCertificate(ctx, sub)
	if err != nil {
		status := IssuanceStatusRejected
		if errors.Is(err, domain.ErrTransient) {
			status = IssuanceStatusFailed
		}
		log.WithError(err).Warn("certificate issuance failed")
		uc.observe(outcomeFor(err))
		uc.journal(ctx, log, issuer, sub, status, nil, "", domain.Display(err))
		return result, err
	}

	id := receipt.RecordID
	result.RecordID = id
	result.TxHash = receipt.TxHash
	result.BlockNumber = receipt.BlockNumber
	uc.observe("issued")
	uc.journal(ctx, log, issuer, sub, IssuanceStatusFinalized, &id, receipt.TxHash, "")
	log.WithField("record_id", id).WithField("tx_hash", receipt.TxHash).Info("certificate issued")
	return result, nil
}

func (uc *IssueCertificate) prepare(req IssueRequest) (domain.IssueSubmission, commitment.Commitment, error) {
	var missing []string
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(req.EnrollmentDate) == "" {
		missing = append(missing, "enrollment_date")
	}
	if len(missing) > 0 {
		return domain.IssueSubmission{}, commitment.Commitment{}, domain.InputError("%s required", strings.Join(missing, ", "))
	}
	subject := strings.TrimSpace(req.Subject)
	if !common.IsHexAddress(subject) {
		return domain.IssueSubmission{}, commitment.Commitment{}, domain.InputError("subject %q is not an address", subject)
	}
	subjectAddr := common.HexToAddress(subject)
	if subjectAddr == (common.Address{}) {
		return domain.IssueSubmission{}, commitment.Commitment{}, domain.InputError("subject must not be the zero address")
	}

	pointer := strings.TrimSpace(req.ContentPointer)
	if pointer == "" {
		pointer = domain.PlaceholderContentPointer
	} else if uc.ValidatePointer != nil && !domain.IsPlaceholderPointer(pointer) {
		if err := uc.ValidatePointer(pointer); err != nil {
			return domain.IssueSubmission{}, commitment.Commitment{}, domain.InputError("content pointer: %v", err)
		}
	}

	engine := uc.Engine
	if engine == nil {
		engine = commitment.Default()
	}
	commit, err := engine.CommitData(commitment.Data{
		Name:           req.Name,
		Email:          req.Email,
		Course:         req.Course,
		EnrollmentDate: req.EnrollmentDate,
	})
	if err != nil {
		if errors.Is(err, commitment.ErrInvalidInput) {
			return domain.IssueSubmission{}, commitment.Commitment{}, domain.InputError("%s", strings.TrimPrefix(err.Error(), commitment.ErrInvalidInput.Error()+": "))
		}
		return domain.IssueSubmission{}, commitment.Commitment{}, err
	}

	return domain.IssueSubmission{
		Subject:          subjectAddr,
		NameFingerprint:  commit.NameDigest,
		EmailFingerprint: commit.EmailDigest,
		Course:           commit.Course,
		EnrollmentDate:   commit.EnrollmentEpoch,
		ContentPointer:   pointer,
		Commitment:       commit.Value,
	}, commit, nil
}

// preflight reproduces the ledger's own checks with reads so the common
// rejections never cost a transaction. The ledger stays authoritative.
func (uc *IssueCertificate) preflight(ctx context.Context, issuer common.Address, commit commitment.Digest) error {
	if uc.Institutions != nil {
		ok, err := callLedger(ctx, uc.Timeout, uc.Observer, "isAuthorized", func(ctx context.Context) (bool, error) {
			return uc.Institutions.IsAuthorizedInstitution(ctx, issuer)
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s is not an authorized institution", domain.ErrUnauthorized, issuer.Hex())
		}
	}
	registry := &CommitmentRegistry{Ledger: uc.Certificates, Timeout: uc.Timeout, Observer: uc.Observer}
	id, err := registry.Resolve(ctx, commit)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: record %d", domain.ErrDuplicateCommitment, id)
}

func (uc *IssueCertificate) policyInput(issuer common.Address, req IssueRequest, sub domain.IssueSubmission) domain.IssuancePolicyInput {
	return domain.IssuancePolicyInput{
		Issuer:         issuer.Hex(),
		Subject:        sub.Subject.Hex(),
		NameLength:     utf8.RuneCountInString(req.Name),
		EmailLength:    utf8.RuneCountInString(req.Email),
		EmailHasAt:     strings.Contains(req.Email, "@"),
		Course:         sub.Course,
		EnrollmentDate: sub.EnrollmentDate,
		ContentPointer: sub.ContentPointer,
		Now:            uc.now().Unix(),
	}
}

func (uc *IssueCertificate) issuer() (common.Address, bool) {
	if uc.Issuer != (common.Address{}) {
		return uc.Issuer, true
	}
	if acct, ok := uc.Certificates.(Account); ok {
		return acct.Account()
	}
	return common.Address{}, false
}

func (uc *IssueCertificate) journal(ctx context.Context, log *logrus.Entry, issuer common.Address, sub domain.IssueSubmission, status string, recordID *uint64, txHash, reason string) {
	if uc.Journal == nil {
		return
	}
	entry := IssuanceEntry{
		ID:         uuid.NewString(),
		Issuer:     issuer,
		Subject:    sub.Subject,
		Commitment: sub.Commitment,
		Status:     status,
		RecordID:   recordID,
		TxHash:     txHash,
		Error:      reason,
		CreatedAt:  uc.now(),
	}
	if err := uc.Journal.Append(ctx, entry); err != nil {
		log.WithError(err).Warn("issuance journal append failed")
	}
}

func (uc *IssueCertificate) observe(outcome string) {
	observerOrNoop(uc.Observer).ObserveIssuance(outcome)
}

func (uc *IssueCertificate) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateCommitment):
		return "duplicate"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, domain.ErrInputValidation):
		return "invalid"
	default:
		return "rejected"
	}
}

func denySummary(denies []domain.PolicyDeny) string {
	if len(denies) == 0 {
		return "not allowed"
	}
	codes := make([]string, 0, len(denies))
	for _, d := range denies {
		codes = append(codes, d.Code)
	}
	return strings.Join(codes, ", ")
}
