package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"certichain/internal/domain"
	"certichain/pkg/commitment"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultMetadataTimeout = 5 * time.Second

// VerifyCertificate turns a record id or a holder's personal data into a
// Verdict. Only ledger state is trusted; metadata is decoration.
type VerifyCertificate struct {
	Engine          *commitment.Engine
	Registry        *CommitmentRegistry
	Certificates    CertificateLedger
	Institutions    InstitutionRegistry
	Metadata        MetadataFetcher
	Timeout         time.Duration
	MetadataTimeout time.Duration
	Observer        Observer
	Log             *logrus.Entry
	Now             func() time.Time
}

func NewVerifyCertificate(engine *commitment.Engine, certificates CertificateLedger, institutions InstitutionRegistry, timeout time.Duration) *VerifyCertificate {
	return &VerifyCertificate{
		Engine:       engine,
		Registry:     NewCommitmentRegistry(certificates, timeout),
		Certificates: certificates,
		Institutions: institutions,
		Timeout:      timeout,
	}
}

// ParseRecordID accepts a non-negative decimal integer.
func ParseRecordID(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, domain.InputError("certificate id is required")
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, domain.InputError("certificate id %q must be a non-negative integer", value)
	}
	return id, nil
}

// ByID verifies a record the holder identified by number.
func (uc *VerifyCertificate) ByID(ctx context.Context, recordID uint64) (domain.Verdict, error) {
	if err := uc.validate(); err != nil {
		return domain.Verdict{}, err
	}
	v := uc.begin(domain.PathByID)
	v, err := uc.evaluate(ctx, v, recordID)
	return uc.finish(ctx, v, err)
}

// ByData recomputes the commitment from personal data and looks it up.
// Every miss on this path reports the same generic message.
func (uc *VerifyCertificate) ByData(ctx context.Context, data commitment.Data) (domain.Verdict, error) {
	if err := uc.validate(); err != nil {
		return domain.Verdict{}, err
	}
	if err := validateData(data); err != nil {
		return domain.Verdict{}, err
	}
	v := uc.begin(domain.PathByData)
	v.Stage = domain.StageComputingCommitment
	commit, err := uc.engine().CommitData(data)
	if err != nil {
		if errors.Is(err, commitment.ErrInvalidInput) {
			return domain.Verdict{}, domain.InputError("%s", strings.TrimPrefix(err.Error(), commitment.ErrInvalidInput.Error()+": "))
		}
		return domain.Verdict{}, err
	}
	v.Stage = domain.StageResolvingID
	id, err := uc.registry().Resolve(ctx, commit.Value)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uc.finish(ctx, notFound(v, domain.MessageNoDataMatch), nil)
		}
		return uc.finish(ctx, v, err)
	}
	v, err = uc.evaluate(ctx, v, id)
	return uc.finish(ctx, v, err)
}

func (uc *VerifyCertificate) evaluate(ctx context.Context, v domain.Verdict, recordID uint64) (domain.Verdict, error) {
	v.Stage = domain.StageFetchingByID
	record, err := callLedger(ctx, uc.Timeout, uc.Observer, "getCertificate", func(ctx context.Context) (domain.Record, error) {
		return uc.Certificates.GetCertificate(ctx, recordID)
	})
	if err != nil {
		return v, err
	}
	if !record.Exists() {
		if v.Path == domain.PathByData {
			return notFound(v, domain.MessageNoDataMatch), nil
		}
		return notFound(v, domain.MessageNotFoundOnChain), nil
	}
	record.ID = recordID
	v.RecordID = &recordID
	v.Record = &record
	v.Stage = domain.StageEvaluatingTrust

	if !record.Valid {
		v.Metadata = uc.fetchMetadata(ctx, record.ContentPointer)
		v.Status = domain.VerdictRevoked
		v.Message = "certificate revoked"
		if record.RevokeReason != "" {
			v.Message = "certificate revoked: " + domain.Truncate(record.RevokeReason, domain.DisplayLimit)
		}
		return v, nil
	}

	var (
		authorized bool
		metadata   json.RawMessage
		g          errgroup.Group
	)
	g.Go(func() error {
		ok, err := callLedger(ctx, uc.Timeout, uc.Observer, "isAuthorized", func(ctx context.Context) (bool, error) {
			return uc.Institutions.IsAuthorizedInstitution(ctx, record.Issuer)
		})
		authorized = ok
		return err
	})
	g.Go(func() error {
		metadata = uc.fetchMetadata(ctx, record.ContentPointer)
		return nil
	})
	if err := g.Wait(); err != nil {
		return v, err
	}
	v.IssuerAuthorized = &authorized
	v.Metadata = metadata
	if authorized {
		v.Status = domain.VerdictValid
		v.Message = ""
	} else {
		v.Status = domain.VerdictValidIssuerInactive
		v.Message = domain.MessageIssuerInactive
	}
	return v, nil
}

func (uc *VerifyCertificate) fetchMetadata(ctx context.Context, pointer string) json.RawMessage {
	if uc.Metadata == nil || pointer == "" || domain.IsPlaceholderPointer(pointer) {
		return nil
	}
	timeout := uc.MetadataTimeout
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	doc, err := uc.Metadata.Fetch(fetchCtx, pointer)
	if err != nil {
		logOrDiscard(uc.Log).WithError(err).WithField("pointer", pointer).Debug("metadata fetch failed")
		return nil
	}
	return doc
}

func (uc *VerifyCertificate) begin(path domain.VerificationPath) domain.Verdict {
	return domain.Verdict{Path: path, Stage: domain.StageIdle}
}

// finish converts ledger failures into a transient verdict. Caller
// cancellation is returned as an error so abandoned queries produce nothing.
func (uc *VerifyCertificate) finish(ctx context.Context, v domain.Verdict, err error) (domain.Verdict, error) {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Verdict{}, ctxErr
		}
		logOrDiscard(uc.Log).WithError(err).WithField("path", v.Path).WithField("stage", v.Stage).Warn("verification failed")
		v.Status = domain.VerdictTransient
		v.Stage = domain.StageFailed
		v.Message = domain.MessageTransient
		v.Record = nil
		v.RecordID = nil
		v.IssuerAuthorized = nil
		v.Metadata = nil
	} else {
		v.Stage = domain.StageDone
	}
	v.CheckedAt = uc.now()
	observerOrNoop(uc.Observer).ObserveVerdict(v.Path, v.Status)
	return v, nil
}

func (uc *VerifyCertificate) validate() error {
	if uc == nil {
		return errors.New("verify certificate usecase is nil")
	}
	if uc.Certificates == nil {
		return errors.New("certificate ledger is required")
	}
	if uc.Institutions == nil {
		return errors.New("institution registry is required")
	}
	return nil
}

func (uc *VerifyCertificate) engine() *commitment.Engine {
	if uc.Engine == nil {
		return commitment.Default()
	}
	return uc.Engine
}

func (uc *VerifyCertificate) registry() *CommitmentRegistry {
	if uc.Registry != nil {
		return uc.Registry
	}
	return &CommitmentRegistry{Ledger: uc.Certificates, Timeout: uc.Timeout, Observer: uc.Observer}
}

func (uc *VerifyCertificate) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}

func notFound(v domain.Verdict, message string) domain.Verdict {
	v.Status = domain.VerdictNotFound
	v.Message = message
	v.Record = nil
	v.RecordID = nil
	return v
}

func validateData(data commitment.Data) error {
	var missing []string
	if data.Name == "" {
		missing = append(missing, "name")
	}
	if data.Email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(data.EnrollmentDate) == "" {
		missing = append(missing, "enrollment_date")
	}
	if len(missing) > 0 {
		return domain.InputError("%s required", strings.Join(missing, ", "))
	}
	return nil
}
