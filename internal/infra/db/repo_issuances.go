package db

import (
	"context"
	"errors"
	"time"

	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssuanceRepository journals every issuance attempt, including rejected
// and failed ones.
type IssuanceRepository struct {
	db *gorm.DB
}

func NewIssuanceRepository(db *gorm.DB) *IssuanceRepository {
	return &IssuanceRepository{db: db}
}

func (r *IssuanceRepository) Append(ctx context.Context, entry usecase.IssuanceEntry) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if entry.Status == "" {
		return errors.New("status is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	model := IssuanceModel{
		ID:         entry.ID,
		Issuer:     entry.Issuer.Hex(),
		Subject:    entry.Subject.Hex(),
		Commitment: entry.Commitment.Hex(),
		Status:     entry.Status,
		RecordID:   entry.RecordID,
		TxHash:     stringPtrIfNotEmpty(entry.TxHash),
		Error:      stringPtrIfNotEmpty(entry.Error),
		CreatedAt:  entry.CreatedAt.UTC().Truncate(time.Microsecond),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByCommitment returns the attempts for one commitment, oldest first.
func (r *IssuanceRepository) ListByCommitment(ctx context.Context, commit commitment.Digest) ([]usecase.IssuanceEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []IssuanceModel
	if err := r.db.WithContext(ctx).
		Where("commitment = ?", commit.Hex()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]usecase.IssuanceEntry, 0, len(models))
	for _, model := range models {
		entry, err := issuanceEntryFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func issuanceEntryFromModel(model IssuanceModel) (usecase.IssuanceEntry, error) {
	entry := usecase.IssuanceEntry{
		ID:        model.ID,
		Issuer:    addressValue(&model.Issuer),
		Subject:   addressValue(&model.Subject),
		Status:    model.Status,
		RecordID:  model.RecordID,
		TxHash:    stringValue(model.TxHash),
		Error:     stringValue(model.Error),
		CreatedAt: model.CreatedAt.UTC(),
	}
	digest, err := commitment.ParseDigest(model.Commitment)
	if err != nil {
		return usecase.IssuanceEntry{}, err
	}
	entry.Commitment = digest
	return entry, nil
}

var _ usecase.IssuanceLog = (*IssuanceRepository)(nil)
