package db

import (
	"context"
	"errors"

	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores event once per (tx_hash, log_index); replays report false.
func (r *HistoryRepository) Append(ctx context.Context, event domain.LedgerEvent) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	if event.TxHash == "" {
		return false, errors.New("tx_hash is required")
	}
	model := ledgerEventModelFromDomain(event)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *HistoryRepository) List(ctx context.Context, filter usecase.HistoryFilter) ([]domain.LedgerEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&LedgerEventModel{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if filter.RecordID != nil {
		query = query.Where("record_id = ?", *filter.RecordID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var models []LedgerEventModel
	if err := query.Order("block_number DESC").Order("log_index DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEvent, 0, len(models))
	for _, model := range models {
		event, err := ledgerEventFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *HistoryRepository) LastBlock(ctx context.Context) (uint64, bool, error) {
	if r.db == nil {
		return 0, false, errDBUnavailable
	}
	var row struct {
		Last *int64
	}
	if err := r.db.WithContext(ctx).
		Model(&LedgerEventModel{}).
		Select("MAX(block_number) AS last").
		Scan(&row).Error; err != nil {
		return 0, false, err
	}
	if row.Last == nil {
		return 0, false, nil
	}
	return uint64(*row.Last), true, nil
}

func ledgerEventModelFromDomain(event domain.LedgerEvent) LedgerEventModel {
	model := LedgerEventModel{
		Kind:            string(event.Kind),
		Issuer:          addressPtr(event.Issuer),
		Subject:         addressPtr(event.Subject),
		Reason:          stringPtrIfNotEmpty(event.Reason),
		Institution:     addressPtr(event.Institution),
		InstitutionName: stringPtrIfNotEmpty(event.InstitutionName),
		BlockNumber:     event.BlockNumber,
		TxHash:          event.TxHash,
		LogIndex:        event.LogIndex,
		ObservedAt:      event.ObservedAt.UTC(),
	}
	if event.Kind.Certificate() {
		id := event.RecordID
		model.RecordID = &id
	}
	if !event.Commitment.IsZero() {
		model.Commitment = stringPtrIfNotEmpty(event.Commitment.Hex())
	}
	return model
}

func ledgerEventFromModel(model LedgerEventModel) (domain.LedgerEvent, error) {
	event := domain.LedgerEvent{
		Kind:            domain.EventKind(model.Kind),
		Issuer:          addressValue(model.Issuer),
		Subject:         addressValue(model.Subject),
		Reason:          stringValue(model.Reason),
		Institution:     addressValue(model.Institution),
		InstitutionName: stringValue(model.InstitutionName),
		BlockNumber:     model.BlockNumber,
		TxHash:          model.TxHash,
		LogIndex:        model.LogIndex,
		ObservedAt:      model.ObservedAt.UTC(),
	}
	if model.RecordID != nil {
		event.RecordID = *model.RecordID
	}
	if model.Commitment != nil {
		digest, err := commitment.ParseDigest(*model.Commitment)
		if err != nil {
			return domain.LedgerEvent{}, err
		}
		event.Commitment = digest
	}
	return event, nil
}

var _ usecase.HistoryStore = (*HistoryRepository)(nil)
