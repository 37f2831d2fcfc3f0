package db

import "time"

type LedgerEventModel struct {
	ID              int64   `gorm:"primaryKey"`
	Kind            string  `gorm:"index;not null"`
	RecordID        *uint64 `gorm:"index"`
	Issuer          *string
	Subject         *string
	Commitment      *string `gorm:"index"`
	Reason          *string
	Institution     *string `gorm:"index"`
	InstitutionName *string
	BlockNumber     uint64    `gorm:"index;not null"`
	TxHash          string    `gorm:"uniqueIndex:idx_ledger_events_position;not null"`
	LogIndex        uint      `gorm:"uniqueIndex:idx_ledger_events_position;not null"`
	ObservedAt      time.Time `gorm:"not null"`
}

func (LedgerEventModel) TableName() string {
	return "ledger_events"
}

type IssuanceModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Issuer     string `gorm:"index;not null"`
	Subject    string `gorm:"not null"`
	Commitment string `gorm:"index;not null"`
	Status     string `gorm:"index;not null"`
	RecordID   *uint64
	TxHash     *string
	Error      *string
	CreatedAt  time.Time `gorm:"not null"`
}

func (IssuanceModel) TableName() string {
	return "issuances"
}
