package db

import (
	"fmt"

	"certichain/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB      *gorm.DB
	History *HistoryRepository
	Journal *IssuanceRepository
}

// NewStore returns a store with a nil DB when POSTGRES_DSN is unset; callers
// fall back to the in-memory history in that case.
func NewStore(cfg config.Config, log *logrus.Entry) (*Store, error) {
	if cfg.PostgresDSN == "" {
		if log != nil {
			log.Info("POSTGRES_DSN not set; history and issuance journal stay in memory")
		}
		return &Store{}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return NewStoreFromDB(gdb), nil
}

func NewStoreFromDB(gdb *gorm.DB) *Store {
	return &Store{
		DB:      gdb,
		History: NewHistoryRepository(gdb),
		Journal: NewIssuanceRepository(gdb),
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&LedgerEventModel{}, &IssuanceModel{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
