package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pumpcap/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists the single valuation row in SQLite
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance. An empty path
// resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.ValuationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "Pumpcap", "data", "pumpcap.db"), nil
}

// UpsertValuation creates or replaces the valuation row for a mint
func (s *Storage) UpsertValuation(rec *domain.ValuationRecord) error {
	return s.db.Save(rec).Error
}

// GetValuation retrieves the valuation row by mint. A missing row is
// not an error: callers serve the "no data yet" sentinel instead.
func (s *Storage) GetValuation(mint string) (*domain.ValuationRecord, error) {
	var rec domain.ValuationRecord
	err := s.db.First(&rec, "mint = ?", mint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Seed writes the boot-time placeholder row (zero market cap, default
// SOL price) so the first read never races the first trade.
func (s *Storage) Seed(mint string, solPrice float64) error {
	return s.UpsertValuation(&domain.ValuationRecord{
		Mint:      mint,
		MarketCap: 0,
		SolPrice:  solPrice,
		Timestamp: time.Now().UnixMilli(),
	})
}
