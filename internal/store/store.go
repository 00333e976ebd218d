// Package store is the sqlite-backed data store for articles, actors,
// indicators and phishing sites, built on gorm.
package store

import (
	"fmt"

	"github.com/ctiworks/threatboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = gorm.ErrRecordNotFound

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path and migrates
// the schema. Pass "file::memory:?cache=shared" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&models.ThreatArticle{},
		&models.ThreatActor{},
		&models.Indicator{},
		&models.PhishingSite{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type countRow struct {
	Key   string
	Count int64
}

func rowsToMap(rows []countRow) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := r.Key
		if key == "" {
			key = "Unknown"
		}
		out[key] = r.Count
	}
	return out
}
