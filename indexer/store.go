// Package indexer keeps a queryable log of committed node events in a SQL
// database (SQLite or Postgres via gorm).
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leasex/core/events"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// ErrDSNRequired is returned when Open is called without a DSN.
var ErrDSNRequired = errors.New("indexer: DSN must be configured")

// EventRecord is one committed event.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Sequence   uint64    `gorm:"uniqueIndex" json:"sequence"`
	Type       string    `gorm:"size:64;index" json:"type"`
	Attributes string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (EventRecord) TableName() string { return "leasex_events" }

// Attrs decodes the stored attribute map.
func (r EventRecord) Attrs() (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(r.Attributes) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &out); err != nil {
		return nil, fmt.Errorf("indexer: decode attributes of %s: %w", r.ID, err)
	}
	return out, nil
}

// Store persists events.
type Store struct {
	db *gorm.DB

	mu      sync.Mutex
	lastSeq uint64
	now     func() time.Time
}

// Open connects to dsn. DSNs starting with postgres:// or postgresql:// use
// the Postgres driver; anything else is treated as a SQLite path or URI.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: nil database")
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last uint64
	if err := db.Model(&EventRecord{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	return &Store{db: db, lastSeq: last, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores evt and returns the persisted row.
func (s *Store) Record(ctx context.Context, evt events.Event) (*EventRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("indexer: store not configured")
	}
	payload := events.Payload(evt)
	if payload == nil {
		return nil, fmt.Errorf("indexer: nil event")
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return nil, fmt.Errorf("indexer: encode attributes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &EventRecord{
		ID:         uuid.New(),
		Sequence:   s.lastSeq + 1,
		Type:       payload.Type,
		Attributes: string(attrs),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("indexer: insert event: %w", err)
	}
	s.lastSeq = rec.Sequence
	return rec, nil
}

// Query filters Recent.
type Query struct {
	Types  []string
	Limit  int
	Before uint64 // exclusive sequence cursor; zero means latest
}

// Recent returns the newest events first.
func (s *Store) Recent(ctx context.Context, q Query) ([]EventRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("indexer: store not configured")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	tx := s.db.WithContext(ctx).Model(&EventRecord{})
	if len(q.Types) > 0 {
		tx = tx.Where("type IN ?", q.Types)
	}
	if q.Before > 0 {
		tx = tx.Where("sequence < ?", q.Before)
	}
	var out []EventRecord
	if err := tx.Order("sequence DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: query events: %w", err)
	}
	return out, nil
}

// ByType returns every event of one type, oldest first.
func (s *Store) ByType(ctx context.Context, eventType string) ([]EventRecord, error) {
	var out []EventRecord
	err := s.db.WithContext(ctx).
		Where("type = ?", eventType).
		Order("sequence ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: query %s: %w", eventType, err)
	}
	return out, nil
}
