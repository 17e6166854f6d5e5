package transcript

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/eleven-am/streamsight/internal/shared"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var ErrNotConfigured = errors.New("transcript archive not configured")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *Store) Migrate() error {
	if !s.Enabled() {
		return nil
	}
	return s.db.AutoMigrate(&Exchange{})
}

func (s *Store) Create(ctx context.Context, e *Exchange) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if e.ID == "" {
		e.ID = shared.NewID("exch_")
	}
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Exchange, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	var exchanges []*Exchange
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&exchanges).Error
	return exchanges, err
}

func (s *Store) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	if !s.Enabled() {
		return 0, ErrNotConfigured
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&Exchange{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
