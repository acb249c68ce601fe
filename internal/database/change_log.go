package database

import (
	"context"

	"github.com/staldhusene/faellesspisning/internal/models"
	"gorm.io/gorm"
)

type ChangeLogStore struct {
	db *gorm.DB
}

func NewChangeLogStore(db *gorm.DB) *ChangeLogStore {
	return &ChangeLogStore{db: db}
}

func (s *ChangeLogStore) Record(ctx context.Context, entry *models.ChangeLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// List returns the newest changes first. An empty house lists all houses.
func (s *ChangeLogStore) List(ctx context.Context, house string, limit int) ([]models.ChangeLog, error) {
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if house != "" {
		q = q.Where("house = ?", house)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.ChangeLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
