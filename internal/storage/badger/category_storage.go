package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CategoryStorage implements the CategoryStorage interface for Badger
type CategoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCategoryStorage creates a new CategoryStorage instance
func NewCategoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CategoryStorage {
	return &CategoryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CategoryStorage) SaveCategory(ctx context.Context, category *models.InsuranceType) error {
	if category.ID == "" {
		return fmt.Errorf("category ID is required")
	}
	if err := s.db.Store().Upsert(category.ID, category); err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (s *CategoryStorage) GetCategory(ctx context.Context, id string) (*models.InsuranceType, error) {
	var category models.InsuranceType
	if err := s.db.Store().Get(id, &category); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (s *CategoryStorage) CountCategories(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.InsuranceType{}, activeQuery())
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return int(count), nil
}

func (s *CategoryStorage) ListCategories(ctx context.Context, offset, limit int) ([]*models.InsuranceType, error) {
	var categories []models.InsuranceType
	query := activeQuery().SortBy("ID").Skip(offset).Limit(limit)
	if err := s.db.Store().Find(&categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	result := make([]*models.InsuranceType, len(categories))
	for i := range categories {
		result[i] = &categories[i]
	}
	return result, nil
}
