package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PageStorage implements the PageStorage interface for Badger
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) FindBySlug(ctx context.Context, slug string) (*models.Page, error) {
	var page models.Page
	if err := s.db.Store().FindOne(&page, badgerhold.Where("Slug").Eq(slug)); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find page by slug: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) Create(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}
	if page.Slug == "" {
		return fmt.Errorf("page slug is required")
	}

	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	if err := s.db.Store().Insert(page.ID, page); err != nil {
		if errors.Is(err, badgerhold.ErrUniqueExists) || errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("create page %s: %w", page.Slug, interfaces.ErrConflict)
		}
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

func (s *PageStorage) Update(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}

	page.UpdatedAt = time.Now()

	if err := s.db.Store().Update(page.ID, page); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

func (s *PageStorage) Count(ctx context.Context, opts *interfaces.PageListOptions) (int, error) {
	count, err := s.db.Store().Count(&models.Page{}, pageQuery(opts, false))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) List(ctx context.Context, opts *interfaces.PageListOptions) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, pageQuery(opts, true)); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Page{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

func pageQuery(opts *interfaces.PageListOptions, paginate bool) *badgerhold.Query {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.CategoryID != "" {
			query = query.And("CategoryID").Eq(opts.CategoryID)
		}
		if opts.GeoLevel != "" {
			query = query.And("GeoLevel").Eq(models.GeoLevel(opts.GeoLevel))
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(models.PageStatus(opts.Status))
		}
		if paginate {
			if opts.OrderBy != "" {
				if opts.OrderDir == "DESC" {
					query = query.SortBy(opts.OrderBy).Reverse()
				} else {
					query = query.SortBy(opts.OrderBy)
				}
			} else {
				query = query.SortBy("CreatedAt").Reverse()
			}
			if opts.Offset > 0 {
				query = query.Skip(opts.Offset)
			}
			if opts.Limit > 0 {
				query = query.Limit(opts.Limit)
			}
		}
	}

	return query
}
