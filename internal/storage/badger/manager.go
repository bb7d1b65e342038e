package badger

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	page     interfaces.PageStorage
	geo      interfaces.GeoStorage
	category interfaces.CategoryStorage
	job      interfaces.JobStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		page:     NewPageStorage(db, logger),
		geo:      NewGeoStorage(db, logger),
		category: NewCategoryStorage(db, logger),
		job:      NewJobStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// PageStorage returns the Page storage interface
func (m *Manager) PageStorage() interfaces.PageStorage {
	return m.page
}

// GeoStorage returns the Geo storage interface
func (m *Manager) GeoStorage() interfaces.GeoStorage {
	return m.geo
}

// CategoryStorage returns the Category storage interface
func (m *Manager) CategoryStorage() interfaces.CategoryStorage {
	return m.category
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// LoadSeedData loads geography and category reference data from YAML files
func (m *Manager) LoadSeedData(ctx context.Context, dirPath string) error {
	return LoadSeedData(ctx, m.geo, m.category, dirPath, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
