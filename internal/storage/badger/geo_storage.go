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

// GeoStorage implements the GeoStorage interface for Badger
type GeoStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewGeoStorage creates a new GeoStorage instance
func NewGeoStorage(db *BadgerDB, logger arbor.ILogger) interfaces.GeoStorage {
	return &GeoStorage{
		db:     db,
		logger: logger,
	}
}

func (s *GeoStorage) SaveState(ctx context.Context, state *models.State) error {
	if state.ID == "" {
		return fmt.Errorf("state ID is required")
	}
	if err := s.db.Store().Upsert(state.ID, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *GeoStorage) GetState(ctx context.Context, id string) (*models.State, error) {
	var state models.State
	if err := s.db.Store().Get(id, &state); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return &state, nil
}

func (s *GeoStorage) CountStates(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.State{}, activeQuery())
	if err != nil {
		return 0, fmt.Errorf("failed to count states: %w", err)
	}
	return int(count), nil
}

// ListStates pages active states in a stable ID order so repeated scans of
// the same scope enumerate the same sequence.
func (s *GeoStorage) ListStates(ctx context.Context, offset, limit int) ([]*models.State, error) {
	var states []models.State
	query := activeQuery().SortBy("ID").Skip(offset).Limit(limit)
	if err := s.db.Store().Find(&states, query); err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	result := make([]*models.State, len(states))
	for i := range states {
		result[i] = &states[i]
	}
	return result, nil
}

func (s *GeoStorage) SaveCity(ctx context.Context, city *models.City) error {
	if city.ID == "" {
		return fmt.Errorf("city ID is required")
	}
	if err := s.db.Store().Upsert(city.ID, city); err != nil {
		return fmt.Errorf("failed to save city: %w", err)
	}
	return nil
}

func (s *GeoStorage) CountCities(ctx context.Context, stateID string) (int, error) {
	query := activeQuery()
	if stateID != "" {
		query = query.And("StateID").Eq(stateID)
	}
	count, err := s.db.Store().Count(&models.City{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count cities: %w", err)
	}
	return int(count), nil
}

func (s *GeoStorage) ListCities(ctx context.Context, stateID string, offset, limit int) ([]*models.City, error) {
	query := activeQuery()
	if stateID != "" {
		query = query.And("StateID").Eq(stateID)
	}
	query = query.SortBy("ID").Skip(offset).Limit(limit)

	var cities []models.City
	if err := s.db.Store().Find(&cities, query); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cityPtrs(cities), nil
}

// ListCitiesByPopulation returns the most populous active cities, largest
// first. Ties keep badgerhold's sort order, which is stable per scan.
func (s *GeoStorage) ListCitiesByPopulation(ctx context.Context, limit int) ([]*models.City, error) {
	var cities []models.City
	query := activeQuery().SortBy("Population").Reverse().Limit(limit)
	if err := s.db.Store().Find(&cities, query); err != nil {
		return nil, fmt.Errorf("failed to list cities by population: %w", err)
	}
	return cityPtrs(cities), nil
}

func (s *GeoStorage) CountMajorCities(ctx context.Context) (int, error) {
	query := activeQuery().And("IsMajorCity").Eq(true)
	count, err := s.db.Store().Count(&models.City{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count major cities: %w", err)
	}
	return int(count), nil
}

func (s *GeoStorage) ListMajorCities(ctx context.Context, offset, limit int) ([]*models.City, error) {
	var cities []models.City
	query := activeQuery().And("IsMajorCity").Eq(true).SortBy("ID").Skip(offset).Limit(limit)
	if err := s.db.Store().Find(&cities, query); err != nil {
		return nil, fmt.Errorf("failed to list major cities: %w", err)
	}
	return cityPtrs(cities), nil
}

func activeQuery() *badgerhold.Query {
	return badgerhold.Where("IsActive").Eq(true)
}

func cityPtrs(cities []models.City) []*models.City {
	result := make([]*models.City, len(cities))
	for i := range cities {
		result[i] = &cities[i]
	}
	return result
}
