package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/mapper"
	"github.com/ternarybob/pagemill/internal/models"
	"gopkg.in/yaml.v3"
)

// seedFiles are the recognized reference data files inside the seeds
// directory. Missing files are skipped; a present file that fails to parse
// aborts the load.
const (
	statesFile     = "states.yaml"
	citiesFile     = "cities.yaml"
	categoriesFile = "insurance_types.yaml"
)

type stateSeedFile struct {
	States []models.State `yaml:"states"`
}

type citySeedFile struct {
	Cities []models.City `yaml:"cities"`
}

type categorySeedFile struct {
	InsuranceTypes []models.InsuranceType `yaml:"insurance_types"`
}

// LoadSeedData loads geography and category reference data from YAML files
// in dirPath. Records are upserted, so reloading the same files on startup
// is idempotent. Missing slugs are derived from names.
func LoadSeedData(ctx context.Context, geo interfaces.GeoStorage, category interfaces.CategoryStorage, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading seed data from files")

	if info, err := os.Stat(dirPath); err != nil || !info.IsDir() {
		logger.Warn().Str("dir", dirPath).Msg("Seeds directory not found, skipping seed load")
		return nil
	}

	stateCount, err := loadStateSeeds(ctx, geo, filepath.Join(dirPath, statesFile), logger)
	if err != nil {
		return err
	}

	cityCount, err := loadCitySeeds(ctx, geo, filepath.Join(dirPath, citiesFile), logger)
	if err != nil {
		return err
	}

	categoryCount, err := loadCategorySeeds(ctx, category, filepath.Join(dirPath, categoriesFile), logger)
	if err != nil {
		return err
	}

	logger.Info().
		Int("states", stateCount).
		Int("cities", cityCount).
		Int("categories", categoryCount).
		Msg("Finished loading seed data")

	return nil
}

func loadStateSeeds(ctx context.Context, geo interfaces.GeoStorage, filePath string, logger arbor.ILogger) (int, error) {
	content, ok, err := readSeedFile(filePath, logger)
	if err != nil || !ok {
		return 0, err
	}

	var file stateSeedFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	loaded := 0
	for i := range file.States {
		state := file.States[i]
		if state.ID == "" || state.Name == "" {
			logger.Warn().Str("file", filePath).Int("index", i).Msg("Skipping state seed without id or name")
			continue
		}
		if state.Slug == "" {
			state.Slug = mapper.Slugify(state.Name)
		}
		if err := geo.SaveState(ctx, &state); err != nil {
			return loaded, fmt.Errorf("failed to save state %s: %w", state.ID, err)
		}
		loaded++
	}
	return loaded, nil
}

func loadCitySeeds(ctx context.Context, geo interfaces.GeoStorage, filePath string, logger arbor.ILogger) (int, error) {
	content, ok, err := readSeedFile(filePath, logger)
	if err != nil || !ok {
		return 0, err
	}

	var file citySeedFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	loaded := 0
	for i := range file.Cities {
		city := file.Cities[i]
		if city.ID == "" || city.Name == "" || city.StateID == "" {
			logger.Warn().Str("file", filePath).Int("index", i).Msg("Skipping city seed without id, name or state_id")
			continue
		}
		if city.Slug == "" {
			city.Slug = mapper.Slugify(city.Name)
		}
		if err := geo.SaveCity(ctx, &city); err != nil {
			return loaded, fmt.Errorf("failed to save city %s: %w", city.ID, err)
		}
		loaded++
	}
	return loaded, nil
}

func loadCategorySeeds(ctx context.Context, category interfaces.CategoryStorage, filePath string, logger arbor.ILogger) (int, error) {
	content, ok, err := readSeedFile(filePath, logger)
	if err != nil || !ok {
		return 0, err
	}

	var file categorySeedFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(filePath), err)
	}

	loaded := 0
	for i := range file.InsuranceTypes {
		insType := file.InsuranceTypes[i]
		if insType.ID == "" || insType.Name == "" {
			logger.Warn().Str("file", filePath).Int("index", i).Msg("Skipping category seed without id or name")
			continue
		}
		if insType.Slug == "" {
			insType.Slug = mapper.Slugify(insType.Name)
		}
		if err := category.SaveCategory(ctx, &insType); err != nil {
			return loaded, fmt.Errorf("failed to save category %s: %w", insType.ID, err)
		}
		loaded++
	}
	return loaded, nil
}

func readSeedFile(filePath string, logger arbor.ILogger) ([]byte, bool, error) {
	if _, err := os.Stat(filePath); err != nil {
		logger.Debug().Str("file", filePath).Msg("Seed file not found, skipping")
		return nil, false, nil
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", filepath.Base(filePath), err)
	}
	return content, true, nil
}
