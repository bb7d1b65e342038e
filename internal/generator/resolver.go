package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/mapper"
	"github.com/ternarybob/pagemill/internal/models"
)

// resolverPageSize is the store page size used when enumerating large scopes.
// Internal tuning constant, never user-visible.
const resolverPageSize = 100

// DefaultTopCitiesLimit bounds TOP_CITIES when the request leaves Limit unset
const DefaultTopCitiesLimit = 500

// Target is one candidate page: its computed key, rendered content fields and
// owning entity references. Targets are ephemeral; they exist only between
// resolution and the entity store write. Err marks a row that could not be
// resolved to a key; the batch run counts it failed without attempting a write.
type Target struct {
	Slug            string
	Title           string
	MetaTitle       string
	MetaDescription string
	CategoryID      string
	StateID         string
	CityID          string
	GeoLevel        models.GeoLevel
	Custom          map[string]string
	Err             string
}

// Resolver enumerates the target set for one action kind. Total is computed
// cheaply (count queries, never materialization); ForEach pushes targets one
// at a time, paging the backing store so the largest scopes stay bounded in
// memory. Returning an error from fn stops the iteration.
type Resolver interface {
	Total(ctx context.Context) (int, error)
	ForEach(ctx context.Context, fn func(Target) error) error
}

// newResolver dispatches on the action kind. The switch is exhaustive over
// the closed enum; an unknown action is a request-level error caught at job
// creation, so reaching default here means a corrupted job record.
func newResolver(job *models.Job, storage interfaces.StorageManager, category *models.InsuranceType) (Resolver, error) {
	switch job.Action {
	case models.ActionAllStates:
		return &allStatesResolver{geo: storage.GeoStorage(), category: category}, nil
	case models.ActionAllCities:
		return &citiesResolver{geo: storage.GeoStorage(), category: category}, nil
	case models.ActionStateCities:
		if job.StateID == "" {
			return nil, fmt.Errorf("%s requires a state filter", job.Action)
		}
		return &citiesResolver{geo: storage.GeoStorage(), category: category, stateID: job.StateID}, nil
	case models.ActionTopCities:
		limit := job.Limit
		if limit <= 0 {
			limit = DefaultTopCitiesLimit
		}
		return &topCitiesResolver{geo: storage.GeoStorage(), category: category, limit: limit}, nil
	case models.ActionMajorMetros:
		return &majorMetrosResolver{geo: storage.GeoStorage(), category: category}, nil
	case models.ActionCategoryMatrix:
		return &categoryMatrixResolver{geo: storage.GeoStorage(), categories: storage.CategoryStorage()}, nil
	case models.ActionCSVImport:
		return &csvResolver{job: job, category: category}, nil
	default:
		return nil, fmt.Errorf("unknown action: %s", job.Action)
	}
}

// joinSlug composes a key path from its non-empty parts
func joinSlug(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func categorySlug(category *models.InsuranceType) string {
	if category == nil {
		return ""
	}
	return category.Slug
}

func categoryID(category *models.InsuranceType) string {
	if category == nil {
		return ""
	}
	return category.ID
}

func categoryName(category *models.InsuranceType) string {
	if category == nil {
		return ""
	}
	return category.Name
}

func stateTarget(category *models.InsuranceType, state *models.State) Target {
	values := templateValues(categoryName(category), state.Name, state.Code, "")
	return Target{
		Slug:            joinSlug(categorySlug(category), state.Slug),
		Title:           renderTemplate(stateSEO.TitleTemplate, values),
		MetaTitle:       renderTemplate(stateSEO.MetaTemplate, values),
		MetaDescription: renderTemplate(stateSEO.DescTemplate, values),
		CategoryID:      categoryID(category),
		StateID:         state.ID,
		GeoLevel:        models.GeoLevelState,
	}
}

func cityTarget(category *models.InsuranceType, state *models.State, city *models.City) Target {
	stateName, stateCode, stateSlug := "", "", ""
	if state != nil {
		stateName, stateCode, stateSlug = state.Name, state.Code, state.Slug
	}
	values := templateValues(categoryName(category), stateName, stateCode, city.Name)
	return Target{
		Slug:            joinSlug(categorySlug(category), stateSlug, city.Slug),
		Title:           renderTemplate(citySEO.TitleTemplate, values),
		MetaTitle:       renderTemplate(citySEO.MetaTemplate, values),
		MetaDescription: renderTemplate(citySEO.DescTemplate, values),
		CategoryID:      categoryID(category),
		StateID:         city.StateID,
		CityID:          city.ID,
		GeoLevel:        models.GeoLevelCity,
	}
}

// loadStateIndex materializes active states keyed by ID. The state set is
// small and fixed, so this is the one scope resolved wholesale.
func loadStateIndex(ctx context.Context, geo interfaces.GeoStorage) (map[string]*models.State, error) {
	index := make(map[string]*models.State)
	for offset := 0; ; offset += resolverPageSize {
		page, err := geo.ListStates(ctx, offset, resolverPageSize)
		if err != nil {
			return nil, err
		}
		for _, state := range page {
			index[state.ID] = state
		}
		if len(page) < resolverPageSize {
			return index, nil
		}
	}
}

type allStatesResolver struct {
	geo      interfaces.GeoStorage
	category *models.InsuranceType
}

func (r *allStatesResolver) Total(ctx context.Context) (int, error) {
	return r.geo.CountStates(ctx)
}

func (r *allStatesResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	for offset := 0; ; offset += resolverPageSize {
		page, err := r.geo.ListStates(ctx, offset, resolverPageSize)
		if err != nil {
			return err
		}
		for _, state := range page {
			if err := fn(stateTarget(r.category, state)); err != nil {
				return err
			}
		}
		if len(page) < resolverPageSize {
			return nil
		}
	}
}

// citiesResolver covers ALL_CITIES (stateID empty) and STATE_CITIES
type citiesResolver struct {
	geo      interfaces.GeoStorage
	category *models.InsuranceType
	stateID  string
}

func (r *citiesResolver) Total(ctx context.Context) (int, error) {
	return r.geo.CountCities(ctx, r.stateID)
}

func (r *citiesResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	states, err := loadStateIndex(ctx, r.geo)
	if err != nil {
		return err
	}
	for offset := 0; ; offset += resolverPageSize {
		page, err := r.geo.ListCities(ctx, r.stateID, offset, resolverPageSize)
		if err != nil {
			return err
		}
		for _, city := range page {
			if err := fn(cityTarget(r.category, states[city.StateID], city)); err != nil {
				return err
			}
		}
		if len(page) < resolverPageSize {
			return nil
		}
	}
}

type topCitiesResolver struct {
	geo      interfaces.GeoStorage
	category *models.InsuranceType
	limit    int
}

func (r *topCitiesResolver) Total(ctx context.Context) (int, error) {
	count, err := r.geo.CountCities(ctx, "")
	if err != nil {
		return 0, err
	}
	if count > r.limit {
		count = r.limit
	}
	return count, nil
}

func (r *topCitiesResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	states, err := loadStateIndex(ctx, r.geo)
	if err != nil {
		return err
	}
	// Bounded by limit, so one ordered query is fine here
	cities, err := r.geo.ListCitiesByPopulation(ctx, r.limit)
	if err != nil {
		return err
	}
	for _, city := range cities {
		if err := fn(cityTarget(r.category, states[city.StateID], city)); err != nil {
			return err
		}
	}
	return nil
}

type majorMetrosResolver struct {
	geo      interfaces.GeoStorage
	category *models.InsuranceType
}

func (r *majorMetrosResolver) Total(ctx context.Context) (int, error) {
	return r.geo.CountMajorCities(ctx)
}

func (r *majorMetrosResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	states, err := loadStateIndex(ctx, r.geo)
	if err != nil {
		return err
	}
	for offset := 0; ; offset += resolverPageSize {
		page, err := r.geo.ListMajorCities(ctx, offset, resolverPageSize)
		if err != nil {
			return err
		}
		for _, city := range page {
			if err := fn(cityTarget(r.category, states[city.StateID], city)); err != nil {
				return err
			}
		}
		if len(page) < resolverPageSize {
			return nil
		}
	}
}

// categoryMatrixResolver crosses every active category with every active
// state. Size is |categories| x |states| by construction, so totals are
// reported before execution and the caller decides whether to proceed.
type categoryMatrixResolver struct {
	geo        interfaces.GeoStorage
	categories interfaces.CategoryStorage
}

func (r *categoryMatrixResolver) Total(ctx context.Context) (int, error) {
	categories, err := r.categories.CountCategories(ctx)
	if err != nil {
		return 0, err
	}
	states, err := r.geo.CountStates(ctx)
	if err != nil {
		return 0, err
	}
	return categories * states, nil
}

func (r *categoryMatrixResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	for catOffset := 0; ; catOffset += resolverPageSize {
		categories, err := r.categories.ListCategories(ctx, catOffset, resolverPageSize)
		if err != nil {
			return err
		}
		for _, category := range categories {
			for offset := 0; ; offset += resolverPageSize {
				states, err := r.geo.ListStates(ctx, offset, resolverPageSize)
				if err != nil {
					return err
				}
				for _, state := range states {
					if err := fn(stateTarget(category, state)); err != nil {
						return err
					}
				}
				if len(states) < resolverPageSize {
					break
				}
			}
		}
		if len(categories) < resolverPageSize {
			return nil
		}
	}
}

// csvResolver derives targets from the job's frozen row payload and column
// mapping. A row whose key cannot be derived resolves to a failed target.
type csvResolver struct {
	job      *models.Job
	category *models.InsuranceType
}

func (r *csvResolver) Total(ctx context.Context) (int, error) {
	return len(r.job.Rows), nil
}

func (r *csvResolver) ForEach(ctx context.Context, fn func(Target) error) error {
	for _, row := range r.job.Rows {
		if err := fn(r.rowTarget(row)); err != nil {
			return err
		}
	}
	return nil
}

func (r *csvResolver) rowTarget(row models.Row) Target {
	record := mapper.ProjectRow(row, r.job.Mapping, nil)

	// Key derivation: explicit slug column wins, then the projected
	// state/city slug pair. Each segment is re-slugified so a raw slug
	// column never smuggles unsafe characters into the key.
	slug := mapper.Slugify(record[mapper.FieldSlug])
	if slug == "" {
		slug = joinSlug(record["state_slug"], record["city_slug"])
	}
	if slug == "" {
		return Target{Err: "could not derive key"}
	}
	slug = joinSlug(categorySlug(r.category), slug)

	city := record[mapper.FieldCity]
	state := record[mapper.FieldState]
	values := templateValues(categoryName(r.category), state, record[mapper.FieldStateCode], city)

	title := record[mapper.FieldPageTitle]
	metaTitle := ""
	if title == "" {
		switch {
		case city != "":
			title = renderTemplate(citySEO.TitleTemplate, values)
			metaTitle = renderTemplate(citySEO.MetaTemplate, values)
		case state != "":
			title = renderTemplate(stateSEO.TitleTemplate, values)
			metaTitle = renderTemplate(stateSEO.MetaTemplate, values)
		default:
			title = slug
		}
	} else {
		metaTitle = title
	}

	metaDescription := record[mapper.FieldMetaDescription]

	geoLevel := models.GeoLevelNone
	if city != "" {
		geoLevel = models.GeoLevelCity
	} else if state != "" {
		geoLevel = models.GeoLevelState
	}

	return Target{
		Slug:            slug,
		Title:           title,
		MetaTitle:       metaTitle,
		MetaDescription: metaDescription,
		CategoryID:      categoryID(r.category),
		GeoLevel:        geoLevel,
		Custom:          record,
	}
}
