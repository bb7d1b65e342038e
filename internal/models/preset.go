package models

// Preset describes one pre-configured generation action for catalog display
type Preset struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	EstimatedPages   string     `json:"estimated_pages"`
	Action           ActionKind `json:"action"`
	RequiresCategory bool       `json:"requires_category"`
	RequiresState    bool       `json:"requires_state"`
}

// Presets returns the generation preset catalog
func Presets() []Preset {
	return []Preset{
		{
			ID:               "all-states",
			Name:             "All States",
			Description:      "Generate pages for every active state",
			EstimatedPages:   "~50 pages",
			Action:           ActionAllStates,
			RequiresCategory: true,
		},
		{
			ID:               "all-cities",
			Name:             "All Cities",
			Description:      "Generate pages for every active city",
			EstimatedPages:   "~30,000 pages",
			Action:           ActionAllCities,
			RequiresCategory: true,
		},
		{
			ID:               "state-cities",
			Name:             "Cities in State",
			Description:      "Generate pages for all cities in a specific state",
			EstimatedPages:   "500-2000 pages",
			Action:           ActionStateCities,
			RequiresCategory: true,
			RequiresState:    true,
		},
		{
			ID:               "top-cities",
			Name:             "Top 500 Cities",
			Description:      "Generate pages for the largest cities by population",
			EstimatedPages:   "500 pages",
			Action:           ActionTopCities,
			RequiresCategory: true,
		},
		{
			ID:               "major-metros",
			Name:             "Major Metro Areas",
			Description:      "Generate pages for major metropolitan areas",
			EstimatedPages:   "~100 pages",
			Action:           ActionMajorMetros,
			RequiresCategory: true,
		},
		{
			ID:             "category-matrix",
			Name:           "Category Matrix",
			Description:    "Generate all insurance types crossed with all states",
			EstimatedPages: "~500 pages",
			Action:         ActionCategoryMatrix,
		},
	}
}
