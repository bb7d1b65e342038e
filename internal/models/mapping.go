package models

// ColumnMapping maps a semantic field name (closed vocabulary, e.g. "city",
// "state", "slug", "page_title") to the literal source column header it was
// bound to. Produced once per job at creation time and frozen thereafter.
type ColumnMapping map[string]string

// MappingSuggestion is a low-confidence fuzzy match that is reported but
// never auto-applied.
type MappingSuggestion struct {
	Column         string  `json:"column"`
	SuggestedField string  `json:"suggested_field"`
	Confidence     float64 `json:"confidence"`
}

// MappingResult is the outcome of auto-mapping a header list
type MappingResult struct {
	Mapping     ColumnMapping       `json:"mapping"`
	Confidence  float64             `json:"confidence"`
	Unmapped    []string            `json:"unmapped"`
	Suggestions []MappingSuggestion `json:"suggestions"`
}
