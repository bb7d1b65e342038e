package mapper

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/pagemill/internal/models"
)

// Semantic field names in the closed mapping vocabulary
const (
	FieldCity            = "city"
	FieldState           = "state"
	FieldStateCode       = "state_code"
	FieldCountry         = "country"
	FieldZipcode         = "zipcode"
	FieldPageTitle       = "page_title"
	FieldPageSubtitle    = "page_subtitle"
	FieldMetaDescription = "meta_description"
	FieldContent         = "content"
	FieldSlug            = "slug"
	FieldPopulation      = "population"
	FieldInsuranceType   = "insurance_type"
	FieldAvgRate         = "avg_rate"
)

// SuggestionThreshold is the minimum fuzzy similarity for a header to be
// reported as a low-confidence suggestion. Suggestions are never auto-applied.
const SuggestionThreshold = 0.7

// candidateThreshold is the minimum similarity for a field to compete as the
// best fuzzy match for a header.
const candidateThreshold = 0.6

// fieldPatterns binds one semantic field to its exact-match header patterns.
// Priority orders pass 1: location fields beat content fields, which beat URL
// fields, statistics and domain-specific fields.
type fieldPatterns struct {
	field    string
	patterns []string
	priority int
	compiled []*regexp.Regexp
}

var columnPatterns = compilePatterns([]fieldPatterns{
	// Location fields - highest priority
	{field: FieldCity, priority: 100, patterns: []string{
		`^city$`, `^city[_\s]?name$`, `^town$`, `^municipality$`, `^location$`,
	}},
	{field: FieldState, priority: 100, patterns: []string{
		`^state$`, `^state[_\s]?name$`, `^province$`, `^region$`,
	}},
	{field: FieldStateCode, priority: 95, patterns: []string{
		`^state[_\s]?code$`, `^st$`, `^state[_\s]?abbr(ev)?$`, `^province[_\s]?code$`,
	}},
	{field: FieldCountry, priority: 90, patterns: []string{
		`^country$`, `^country[_\s]?name$`, `^nation$`,
	}},
	{field: FieldZipcode, priority: 85, patterns: []string{
		`^zip$`, `^zipcode$`, `^zip[_\s]?code$`, `^postal$`, `^postal[_\s]?code$`,
	}},

	// Content fields
	{field: FieldPageTitle, priority: 80, patterns: []string{
		`^title$`, `^page[_\s]?title$`, `^h1$`, `^heading$`, `^name$`,
	}},
	{field: FieldPageSubtitle, priority: 75, patterns: []string{
		`^subtitle$`, `^subheading$`, `^tagline$`, `^h2$`,
	}},
	{field: FieldMetaDescription, priority: 70, patterns: []string{
		`^description$`, `^meta[_\s]?desc(ription)?$`, `^seo[_\s]?desc(ription)?$`, `^excerpt$`, `^summary$`,
	}},
	{field: FieldContent, priority: 65, patterns: []string{
		`^content$`, `^body$`, `^text$`, `^main[_\s]?content$`, `^page[_\s]?content$`,
	}},

	// URL fields
	{field: FieldSlug, priority: 60, patterns: []string{
		`^slug$`, `^url$`, `^path$`, `^permalink$`, `^url[_\s]?path$`,
	}},

	// Statistics
	{field: FieldPopulation, priority: 50, patterns: []string{
		`^pop(ulation)?$`, `^city[_\s]?pop(ulation)?$`,
	}},

	// Insurance specific
	{field: FieldInsuranceType, priority: 45, patterns: []string{
		`^insurance[_\s]?type$`, `^type$`, `^category$`, `^niche$`,
	}},
	{field: FieldAvgRate, priority: 40, patterns: []string{
		`^avg[_\s]?rate$`, `^average[_\s]?rate$`, `^rate$`, `^premium$`, `^avg[_\s]?premium$`,
	}},
})

func compilePatterns(table []fieldPatterns) []fieldPatterns {
	for i := range table {
		table[i].compiled = make([]*regexp.Regexp, len(table[i].patterns))
		for j, p := range table[i].patterns {
			table[i].compiled[j] = regexp.MustCompile(`(?i)` + p)
		}
	}
	return table
}

// VocabularySize returns the number of semantic fields in the mapping
// vocabulary.
func VocabularySize() int {
	return len(columnPatterns)
}

// AutoMapColumns infers which raw headers correspond to which semantic
// fields. Pass 1 binds exact (case-insensitive) pattern matches in priority
// order; a header is consumed by at most one field and a field receives at
// most one header. Pass 2 scores leftover headers against still-unassigned
// fields with a character-set similarity and reports strong matches as
// suggestions, the rest as unmapped.
//
// The result is deterministic for a given header list. Ties are broken by
// pattern priority order; there is no guarantee of a globally optimal
// assignment (approximate heuristic, documented limitation).
func AutoMapColumns(headers []string) models.MappingResult {
	mapping := models.ColumnMapping{}
	unmapped := []string{}
	suggestions := []models.MappingSuggestion{}
	usedHeaders := make(map[string]bool)

	sorted := make([]fieldPatterns, len(columnPatterns))
	copy(sorted, columnPatterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority > sorted[j].priority
	})

	// First pass: exact matches
	for _, fp := range sorted {
		for _, header := range headers {
			if usedHeaders[header] {
				continue
			}

			normalized := strings.TrimSpace(header)
			for _, pattern := range fp.compiled {
				if pattern.MatchString(normalized) {
					mapping[fp.field] = header
					usedHeaders[header] = true
					break
				}
			}
			if _, bound := mapping[fp.field]; bound {
				break
			}
		}
	}

	// Second pass: fuzzy matching for leftover headers
	for _, header := range headers {
		if usedHeaders[header] {
			continue
		}

		normalizedHeader := normalizeForSimilarity(header)
		bestField := ""
		bestScore := 0.0

		for _, fp := range sorted {
			if _, bound := mapping[fp.field]; bound {
				continue
			}

			for _, pattern := range fp.patterns {
				patternText := normalizeForSimilarity(pattern)
				similarity := charSetSimilarity(normalizedHeader, patternText)

				if similarity > candidateThreshold && similarity > bestScore {
					bestField = fp.field
					bestScore = similarity
				}
			}
		}

		if bestField != "" && bestScore > SuggestionThreshold {
			suggestions = append(suggestions, models.MappingSuggestion{
				Column:         header,
				SuggestedField: bestField,
				Confidence:     bestScore,
			})
		} else {
			unmapped = append(unmapped, header)
		}
	}

	confidence := 0.0
	if len(headers) > 0 {
		denominator := len(columnPatterns)
		if len(headers) < denominator {
			denominator = len(headers)
		}
		confidence = float64(len(mapping)) / float64(denominator)
		if confidence > 1 {
			confidence = 1
		}
	}

	return models.MappingResult{
		Mapping:     mapping,
		Confidence:  confidence,
		Unmapped:    unmapped,
		Suggestions: suggestions,
	}
}

func normalizeForSimilarity(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// charSetSimilarity is the intersection-over-union of the character sets of
// two normalized strings (Jaccard over characters).
func charSetSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}

	intersection := 0
	union := len(setB)
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		} else {
			union++
		}
	}

	return float64(intersection) / float64(union)
}
