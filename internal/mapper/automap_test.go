package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMapColumns_ExactMatches(t *testing.T) {
	result := AutoMapColumns([]string{"city", "State", "ZIP"})

	require.Len(t, result.Mapping, 3)
	assert.Equal(t, "city", result.Mapping[FieldCity])
	assert.Equal(t, "State", result.Mapping[FieldState])
	assert.Equal(t, "ZIP", result.Mapping[FieldZipcode])
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.Unmapped)
	assert.Empty(t, result.Suggestions)
}

func TestAutoMapColumns_Deterministic(t *testing.T) {
	headers := []string{"City Name", "state_code", "Population", "slug", "premium", "whatever"}

	first := AutoMapColumns(headers)
	for i := 0; i < 10; i++ {
		again := AutoMapColumns(headers)
		assert.Equal(t, first.Mapping, again.Mapping)
		assert.Equal(t, first.Confidence, again.Confidence)
		assert.Equal(t, first.Unmapped, again.Unmapped)
		assert.Equal(t, first.Suggestions, again.Suggestions)
	}
}

func TestAutoMapColumns_HeaderConsumedOnce(t *testing.T) {
	// "name" matches page_title's ^name$ pattern but city has higher
	// priority patterns; "location" is consumed by city first, leaving
	// "name" for page_title.
	result := AutoMapColumns([]string{"location", "name"})

	assert.Equal(t, "location", result.Mapping[FieldCity])
	assert.Equal(t, "name", result.Mapping[FieldPageTitle])
}

func TestAutoMapColumns_PriorityOrder(t *testing.T) {
	// "type" matches insurance_type; "title" matches page_title. Both bind
	// despite sharing no patterns with location fields.
	result := AutoMapColumns([]string{"type", "title"})

	assert.Equal(t, "title", result.Mapping[FieldPageTitle])
	assert.Equal(t, "type", result.Mapping[FieldInsuranceType])
}

func TestAutoMapColumns_FuzzyNeverAutoApplied(t *testing.T) {
	result := AutoMapColumns([]string{"hometown"})

	// "hometown" has no exact pattern; it must end up either as a scored
	// suggestion or unmapped, never silently bound.
	assert.Empty(t, result.Mapping)
	if len(result.Suggestions) > 0 {
		for _, s := range result.Suggestions {
			assert.Equal(t, "hometown", s.Column)
			assert.Greater(t, s.Confidence, SuggestionThreshold)
		}
	} else {
		assert.Contains(t, result.Unmapped, "hometown")
	}
}

func TestAutoMapColumns_UnknownHeaderReportedUnmapped(t *testing.T) {
	result := AutoMapColumns([]string{"city", "qqq"})

	assert.Equal(t, "city", result.Mapping[FieldCity])
	assert.Contains(t, result.Unmapped, "qqq")
}

func TestAutoMapColumns_ConfidenceScaling(t *testing.T) {
	// Two of four headers mapped: confidence = 2 / min(vocab, 4) = 0.5
	result := AutoMapColumns([]string{"city", "state", "xyzzy", "qwerty"})

	require.Len(t, result.Mapping, 2)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
}

func TestAutoMapColumns_EmptyHeaders(t *testing.T) {
	result := AutoMapColumns(nil)

	assert.Empty(t, result.Mapping)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestCharSetSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, charSetSimilarity("city", "city"))
	assert.Equal(t, 0.0, charSetSimilarity("", "city"))
	// Disjoint character sets
	assert.Equal(t, 0.0, charSetSimilarity("abc", "xyz"))
	// Identical character sets in different order
	assert.Equal(t, 1.0, charSetSimilarity("abc", "cba"))
}
