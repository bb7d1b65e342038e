package mapper

import (
	"github.com/ternarybob/pagemill/internal/models"
)

// Derived slug companion field names
const (
	FieldCitySlug          = "city_slug"
	FieldStateSlug         = "state_slug"
	FieldInsuranceTypeSlug = "insurance_type_slug"
)

// ProjectRow applies a frozen column mapping to one raw row, producing a
// record keyed by semantic field name. Unmapped output fields fall back to
// defaults. Slug-shaped companion fields are derived for city, state and
// insurance_type when present without a pre-existing slug.
func ProjectRow(row models.Row, mapping models.ColumnMapping, defaults map[string]string) map[string]string {
	result := make(map[string]string, len(mapping)+len(defaults))
	for k, v := range defaults {
		result[k] = v
	}

	for field, column := range mapping {
		if value, ok := row[column]; ok {
			result[field] = value
		}
	}

	deriveSlug(result, FieldCity, FieldCitySlug)
	deriveSlug(result, FieldState, FieldStateSlug)
	deriveSlug(result, FieldInsuranceType, FieldInsuranceTypeSlug)

	return result
}

func deriveSlug(record map[string]string, field, slugField string) {
	if record[field] == "" || record[slugField] != "" {
		return
	}
	record[slugField] = Slugify(record[field])
}
