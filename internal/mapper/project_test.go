package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/pagemill/internal/models"
)

func TestProjectRow_CopiesMappedFields(t *testing.T) {
	row := models.Row{"City Name": "Austin", "ST": "TX"}
	mapping := models.ColumnMapping{
		FieldCity:      "City Name",
		FieldStateCode: "ST",
	}

	record := ProjectRow(row, mapping, nil)

	assert.Equal(t, "Austin", record[FieldCity])
	assert.Equal(t, "TX", record[FieldStateCode])
}

func TestProjectRow_DefaultsFillUnmappedFields(t *testing.T) {
	row := models.Row{"city": "Austin"}
	mapping := models.ColumnMapping{FieldCity: "city"}
	defaults := map[string]string{
		FieldInsuranceType: "Auto Insurance",
		FieldCity:          "should be overridden",
	}

	record := ProjectRow(row, mapping, defaults)

	assert.Equal(t, "Austin", record[FieldCity])
	assert.Equal(t, "Auto Insurance", record[FieldInsuranceType])
}

func TestProjectRow_DerivesSlugs(t *testing.T) {
	row := models.Row{
		"city":  "New York City",
		"state": "New York",
		"type":  "Home Insurance",
	}
	mapping := models.ColumnMapping{
		FieldCity:          "city",
		FieldState:         "state",
		FieldInsuranceType: "type",
	}

	record := ProjectRow(row, mapping, nil)

	assert.Equal(t, "new-york-city", record[FieldCitySlug])
	assert.Equal(t, "new-york", record[FieldStateSlug])
	assert.Equal(t, "home-insurance", record[FieldInsuranceTypeSlug])
}

func TestProjectRow_PreExistingSlugNotOverwritten(t *testing.T) {
	row := models.Row{"city": "St. Louis"}
	mapping := models.ColumnMapping{FieldCity: "city"}
	defaults := map[string]string{FieldCitySlug: "saint-louis"}

	record := ProjectRow(row, mapping, defaults)

	assert.Equal(t, "saint-louis", record[FieldCitySlug])
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Austin":            "austin",
		"  New York City  ": "new-york-city",
		"St. Louis":         "st-louis",
		"Winston-Salem":     "winston-salem",
		"---":               "",
		"":                  "",
		"A  B   C":          "a-b-c",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, Slugify(input), "input %q", input)
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{"Austin", "New   York!!", "coeur d'alene", "O'Fallon", "123 Main"}
	for _, input := range inputs {
		once := Slugify(input)
		assert.Equal(t, once, Slugify(once), "input %q", input)
	}
}
