package generator

import "strings"

// seoTemplate holds the title/meta patterns for one geo level. Placeholders
// use {{name}} syntax and are substituted per target.
type seoTemplate struct {
	TitleTemplate string
	MetaTemplate  string
	DescTemplate  string
}

var stateSEO = seoTemplate{
	TitleTemplate: "Best {{insurance_type}} in {{state}}",
	MetaTemplate:  "{{insurance_type}} in {{state}} | Compare Rates & Save",
	DescTemplate:  "Compare the best {{insurance_type_lower}} options in {{state}}. Get free quotes, compare rates from top providers, and save up to 40% on your policy.",
}

var citySEO = seoTemplate{
	TitleTemplate: "{{insurance_type}} in {{city}}, {{state_code}}",
	MetaTemplate:  "{{insurance_type}} in {{city}}, {{state_code}} | Local Rates & Quotes",
	DescTemplate:  "Find affordable {{insurance_type_lower}} in {{city}}, {{state}}. Compare local rates, get free quotes, and save on coverage today.",
}

// renderTemplate substitutes every {{key}} placeholder with its value
func renderTemplate(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

// templateValues builds the substitution set for a target. A missing category
// falls back to the generic "Insurance" label, matching preset behavior.
func templateValues(categoryName, stateName, stateCode, cityName string) map[string]string {
	if categoryName == "" {
		categoryName = "Insurance"
	}
	return map[string]string{
		"insurance_type":       categoryName,
		"insurance_type_lower": strings.ToLower(categoryName),
		"state":                stateName,
		"state_code":           stateCode,
		"city":                 cityName,
	}
}
