package namaste

import "strings"

type categoryRule struct {
	keywords []string
	category string
}

// categoryRules map keyword hits in category and definition text to a
// normalised category. Order matters.
var categoryRules = []categoryRule{
	{[]string{"fever", "temperature", "pyrexia"}, "Fever"},
	{[]string{"joint", "arthritis", "pain"}, "Joint Disorder"},
	{[]string{"respiratory", "breathing", "cough", "asthma"}, "Respiratory"},
	{[]string{"digestive", "stomach", "gastro", "intestinal"}, "Digestive"},
	{[]string{"skin", "dermatological", "rash"}, "Dermatological"},
	{[]string{"cardiovascular", "heart", "cardiac"}, "Cardiovascular"},
	{[]string{"neurological", "nervous", "brain"}, "Neurological"},
	{[]string{"mental", "psychiatric", "psychological"}, "Mental Health"},
	{[]string{"reproductive", "gynecological", "obstetric"}, "Reproductive"},
	{[]string{"urinary", "kidney", "renal"}, "Urogenital"},
}

// derivedRules guess a category from the definition and transliterated name
// when the source has no category column.
var derivedRules = []categoryRule{
	{[]string{"fever", "jvara"}, "Fever"},
	{[]string{"joint", "amavata"}, "Joint Disorder"},
	{[]string{"cough", "kasa"}, "Respiratory"},
	{[]string{"breathing", "svasa"}, "Respiratory"},
	{[]string{"digestive", "agni"}, "Digestive"},
}

func matchRule(rules []categoryRule, text string) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category, true
			}
		}
	}
	return "", false
}

func deriveCategory(definition, sanskrit string) string {
	if c, ok := matchRule(derivedRules, strings.ToLower(definition+" "+sanskrit)); ok {
		return c
	}
	return CategoryGeneral
}

// cleanCategory normalises a raw category using the keyword table over the
// category and definition text, falling back to the raw value.
func cleanCategory(category, definition string) string {
	if category == "" && definition == "" {
		return CategoryGeneral
	}
	if c, ok := matchRule(categoryRules, strings.ToLower(category+" "+definition)); ok {
		return c
	}
	if category == "" {
		return CategoryGeneral
	}
	return category
}
