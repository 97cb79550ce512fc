package namaste

import "strings"

type field int

const (
	fieldCode field = iota
	fieldSanskrit
	fieldDiacritic
	fieldDevanagari
	fieldEnglish
	fieldDefinition
	fieldSystem
	fieldCategory
)

// fieldAliases lists, per logical field, the column names seen across NAMASTE
// exports in priority order.
var fieldAliases = map[field][]string{
	fieldCode: {
		"NAMC_CODE", "Code", "code", "ID", "id", "Term_Code", "NAMC_ID",
		"Sr No.", "Serial", "Index",
	},
	fieldSanskrit: {
		"NAMC_term", "Sanskrit", "sanskrit", "Term", "Sanskrit_Term",
		"NAMC_term_transliteration", "Sanskrit_Name",
	},
	fieldDiacritic: {
		"NAMC_term_diacritical", "Diacritical", "Sanskrit_Diacritical",
		"NAMC_term_diacritical_marks", "Sanskrit_Diacritic",
	},
	fieldDevanagari: {
		"NAMC_term_DEVANAGARI", "Devanagari", "Hindi", "Sanskrit_Devanagari",
		"NAMC_term_devanagari", "Sanskrit_Hindi", "Hindi_Name",
	},
	fieldEnglish: {
		"English", "english", "English_Name", "Translation",
		"English_Translation", "Meaning", "English_Meaning",
	},
	fieldDefinition: {
		"Short_definition", "Definition", "description", "Description",
		"Long_definition", "Meaning", "Details", "Short_Definition",
	},
	fieldSystem: {
		"System", "system", "Medicine_System", "Medical_System",
		"Ontology_branches", "Branch", "Type",
	},
	fieldCategory: {
		"Category", "category", "Classification", "Type",
		"Ontology_Category", "Medical_Category", "Domain",
	},
}

// firstPresent returns the first non-blank trimmed value among keys.
func firstPresent(row Row, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

func (r Row) get(f field) string {
	return firstPresent(r, fieldAliases[f])
}
