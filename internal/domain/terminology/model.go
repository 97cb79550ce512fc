package terminology

import (
	"time"

	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/platform/db"
	"github.com/ayuniq/ayuniq/internal/platform/fhir"
)

// Code system identity.
const (
	NamasteSystemURI = "https://ayush.gov.in/fhir/CodeSystem/namaste"
	NamasteName      = "NAMASTE"
	NamasteTitle     = "National AYUSH Morbidity & Standardized Terminologies Electronic"
	CodeSystemID     = "namaste"

	AppName    = "Ayuniq"
	AppVersion = "1.0.0"

	SourceNamaste     = "NAMASTE"
	SourceICD11       = "ICD11"
	namasteListSource = "NAMASTE CSV Database"
	icdListSource     = "WHO ICD-11 v2 API"
)

const (
	DefaultSearchLimit = 20
	minQueryLength     = 2
)

// NamasteHit is a NAMASTE term in a dual search response.
type NamasteHit struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Sanskrit          string         `json:"sanskrit"`
	SanskritDiacritic string         `json:"sanskritDiacritic"`
	Devanagari        string         `json:"devanagari"`
	English           string         `json:"english"`
	Display           string         `json:"display"`
	Definition        string         `json:"definition"`
	System            namaste.System `json:"system"`
	Category          string         `json:"category"`
	Confidence        int            `json:"confidence"`
	Source            string         `json:"source"`
}

// ICDHit is an ICD-11 entity in a dual search response.
type ICDHit struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Display    string `json:"display"`
	Definition string `json:"definition"`
	System     string `json:"system"`
	SystemName string `json:"systemName"`
	Module     string `json:"module"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source"`
	IsTM2      bool   `json:"isTM2"`
}

type NamasteResults struct {
	Results []NamasteHit `json:"results"`
	Total   int          `json:"total"`
	Source  string       `json:"source,omitempty"`
}

type ICDResults struct {
	Results []ICDHit `json:"results"`
	Total   int      `json:"total"`
	Source  string   `json:"source,omitempty"`
}

// DualSearch is the combined NAMASTE and ICD-11 search response.
type DualSearch struct {
	Namaste   NamasteResults `json:"namaste"`
	ICD11     ICDResults     `json:"icd11"`
	Query     string         `json:"query"`
	Timestamp time.Time      `json:"timestamp"`
}

type HealthServices struct {
	DataLoader string        `json:"dataLoader"`
	WhoIcdAPI  string        `json:"whoIcdApi,omitempty"`
	WhoAPI     string        `json:"whoApi,omitempty"`
	Server     string        `json:"server"`
	Database   *db.PoolStats `json:"database,omitempty"`
}

type HealthData struct {
	TotalTerms         int                    `json:"totalTerms"`
	CachedTranslations int                    `json:"cachedTranslations"`
	SystemBreakdown    map[namaste.System]int `json:"systemBreakdown"`
}

type Health struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	AppName   string         `json:"appName,omitempty"`
	Services  HealthServices `json:"services"`
	Data      *HealthData    `json:"data,omitempty"`
}

// CodeSystem is the NAMASTE CodeSystem summary.
type CodeSystem struct {
	ResourceType string              `json:"resourceType"`
	ID           string              `json:"id"`
	URL          string              `json:"url"`
	Name         string              `json:"name"`
	Title        string              `json:"title"`
	Status       string              `json:"status"`
	Content      string              `json:"content"`
	Count        int                 `json:"count"`
	Concept      []CodeSystemConcept `json:"concept"`
}

type CodeSystemConcept struct {
	Code        string                     `json:"code"`
	Display     string                     `json:"display"`
	Definition  string                     `json:"definition,omitempty"`
	Designation []fhir.ValueSetDesignation `json:"designation"`
}

func designations(t *namaste.Term) []fhir.ValueSetDesignation {
	out := make([]fhir.ValueSetDesignation, 0, len(t.Designations))
	for _, d := range t.Designations {
		out = append(out, fhir.ValueSetDesignation{
			Language: d.Language,
			Use:      &fhir.Coding{Code: d.Use},
			Value:    d.Value,
		})
	}
	return out
}
