package fhir

import "time"

// ValueSet carries only an expansion; definitions are not served.
type ValueSet struct {
	ResourceType string             `json:"resourceType"`
	ID           string             `json:"id,omitempty"`
	URL          string             `json:"url,omitempty"`
	Name         string             `json:"name,omitempty"`
	Status       string             `json:"status"`
	Expansion    *ValueSetExpansion `json:"expansion,omitempty"`
}

type ValueSetExpansion struct {
	Identifier string             `json:"identifier"`
	Timestamp  time.Time          `json:"timestamp"`
	Total      int                `json:"total"`
	Offset     int                `json:"offset"`
	Parameter  []Parameter        `json:"parameter,omitempty"`
	Contains   []ValueSetContains `json:"contains"`
}

type ValueSetContains struct {
	System      string                `json:"system"`
	Code        string                `json:"code"`
	Display     string                `json:"display"`
	Designation []ValueSetDesignation `json:"designation,omitempty"`
}

type ValueSetDesignation struct {
	Language string  `json:"language,omitempty"`
	Use      *Coding `json:"use,omitempty"`
	Value    string  `json:"value"`
}
