package fhir

import (
	"encoding/json"
	"time"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// NewSearchBundle creates a searchset Bundle. fullURL derives each entry's
// fullUrl and may be nil.
func NewSearchBundle(resources []interface{}, selfURL string, fullURL func(i int) string) (*Bundle, error) {
	now := time.Now().UTC()
	total := len(resources)
	entries := make([]BundleEntry, 0, total)
	for i, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		entry := BundleEntry{
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		}
		if fullURL != nil {
			entry.FullURL = fullURL(i)
		}
		entries = append(entries, entry)
	}

	b := &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
	if selfURL != "" {
		b.Link = []BundleLink{{Relation: "self", URL: selfURL}}
	}
	return b, nil
}
