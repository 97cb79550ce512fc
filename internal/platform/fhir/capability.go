package fhir

import (
	"sync"
	"time"
)

// CapabilityConfig holds top-level server metadata for the CapabilityStatement.
type CapabilityConfig struct {
	ID            string
	ServerName    string
	ServerVersion string
	Publisher     string
	Description   string
	BaseURL       string
}

// OperationCapability describes an operation (resource-level or system-level).
type OperationCapability struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type Interaction struct {
	Code string `json:"code"`
}

type CapabilityResource struct {
	Type        string                `json:"type"`
	Interaction []Interaction         `json:"interaction"`
	Operation   []OperationCapability `json:"operation,omitempty"`
}

type CapabilitySecurity struct {
	CORS        bool   `json:"cors"`
	Description string `json:"description,omitempty"`
}

type CapabilityRest struct {
	Mode          string               `json:"mode"`
	Documentation string               `json:"documentation,omitempty"`
	Security      *CapabilitySecurity  `json:"security,omitempty"`
	Resource      []CapabilityResource `json:"resource"`
}

type Software struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type Implementation struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type CapabilityStatement struct {
	ResourceType   string           `json:"resourceType"`
	ID             string           `json:"id,omitempty"`
	Meta           *Meta            `json:"meta,omitempty"`
	Version        string           `json:"version,omitempty"`
	Name           string           `json:"name"`
	Status         string           `json:"status"`
	Experimental   bool             `json:"experimental"`
	Date           string           `json:"date"`
	Publisher      string           `json:"publisher,omitempty"`
	Description    string           `json:"description,omitempty"`
	Kind           string           `json:"kind"`
	Software       Software         `json:"software"`
	Implementation *Implementation  `json:"implementation,omitempty"`
	FHIRVersion    string           `json:"fhirVersion"`
	Format         []string         `json:"format"`
	Rest           []CapabilityRest `json:"rest"`
}

// CapabilityBuilder accumulates resource capabilities and renders the
// CapabilityStatement served at /metadata.
type CapabilityBuilder struct {
	mu        sync.RWMutex
	config    CapabilityConfig
	resources []CapabilityResource
	now       func() time.Time
}

func NewCapabilityBuilder(cfg CapabilityConfig) *CapabilityBuilder {
	return &CapabilityBuilder{config: cfg, now: time.Now}
}

// AddResource registers a resource type. A repeated type replaces the earlier entry.
func (b *CapabilityBuilder) AddResource(resourceType string, interactions []string, ops ...OperationCapability) {
	res := CapabilityResource{Type: resourceType, Interaction: make([]Interaction, 0, len(interactions)), Operation: ops}
	for _, code := range interactions {
		res.Interaction = append(res.Interaction, Interaction{Code: code})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.resources {
		if b.resources[i].Type == resourceType {
			b.resources[i] = res
			return
		}
	}
	b.resources = append(b.resources, res)
}

func (b *CapabilityBuilder) Build() *CapabilityStatement {
	b.mu.RLock()
	resources := make([]CapabilityResource, len(b.resources))
	copy(resources, b.resources)
	b.mu.RUnlock()

	now := b.now().UTC()
	name := b.config.ServerName
	if name == "" {
		name = "Ayuniq"
	}

	cs := &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		ID:           b.config.ID,
		Meta:         &Meta{VersionID: "1", LastUpdated: &now},
		Version:      b.config.ServerVersion,
		Name:         name,
		Status:       "active",
		Date:         now.Format(time.RFC3339),
		Publisher:    b.config.Publisher,
		Description:  b.config.Description,
		Kind:         "instance",
		Software:     Software{Name: name, Version: b.config.ServerVersion},
		FHIRVersion:  Version,
		Format:       []string{"application/fhir+json", "application/json"},
		Rest: []CapabilityRest{{
			Mode:          "server",
			Documentation: b.config.Description,
			Security:      &CapabilitySecurity{CORS: true},
			Resource:      resources,
		}},
	}
	if b.config.BaseURL != "" {
		cs.Implementation = &Implementation{Description: b.config.Description, URL: b.config.BaseURL}
	}
	return cs
}
