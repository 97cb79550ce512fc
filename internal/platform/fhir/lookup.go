package fhir

// LookupResult is the outcome of CodeSystem/$lookup.
type LookupResult struct {
	Name        string
	Version     string
	Display     string
	System      string
	Definition  string
	Designation []LookupDesignation
	Property    []LookupProperty
}

type LookupDesignation struct {
	Language string
	Use      *Coding
	Value    string
}

// LookupProperty carries a string-valued concept property.
type LookupProperty struct {
	Code  string
	Value string
}

// Parameters renders the lookup result as a FHIR Parameters resource.
func (r *LookupResult) Parameters() *Parameters {
	out := NewParameters(
		StringParam("name", r.Name),
		StringParam("version", r.Version),
		StringParam("display", r.Display),
	)
	if r.System != "" {
		out.Add(URIParam("system", r.System))
	}
	out.Add(StringParam("definition", r.Definition))

	for _, d := range r.Designation {
		var parts []Parameter
		if d.Language != "" {
			parts = append(parts, CodeParam("language", d.Language))
		}
		if d.Use != nil {
			parts = append(parts, CodingParam("use", *d.Use))
		}
		parts = append(parts, StringParam("value", d.Value))
		out.Add(PartParam("designation", parts...))
	}

	for _, p := range r.Property {
		if p.Value == "" {
			continue
		}
		out.Add(PartParam("property",
			CodeParam("code", p.Code),
			StringParam("value", p.Value),
		))
	}
	return out
}
