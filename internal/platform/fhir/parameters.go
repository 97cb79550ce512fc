package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Parameters is the FHIR Parameters resource used for operation input and output.
type Parameters struct {
	ResourceType string      `json:"resourceType"`
	Parameter    []Parameter `json:"parameter"`
}

// Parameter is a single named value or a group of parts. At most one value
// field is set.
type Parameter struct {
	Name         string      `json:"name"`
	ValueString  *string     `json:"valueString,omitempty"`
	ValueCode    *string     `json:"valueCode,omitempty"`
	ValueURI     *string     `json:"valueUri,omitempty"`
	ValueBoolean *bool       `json:"valueBoolean,omitempty"`
	ValueDecimal *float64    `json:"valueDecimal,omitempty"`
	ValueInteger *int        `json:"valueInteger,omitempty"`
	ValueCoding  *Coding     `json:"valueCoding,omitempty"`
	Part         []Parameter `json:"part,omitempty"`
}

func NewParameters(params ...Parameter) *Parameters {
	if params == nil {
		params = []Parameter{}
	}
	return &Parameters{ResourceType: "Parameters", Parameter: params}
}

func (p *Parameters) Add(params ...Parameter) *Parameters {
	p.Parameter = append(p.Parameter, params...)
	return p
}

// Get returns the first parameter with the given name.
func (p *Parameters) Get(name string) (Parameter, bool) {
	for _, param := range p.Parameter {
		if param.Name == name {
			return param, true
		}
	}
	return Parameter{}, false
}

// All returns every parameter with the given name.
func (p *Parameters) All(name string) []Parameter {
	var out []Parameter
	for _, param := range p.Parameter {
		if param.Name == name {
			out = append(out, param)
		}
	}
	return out
}

// Text renders a primitive value as a string. Coding and part parameters
// yield "".
func (p Parameter) Text() string {
	switch {
	case p.ValueString != nil:
		return *p.ValueString
	case p.ValueCode != nil:
		return *p.ValueCode
	case p.ValueURI != nil:
		return *p.ValueURI
	case p.ValueBoolean != nil:
		return strconv.FormatBool(*p.ValueBoolean)
	case p.ValueDecimal != nil:
		return strconv.FormatFloat(*p.ValueDecimal, 'f', -1, 64)
	case p.ValueInteger != nil:
		return strconv.Itoa(*p.ValueInteger)
	}
	return ""
}

func StringParam(name, v string) Parameter { return Parameter{Name: name, ValueString: &v} }
func CodeParam(name, v string) Parameter { return Parameter{Name: name, ValueCode: &v} }
func URIParam(name, v string) Parameter { return Parameter{Name: name, ValueURI: &v} }
func BoolParam(name string, v bool) Parameter { return Parameter{Name: name, ValueBoolean: &v} }
func DecimalParam(name string, v float64) Parameter {
	return Parameter{Name: name, ValueDecimal: &v}
}
func CodingParam(name string, v Coding) Parameter { return Parameter{Name: name, ValueCoding: &v} }
func PartParam(name string, parts ...Parameter) Parameter {
	return Parameter{Name: name, Part: parts}
}

var errEmptyBody = errors.New("request body is empty")

// OperationArgs reads operation input from a request body. It accepts a FHIR
// Parameters resource or a flat JSON object of string values, and returns the
// top-level primitive arguments by name. A coding parameter contributes its
// code, and its system under "<name>.system" when the plain system is absent.
func OperationArgs(body []byte) (map[string]string, error) {
	if len(body) == 0 {
		return nil, errEmptyBody
	}

	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	args := make(map[string]string)
	if probe.ResourceType == "Parameters" {
		var params Parameters
		if err := json.Unmarshal(body, &params); err != nil {
			return nil, fmt.Errorf("invalid Parameters resource: %w", err)
		}
		for _, p := range params.Parameter {
			if _, seen := args[p.Name]; seen {
				continue
			}
			if p.ValueCoding != nil {
				args[p.Name] = p.ValueCoding.Code
				if p.ValueCoding.System != "" {
					args[p.Name+".system"] = p.ValueCoding.System
				}
				continue
			}
			if v := p.Text(); v != "" {
				args[p.Name] = v
			}
		}
		return args, nil
	}
	if probe.ResourceType != "" {
		return nil, fmt.Errorf("expected a Parameters resource, got %s", probe.ResourceType)
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	for k, v := range flat {
		switch val := v.(type) {
		case string:
			args[k] = val
		case float64:
			args[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			args[k] = strconv.FormatBool(val)
		}
	}
	return args, nil
}
