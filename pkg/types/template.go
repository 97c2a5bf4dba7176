// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model: metadata templates, field
// definitions, extraction results, and stage configuration.
package types

// FieldType categorizes a metadata field in a template.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
	FieldEnum    FieldType = "enum"
)

// FieldDefinition describes the expected shape of one metadata field:
// its type, whether it is required, and per-type constraints.
type FieldDefinition struct {
	// Type is the field type: string, number, date, boolean, or enum.
	Type FieldType `json:"type" yaml:"type"`

	// DisplayName is the human-readable field label shown to users.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// Description guides the extraction model toward the intended value.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Required marks the field as mandatory. Missing or empty required
	// fields are reported as Low-confidence, invalid results.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Options is the ordered list of allowed values. Enum fields only;
	// the first option doubles as the suggested correction for
	// out-of-set values.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Min is the inclusive lower bound. Number fields only.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the inclusive upper bound. Number fields only.
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// MinLength is the minimum length in characters. String fields only.
	MinLength *int `json:"min_length,omitempty" yaml:"min_length,omitempty"`

	// MaxLength is the maximum length in characters. String fields only.
	MaxLength *int `json:"max_length,omitempty" yaml:"max_length,omitempty"`

	// Pattern is a regular expression the start of the string must match.
	// String fields only.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Template is a caller-supplied metadata schema: a named mapping from field
// name to FieldDefinition. Field names are unique by construction.
type Template struct {
	// Key identifies the template in the schema store (e.g. "invoice").
	Key string `json:"key" yaml:"key"`

	// DisplayName is the human-readable template name.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// Fields maps field name to its definition.
	Fields map[string]FieldDefinition `json:"fields" yaml:"fields"`
}
