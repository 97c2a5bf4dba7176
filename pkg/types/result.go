// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Confidence is a coarse three-tier trust signal attached to a validated
// field value. It is a closed enumeration, not a probability: High marks
// values that passed every check, Medium soft shape violations (length,
// pattern) that often reflect formatting noise, Low hard semantic
// violations (wrong type, out of range, disallowed enum value, missing
// required data).
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// FieldExtraction is the {value, confidence, reasoning} triple returned by
// the AI extraction service for one field, before independent validation.
type FieldExtraction struct {
	// Value is the raw extracted value: string, number, boolean, or nil.
	Value any `json:"value" yaml:"value"`

	// Confidence is the AI-supplied confidence tier.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Reasoning is the AI's explanation for its confidence assessment.
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// ValidationResult is the verdict from validating one field value against
// its template definition. Produced fresh per validation call.
type ValidationResult struct {
	// IsValid reports whether the value passed every applicable check.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	// Confidence is the independently derived trust tier.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Reasoning accumulates human-readable check outcomes in order. It is
	// part of the returned contract, not log output.
	Reasoning []string `json:"reasoning" yaml:"reasoning"`

	// SuggestedCorrection proposes a likely fix when a constraint is
	// violated: the violated bound for numbers, the first allowed option
	// for enums. Nil when no natural correction exists.
	SuggestedCorrection any `json:"suggested_correction,omitempty" yaml:"suggested_correction,omitempty"`
}

// EnhancedField is one field's value together with its validation verdict,
// as produced by the confidence engine for every extracted or
// template-required field.
type EnhancedField struct {
	// Value is the extracted value, or nil for a synthesized entry
	// covering a missing required field.
	Value any `json:"value" yaml:"value"`

	// Confidence is the validated confidence tier.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Reasoning lists the validation outcomes for this field in order.
	Reasoning []string `json:"reasoning" yaml:"reasoning"`

	// IsValid reports whether the value passed validation.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	// SuggestedCorrection is carried over from validation when present.
	SuggestedCorrection any `json:"suggested_correction,omitempty" yaml:"suggested_correction,omitempty"`
}
