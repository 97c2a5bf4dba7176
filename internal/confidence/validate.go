// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confidence re-derives per-field confidence verdicts for extracted
// metadata by validating values against a template, and aggregates them into
// a record-level confidence. All operations are pure and safe for concurrent
// callers; malformed input degrades to a low-confidence, reasoned result
// rather than an error.
package confidence

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// dateLayouts is the ordered list of accepted date formats. First match
// wins: ambiguous dates like 01/02/2023 resolve as MM/DD/YYYY before
// DD/MM/YYYY is tried. The ordering is a deliberate tie-break.
var dateLayouts = []string{
	"2006-01-02",          // 2023-01-01
	"01/02/2006",          // MM/DD/YYYY
	"02/01/2006",          // DD/MM/YYYY (international)
	"2006-01-02T15:04:05", // ISO format
	"2006-01-02 15:04:05", // with space instead of T
}

// ValidateFieldType checks a single value against the expected field type
// and returns whether it is valid together with a human-readable reason.
// Type names are matched case-insensitively. A nil value is invalid for
// every type. Enum values always pass here; set membership needs the
// template and is checked in ValidateAgainstTemplate.
func ValidateFieldType(value any, fieldType types.FieldType) (bool, string) {
	if value == nil {
		return false, "Value is required"
	}

	switch types.FieldType(strings.ToLower(string(fieldType))) {
	case types.FieldString:
		if _, ok := value.(string); !ok {
			return false, fmt.Sprintf("Expected string, got %s", typeName(value))
		}
		return true, "Valid string"

	case types.FieldNumber:
		if _, err := toFloat(value); err != nil {
			return false, fmt.Sprintf("Validation failed: %v", err)
		}
		return true, "Valid number"

	case types.FieldDate:
		s, ok := value.(string)
		if !ok {
			return false, fmt.Sprintf("Expected date string, got %s", typeName(value))
		}
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true, fmt.Sprintf("Valid date (format: %s)", layout)
			}
		}
		return false, "Date format not recognized"

	case types.FieldBoolean:
		if _, ok := value.(bool); ok {
			return true, "Valid boolean"
		}
		if s, ok := value.(string); ok {
			switch strings.ToLower(s) {
			case "true", "false", "yes", "no", "1", "0":
				return true, "Valid boolean string"
			}
		}
		return false, fmt.Sprintf("Expected boolean, got %s", typeName(value))

	case types.FieldEnum:
		return true, "Enum type needs template validation"
	}

	return false, fmt.Sprintf("Unknown field type: %s", fieldType)
}

// ValidateAgainstTemplate validates a field value against its definition in
// the template and returns a full verdict: validity, confidence tier,
// ordered reasoning, and a suggested correction where a natural one exists.
// Each check short-circuits; validation failures are data, never errors.
func ValidateAgainstTemplate(fieldName string, value any, tmpl *types.Template) types.ValidationResult {
	result := types.ValidationResult{
		Confidence: types.ConfidenceLow,
	}

	var def types.FieldDefinition
	var ok bool
	if tmpl != nil {
		def, ok = tmpl.Fields[fieldName]
	}
	if !ok {
		result.Reasoning = append(result.Reasoning, fmt.Sprintf("Field %q not found in template", fieldName))
		return result
	}

	fieldType := def.Type
	if fieldType == "" {
		fieldType = types.FieldString
	}

	if def.Required && isEmpty(value) {
		result.Reasoning = append(result.Reasoning, "Required field is missing or empty")
		return result
	}

	// Empty optional fields are never penalized.
	if isEmpty(value) {
		result.IsValid = true
		result.Confidence = types.ConfidenceHigh
		result.Reasoning = append(result.Reasoning, "Optional field is empty")
		return result
	}

	valid, reason := ValidateFieldType(value, fieldType)
	result.Reasoning = append(result.Reasoning, "Type validation: "+reason)
	if !valid {
		return result
	}

	switch types.FieldType(strings.ToLower(string(fieldType))) {
	case types.FieldEnum:
		if r, done := checkEnum(value, def, result); done {
			return r
		}
	case types.FieldNumber:
		if r, done := checkNumberBounds(value, def, result); done {
			return r
		}
	case types.FieldString:
		if r, done := checkStringConstraints(value, def, result); done {
			return r
		}
	}

	result.IsValid = true
	result.Confidence = types.ConfidenceHigh
	return result
}

// checkEnum verifies set membership by string comparison. Out-of-set values
// get the first allowed option as the suggested correction.
func checkEnum(value any, def types.FieldDefinition, result types.ValidationResult) (types.ValidationResult, bool) {
	str := stringify(value)
	for _, opt := range def.Options {
		if str == opt {
			return result, false
		}
	}

	result.Reasoning = append(result.Reasoning,
		fmt.Sprintf("Value %q not in allowed values: %s", str, strings.Join(def.Options, ", ")))
	if len(def.Options) > 0 {
		result.SuggestedCorrection = def.Options[0]
	}
	result.Confidence = types.ConfidenceLow
	return result, true
}

// checkNumberBounds verifies declared min/max. A violation suggests the
// violated bound as the correction.
func checkNumberBounds(value any, def types.FieldDefinition, result types.ValidationResult) (types.ValidationResult, bool) {
	num, err := toFloat(value)
	if err != nil {
		// Type validation already passed, so this cannot normally happen.
		result.Reasoning = append(result.Reasoning, fmt.Sprintf("Validation failed: %v", err))
		result.Confidence = types.ConfidenceLow
		return result, true
	}

	if def.Min != nil && num < *def.Min {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("Value %v is below minimum %v", num, *def.Min))
		result.SuggestedCorrection = *def.Min
		result.Confidence = types.ConfidenceLow
		return result, true
	}
	if def.Max != nil && num > *def.Max {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("Value %v is above maximum %v", num, *def.Max))
		result.SuggestedCorrection = *def.Max
		result.Confidence = types.ConfidenceLow
		return result, true
	}
	return result, false
}

// checkStringConstraints verifies declared length bounds and start-anchored
// pattern. Violations are Medium confidence: softer shape problems that
// often reflect formatting noise rather than wrong content.
func checkStringConstraints(value any, def types.FieldDefinition, result types.ValidationResult) (types.ValidationResult, bool) {
	str := stringify(value)
	length := utf8.RuneCountInString(str)

	if def.MinLength != nil && length < *def.MinLength {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("String is too short (min %d characters)", *def.MinLength))
		result.Confidence = types.ConfidenceMedium
		return result, true
	}
	if def.MaxLength != nil && length > *def.MaxLength {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("String is too long (max %d characters)", *def.MaxLength))
		result.Confidence = types.ConfidenceMedium
		return result, true
	}
	if def.Pattern != "" {
		re, err := regexp.Compile(anchorStart(def.Pattern))
		if err != nil {
			result.Reasoning = append(result.Reasoning,
				fmt.Sprintf("Pattern could not be compiled: %v", err))
			result.Confidence = types.ConfidenceMedium
			return result, true
		}
		if !re.MatchString(str) {
			result.Reasoning = append(result.Reasoning,
				fmt.Sprintf("String does not match expected pattern: %s", def.Pattern))
			result.Confidence = types.ConfidenceMedium
			return result, true
		}
	}
	return result, false
}

// anchorStart forces the pattern to match from the beginning of the string.
func anchorStart(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^(?:" + pattern + ")"
}

// isEmpty reports whether a value is nil or the empty string.
func isEmpty(value any) bool {
	return value == nil || value == ""
}

// toFloat converts numeric kinds and numeric strings to float64.
func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("cannot convert %s to number", typeName(value))
}

// stringify renders a value the way it is compared and measured: strings
// pass through, everything else through default formatting.
func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// typeName returns a short runtime type name for reasoning messages.
func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}
