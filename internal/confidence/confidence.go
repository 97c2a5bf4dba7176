// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package confidence

import (
	"strings"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// internalPrefix marks metadata-about-metadata keys in extracted data.
// Fields with this prefix are never content fields and are skipped.
const internalPrefix = "_"

// OverallKey is the key under which FormatResults reports the record-level
// confidence tier.
const OverallKey = "_overall_confidence"

// Enhance validates every extracted field against the template and returns
// one EnhancedField per field. Keys starting with an underscore are skipped.
// Required template fields absent from the extracted data get a synthesized
// nil-valued, Low-confidence entry, so every required field is represented
// even when the upstream extraction silently omitted it.
func Enhance(extracted map[string]any, tmpl *types.Template) map[string]types.EnhancedField {
	enhanced := make(map[string]types.EnhancedField, len(extracted))

	for fieldName, value := range extracted {
		if strings.HasPrefix(fieldName, internalPrefix) {
			continue
		}

		validation := ValidateAgainstTemplate(fieldName, value, tmpl)
		enhanced[fieldName] = types.EnhancedField{
			Value:               value,
			Confidence:          validation.Confidence,
			Reasoning:           validation.Reasoning,
			IsValid:             validation.IsValid,
			SuggestedCorrection: validation.SuggestedCorrection,
		}
	}

	if tmpl != nil {
		for fieldName, def := range tmpl.Fields {
			if !def.Required {
				continue
			}
			if _, present := enhanced[fieldName]; present {
				continue
			}
			enhanced[fieldName] = types.EnhancedField{
				Value:      nil,
				Confidence: types.ConfidenceLow,
				Reasoning:  []string{"Required field is missing"},
				IsValid:    false,
			}
		}
	}

	return enhanced
}

// OverallConfidence folds per-field tiers into a single record-level tier.
// At least 70% High fields make the record High; at least 60% High+Medium
// make it Medium; everything else, including an empty result set, is Low.
// The strict High threshold prevents one Low field from being masked by
// volume.
func OverallConfidence(enhanced map[string]types.EnhancedField) types.Confidence {
	if len(enhanced) == 0 {
		return types.ConfidenceLow
	}

	var high, medium int
	for _, field := range enhanced {
		switch field.Confidence {
		case types.ConfidenceHigh:
			high++
		case types.ConfidenceMedium:
			medium++
		}
	}

	total := float64(len(enhanced))
	highFrac := float64(high) / total
	mediumFrac := float64(medium) / total

	switch {
	case highFrac >= 0.7:
		return types.ConfidenceHigh
	case highFrac+mediumFrac >= 0.6:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// FormatResults flattens enhanced results into a single display-ready map:
// <field> carries the value, <field>_confidence the tier, and, when
// requested and non-empty, <field>_reasoning the reasoning entries joined
// with single spaces. One trailing _overall_confidence key summarizes the
// record. The original per-field values and tiers remain recoverable by key
// convention.
func FormatResults(enhanced map[string]types.EnhancedField, includeReasoning bool) map[string]any {
	formatted := make(map[string]any, 3*len(enhanced)+1)

	for fieldName, field := range enhanced {
		formatted[fieldName] = field.Value
		formatted[fieldName+"_confidence"] = field.Confidence

		if includeReasoning && len(field.Reasoning) > 0 {
			formatted[fieldName+"_reasoning"] = strings.Join(field.Reasoning, " ")
		}
	}

	formatted[OverallKey] = OverallConfidence(enhanced)
	return formatted
}
