// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extraction

import (
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// RawResponse is the response body from the Box AI extract_structured
// endpoint. Answer shapes vary by model and request: a "fields" array of
// keyed entries, direct keys holding {value, confidence, reasoning}
// objects, or direct keys holding bare values.
type RawResponse struct {
	Answer           map[string]any `json:"answer"`
	CompletionReason string         `json:"completion_reason,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty"`
}

const (
	noReasoning  = "No reasoning provided"
	noConfidence = "No confidence information provided"
)

// Normalize flattens a raw Box AI response into one FieldExtraction per
// field, whatever answer shape the service used. Missing confidence
// defaults to Medium: the AI answered, but supplied no self-assessment to
// carry forward.
func Normalize(resp RawResponse) map[string]types.FieldExtraction {
	normalized := make(map[string]types.FieldExtraction)

	// Keyed entries in a "fields" array.
	if fields, ok := resp.Answer["fields"].([]any); ok {
		for _, raw := range fields {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			key, ok := entry["key"].(string)
			if !ok || key == "" {
				continue
			}
			normalized[key] = tripleFrom(entry, noReasoning)
		}
		return normalized
	}

	// Direct keys: either triple objects or bare values.
	for key, raw := range resp.Answer {
		if entry, ok := raw.(map[string]any); ok {
			if _, hasValue := entry["value"]; hasValue {
				normalized[key] = tripleFrom(entry, noReasoning)
				continue
			}
		}
		normalized[key] = types.FieldExtraction{
			Value:      raw,
			Confidence: types.ConfidenceMedium,
			Reasoning:  noConfidence,
		}
	}

	return normalized
}

// tripleFrom reads value/confidence/reasoning out of one answer entry,
// applying defaults for missing confidence and reasoning.
func tripleFrom(entry map[string]any, defaultReasoning string) types.FieldExtraction {
	extraction := types.FieldExtraction{
		Value:      entry["value"],
		Confidence: types.ConfidenceMedium,
		Reasoning:  defaultReasoning,
	}

	if c, ok := entry["confidence"].(string); ok && c != "" {
		extraction.Confidence = types.Confidence(c)
	}
	if r, ok := entry["reasoning"].(string); ok && r != "" {
		extraction.Reasoning = r
	}

	return extraction
}
