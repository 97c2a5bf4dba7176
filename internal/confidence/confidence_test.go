package confidence

import (
	"strings"
	"testing"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

func invoiceTemplate() *types.Template {
	return &types.Template{
		Key: "invoice",
		Fields: map[string]types.FieldDefinition{
			"invoice_number": {Type: types.FieldString, Required: true},
			"vendor":         {Type: types.FieldString},
			"amount":         {Type: types.FieldNumber, Min: fptr(0), Max: fptr(10000)},
			"status":         {Type: types.FieldEnum, Options: []string{"open", "closed"}},
		},
	}
}

func TestEnhance(t *testing.T) {
	extracted := map[string]any{
		"invoice_number": "INV-12345",
		"vendor":         "Acme Corp",
		"amount":         250.75,
		"status":         "pending",
		"_model":         "azure__openai__gpt_4o_mini",
	}

	enhanced := Enhance(extracted, invoiceTemplate())

	if _, ok := enhanced["_model"]; ok {
		t.Error("internal-marker field leaked into enhanced results")
	}
	if len(enhanced) != 4 {
		t.Fatalf("got %d enhanced fields, want 4: %v", len(enhanced), enhanced)
	}

	if f := enhanced["invoice_number"]; !f.IsValid || f.Confidence != types.ConfidenceHigh {
		t.Errorf("invoice_number = %+v, want valid High", f)
	}
	if f := enhanced["amount"]; !f.IsValid || f.Value != 250.75 {
		t.Errorf("amount = %+v, want valid with value carried over", f)
	}

	status := enhanced["status"]
	if status.IsValid {
		t.Error("status 'pending' should be invalid")
	}
	if status.Confidence != types.ConfidenceLow {
		t.Errorf("status confidence = %s, want Low", status.Confidence)
	}
	if status.SuggestedCorrection != "open" {
		t.Errorf("status correction = %v, want first allowed option", status.SuggestedCorrection)
	}
}

func TestEnhance_SynthesizesMissingRequired(t *testing.T) {
	enhanced := Enhance(map[string]any{}, invoiceTemplate())

	field, ok := enhanced["invoice_number"]
	if !ok {
		t.Fatal("missing required field was not synthesized")
	}
	if field.Value != nil {
		t.Errorf("Value = %v, want nil", field.Value)
	}
	if field.IsValid {
		t.Error("synthesized entry must be invalid")
	}
	if field.Confidence != types.ConfidenceLow {
		t.Errorf("Confidence = %s, want Low", field.Confidence)
	}
	if len(field.Reasoning) != 1 || field.Reasoning[0] != "Required field is missing" {
		t.Errorf("Reasoning = %v, want [\"Required field is missing\"]", field.Reasoning)
	}

	// Optional fields are not synthesized.
	if _, ok := enhanced["vendor"]; ok {
		t.Error("optional field was synthesized")
	}
}

// TestEnhance_Idempotent feeds validated values back through Enhance and
// expects identical per-field verdicts.
func TestEnhance_Idempotent(t *testing.T) {
	tmpl := invoiceTemplate()
	extracted := map[string]any{
		"invoice_number": "INV-1",
		"amount":         99999.0, // above max
		"status":         "open",
	}

	first := Enhance(extracted, tmpl)

	again := make(map[string]any, len(first))
	for name, field := range first {
		again[name] = field.Value
	}
	second := Enhance(again, tmpl)

	if len(first) != len(second) {
		t.Fatalf("field count changed: %d -> %d", len(first), len(second))
	}
	for name, f := range first {
		s := second[name]
		if f.IsValid != s.IsValid || f.Confidence != s.Confidence {
			t.Errorf("%s: verdict changed (%v/%s -> %v/%s)",
				name, f.IsValid, f.Confidence, s.IsValid, s.Confidence)
		}
	}
}

func TestOverallConfidence(t *testing.T) {
	mk := func(tiers ...types.Confidence) map[string]types.EnhancedField {
		m := make(map[string]types.EnhancedField, len(tiers))
		for i, c := range tiers {
			m[string(rune('a'+i))] = types.EnhancedField{Confidence: c}
		}
		return m
	}

	h, m, l := types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow

	tests := []struct {
		name  string
		input map[string]types.EnhancedField
		want  types.Confidence
	}{
		{"empty input", nil, l},
		{"80 percent high", mk(h, h, h, h, l), h},
		{"exactly 60 percent high plus medium", mk(h, m, m, l, l), m},
		{"all low", mk(l, l, l), l},
		{"all high", mk(h, h), h},
		{"just under high threshold", mk(h, h, l), m}, // 66% high, 66% high+medium
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallConfidence(tt.input); got != tt.want {
				t.Errorf("OverallConfidence = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatResults(t *testing.T) {
	enhanced := map[string]types.EnhancedField{
		"vendor": {
			Value:      "Acme Corp",
			Confidence: types.ConfidenceHigh,
			Reasoning:  []string{"Type validation: Valid string"},
			IsValid:    true,
		},
		"amount": {
			Value:      1500.0,
			Confidence: types.ConfidenceLow,
			Reasoning:  []string{"Type validation: Valid number", "Value 1500 is above maximum 1000"},
			IsValid:    false,
		},
	}

	formatted := FormatResults(enhanced, true)

	// One value key, one confidence key, one reasoning key per field,
	// plus exactly one overall key.
	if len(formatted) != 7 {
		t.Fatalf("got %d keys, want 7: %v", len(formatted), formatted)
	}
	if formatted["vendor"] != "Acme Corp" {
		t.Errorf("vendor = %v", formatted["vendor"])
	}
	if formatted["vendor_confidence"] != types.ConfidenceHigh {
		t.Errorf("vendor_confidence = %v", formatted["vendor_confidence"])
	}
	reasoning, ok := formatted["amount_reasoning"].(string)
	if !ok {
		t.Fatal("amount_reasoning missing")
	}
	if !strings.Contains(reasoning, "Valid number Value 1500") {
		t.Errorf("reasoning not space-joined in order: %q", reasoning)
	}
	// One High of two fields: 50% < 70%, and 50% High+Medium < 60%.
	if formatted[OverallKey] != types.ConfidenceLow {
		t.Errorf("overall = %v, want Low", formatted[OverallKey])
	}
}

func TestFormatResults_WithoutReasoning(t *testing.T) {
	enhanced := map[string]types.EnhancedField{
		"vendor": {
			Value:      "Acme Corp",
			Confidence: types.ConfidenceHigh,
			Reasoning:  []string{"Type validation: Valid string"},
			IsValid:    true,
		},
	}

	formatted := FormatResults(enhanced, false)

	if _, ok := formatted["vendor_reasoning"]; ok {
		t.Error("reasoning emitted with includeReasoning=false")
	}
	if len(formatted) != 3 {
		t.Errorf("got %d keys, want value, confidence, and overall only", len(formatted))
	}
	if formatted[OverallKey] != types.ConfidenceHigh {
		t.Errorf("overall = %v, want High", formatted[OverallKey])
	}
}

func TestFormatResults_Empty(t *testing.T) {
	formatted := FormatResults(nil, true)
	if len(formatted) != 1 {
		t.Fatalf("got %d keys, want only the overall key", len(formatted))
	}
	if formatted[OverallKey] != types.ConfidenceLow {
		t.Errorf("overall = %v, want Low for empty input", formatted[OverallKey])
	}
}
