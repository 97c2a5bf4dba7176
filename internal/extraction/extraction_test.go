package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// --- mock backends ---

type mockBackend struct {
	responses map[string]RawResponse // file ID → response
	err       error                  // forced error for retry testing
	calls     int
}

func (m *mockBackend) Extract(_ context.Context, req Request) (RawResponse, error) {
	m.calls++
	if m.err != nil {
		return RawResponse{}, m.err
	}
	if resp, ok := m.responses[req.FileID]; ok {
		return resp, nil
	}
	return RawResponse{}, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	response  RawResponse
}

func (f *failNTimesBackend) Extract(_ context.Context, _ Request) (RawResponse, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return RawResponse{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.response, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

func testConfig(resultsDir string) types.ExtractionConfig {
	return types.ExtractionConfig{
		BoxConfig: types.BoxConfig{
			Model:      "test-model",
			MaxRetries: 3,
		},
		ResultsDir:       resultsDir,
		IncludeReasoning: true,
	}
}

func invoiceTemplate() *types.Template {
	return &types.Template{
		Key: "invoice",
		Fields: map[string]types.FieldDefinition{
			"invoice_number": {Type: types.FieldString, Required: true},
			"status":         {Type: types.FieldEnum, Options: []string{"open", "closed"}},
		},
	}
}

func invoiceResponse() RawResponse {
	return RawResponse{
		Answer: map[string]any{
			"invoice_number": map[string]any{
				"value":      "INV-12345",
				"confidence": "Low", // the validator should override this
				"reasoning":  "Hard to read",
			},
			"status": map[string]any{
				"value":      "pending",
				"confidence": "High", // and this
				"reasoning":  "Clearly marked",
			},
		},
	}
}

// --- ExtractFile ---

func TestExtractFile_OverridesAIConfidence(t *testing.T) {
	backend := &mockBackend{responses: map[string]RawResponse{"f1": invoiceResponse()}}

	result, err := ExtractFile(context.Background(), backend, "f1", invoiceTemplate(), testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}

	// A well-formed required string scores High regardless of the AI's Low.
	inv := result.Fields["invoice_number"]
	if !inv.IsValid || inv.Confidence != types.ConfidenceHigh {
		t.Errorf("invoice_number = %+v, want valid High", inv)
	}

	// An out-of-set enum value scores Low regardless of the AI's High.
	status := result.Fields["status"]
	if status.IsValid || status.Confidence != types.ConfidenceLow {
		t.Errorf("status = %+v, want invalid Low", status)
	}
	if status.SuggestedCorrection != "open" {
		t.Errorf("status correction = %v, want first allowed option", status.SuggestedCorrection)
	}

	// One High, one Low: 50% High misses both thresholds.
	if result.OverallConfidence != types.ConfidenceLow {
		t.Errorf("overall = %s, want Low", result.OverallConfidence)
	}

	if result.Formatted["invoice_number"] != "INV-12345" {
		t.Errorf("formatted value = %v", result.Formatted["invoice_number"])
	}
	if _, ok := result.Formatted["_overall_confidence"]; !ok {
		t.Error("formatted output missing _overall_confidence")
	}
}

func TestExtractFile_RetriesTransientErrors(t *testing.T) {
	backend := &failNTimesBackend{failures: 2, response: invoiceResponse()}

	_, err := ExtractFile(context.Background(), backend, "f1", invoiceTemplate(), testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("ExtractFile after retries: %v", err)
	}
	if backend.callCount != 3 {
		t.Errorf("callCount = %d, want 3 (two failures then success)", backend.callCount)
	}
}

func TestExtractFile_ExhaustsRetries(t *testing.T) {
	backend := &mockBackend{err: fmt.Errorf("service unavailable")}

	_, err := ExtractFile(context.Background(), backend, "f1", invoiceTemplate(), testConfig(t.TempDir()))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "service unavailable") {
		t.Errorf("error %q does not wrap the backend failure", err)
	}
	// 1 initial + 3 retries.
	if backend.calls != 4 {
		t.Errorf("calls = %d, want 4", backend.calls)
	}
}

func TestExtractFile_EmptyResponseSynthesizesRequired(t *testing.T) {
	backend := &mockBackend{} // empty answer for every file

	result, err := ExtractFile(context.Background(), backend, "f1", invoiceTemplate(), testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}

	inv, ok := result.Fields["invoice_number"]
	if !ok {
		t.Fatal("required field not synthesized from empty response")
	}
	if inv.IsValid || inv.Confidence != types.ConfidenceLow || inv.Value != nil {
		t.Errorf("synthesized entry = %+v", inv)
	}
	if result.OverallConfidence != types.ConfidenceLow {
		t.Errorf("overall = %s, want Low", result.OverallConfidence)
	}
}

// --- ExtractFreeform ---

func TestExtractFreeform(t *testing.T) {
	backend := &mockBackend{responses: map[string]RawResponse{
		"f9": {Answer: map[string]any{
			"summary": map[string]any{
				"value":      "Quarterly report",
				"confidence": "High",
				"reasoning":  "Title page",
			},
		}},
	}}

	got, err := ExtractFreeform(context.Background(), backend, "f9", "summarize this document", testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("ExtractFreeform: %v", err)
	}

	summary := got["summary"]
	if summary.Value != "Quarterly report" || summary.Confidence != types.ConfidenceHigh {
		t.Errorf("summary = %+v", summary)
	}
}

// --- ExtractAll ---

func TestExtractAll(t *testing.T) {
	resultsDir := t.TempDir()
	cfg := testConfig(resultsDir)

	// Pre-existing result for f2 should be skipped.
	prePath := filepath.Join(resultsDir, "f2-metadata.yaml")
	if err := os.WriteFile(prePath, []byte("file_id: f2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &mockBackend{responses: map[string]RawResponse{
		"f1": invoiceResponse(),
		"f3": invoiceResponse(),
	}}

	var out bytes.Buffer
	summary, err := ExtractAll(context.Background(), backend, []string{"f1", "f2", "f3"}, invoiceTemplate(), cfg, &out)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if summary.Extracted != 2 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 extracted, 1 skipped", summary)
	}
	if summary.Total() != 3 {
		t.Errorf("Total = %d, want 3", summary.Total())
	}
	if summary.HasFailures() {
		t.Error("HasFailures = true, want false")
	}

	if !strings.Contains(out.String(), "skipped f2") {
		t.Errorf("progress output missing skip line:\n%s", out.String())
	}

	// The written result round-trips through YAML.
	data, err := os.ReadFile(filepath.Join(resultsDir, "f1-metadata.yaml"))
	if err != nil {
		t.Fatalf("reading result file: %v", err)
	}
	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		t.Fatalf("parsing result file: %v", err)
	}
	if result.FileID != "f1" {
		t.Errorf("FileID = %q, want f1", result.FileID)
	}
	if len(result.Fields) != 2 {
		t.Errorf("got %d fields, want 2", len(result.Fields))
	}
}

func TestExtractAll_FailuresDoNotAbort(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxRetries = 1

	// Backend fails every call.
	backend := &mockBackend{err: fmt.Errorf("boom")}

	var out bytes.Buffer
	summary, err := ExtractAll(context.Background(), backend, []string{"f1", "f2"}, invoiceTemplate(), cfg, &out)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if !summary.HasFailures() {
		t.Error("HasFailures = false, want true")
	}
}

func TestExtractAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &mockBackend{}
	var out bytes.Buffer
	_, err := ExtractAll(ctx, backend, []string{"f1"}, invoiceTemplate(), testConfig(t.TempDir()), &out)
	if err == nil {
		t.Fatal("expected context error")
	}
}
