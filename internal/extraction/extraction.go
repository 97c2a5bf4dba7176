// Package extraction calls the Box AI service to pull structured metadata
// from documents and runs the results through the template confidence
// engine. The HTTP transport, auth, and request shaping live here; the
// validation and scoring logic lives in internal/confidence.
package extraction

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/internal/confidence"
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// Backend abstracts the Box AI API so tests can supply a mock. Each
// implementation handles a single extraction request for one file and
// returns the raw response.
type Backend interface {
	Extract(ctx context.Context, req Request) (RawResponse, error)
}

// Request describes one extraction call. A non-nil Template selects
// structured extraction against that schema; otherwise Prompt drives a
// freeform extraction.
type Request struct {
	// FileID is the Box file to process.
	FileID string

	// Template is the metadata schema for structured extraction.
	Template *types.Template

	// Prompt is the instruction text for freeform extraction.
	Prompt string

	// Model overrides the backend's default AI model when non-empty.
	Model string
}

// Result is the outcome of one structured extraction: per-field verdicts
// from the confidence engine, the record-level tier, and the flat
// display-ready map.
type Result struct {
	// FileID is the Box file the metadata came from.
	FileID string `json:"file_id" yaml:"file_id"`

	// OverallConfidence summarizes the whole record.
	OverallConfidence types.Confidence `json:"overall_confidence" yaml:"overall_confidence"`

	// Fields maps field name to its validated value and verdict.
	Fields map[string]types.EnhancedField `json:"fields" yaml:"fields"`

	// Formatted is the flat key convention form of Fields.
	Formatted map[string]any `json:"formatted" yaml:"formatted"`
}

// ExtractFile runs a structured extraction for one file and re-derives all
// confidence verdicts against the template. The AI-supplied tiers are
// corroborated or overridden by the validator; they never pass through
// unchecked.
func ExtractFile(ctx context.Context, backend Backend, fileID string, tmpl *types.Template, cfg types.ExtractionConfig) (*Result, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	req := Request{
		FileID:   fileID,
		Template: tmpl,
		Model:    cfg.Model,
	}

	resp, err := callWithRetry(ctx, backend, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("extracting metadata for file %s: %w", fileID, err)
	}

	values := make(map[string]any)
	for name, extraction := range Normalize(resp) {
		values[name] = extraction.Value
	}

	enhanced := confidence.Enhance(values, tmpl)

	return &Result{
		FileID:            fileID,
		OverallConfidence: confidence.OverallConfidence(enhanced),
		Fields:            enhanced,
		Formatted:         confidence.FormatResults(enhanced, cfg.IncludeReasoning),
	}, nil
}

// ExtractFreeform runs a prompt-driven extraction for one file. With no
// template there is nothing to validate against, so the AI-supplied
// {value, confidence, reasoning} triples are returned as normalized.
func ExtractFreeform(ctx context.Context, backend Backend, fileID, prompt string, cfg types.ExtractionConfig) (map[string]types.FieldExtraction, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	req := Request{
		FileID: fileID,
		Prompt: prompt,
		Model:  cfg.Model,
	}

	resp, err := callWithRetry(ctx, backend, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("extracting metadata for file %s: %w", fileID, err)
	}

	return Normalize(resp), nil
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of files processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any files failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll runs structured extraction for each file ID and writes result
// files to cfg.ResultsDir. Files with an existing result are skipped; one
// file failing does not abort the rest.
func ExtractAll(ctx context.Context, backend Backend, fileIDs []string, tmpl *types.Template, cfg types.ExtractionConfig, w io.Writer) (BatchSummary, error) {
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating results directory: %w", err)
	}

	var summary BatchSummary

	for _, fileID := range fileIDs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		outPath := filepath.Join(cfg.ResultsDir, fileID+"-metadata.yaml")

		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skipped %s\n", fileID)
			summary.Skipped++
			continue
		}

		fmt.Fprintf(w, "extracting %s\n", fileID)

		result, err := ExtractFile(ctx, backend, fileID, tmpl, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", fileID, err)
			summary.Failed++
			continue
		}

		if err := writeResult(outPath, result); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", fileID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "extracted %s (%d fields, overall %s)\n", fileID, len(result.Fields), result.OverallConfidence)
		summary.Extracted++
	}

	return summary, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, req Request, maxRetries int) (RawResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return RawResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Extract(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return RawResponse{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// writeResult marshals the Result to a YAML file.
func writeResult(path string, result *Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
