package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/internal/confidence"
	"github.com/fairsailau/AI-clean-V2/internal/schema"
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score [values-file]",
	Short: "Validate extracted metadata values against a template offline",
	Long: `Score reads a flat map of field values from a YAML or JSON file,
validates each value against the named template, and prints the scored
result: per-field confidence tiers, suggested corrections, synthesized
entries for missing required fields, and the overall record tier.

No API calls are made; score re-runs the same validation the extract
command applies to live responses.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("template", "", "template key to validate against (required)")
	scoreCmd.Flags().String("templates-dir", "templates", "base directory for templates (contains index/)")
	scoreCmd.Flags().Bool("include-reasoning", false, "include per-field reasoning in the output")
	scoreCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one values file (YAML or JSON)")
	}

	templateKey, _ := cmd.Flags().GetString("template")
	if templateKey == "" {
		return fmt.Errorf("--template is required: name a template indexed in the store")
	}

	values, err := readValues(args[0])
	if err != nil {
		return err
	}

	templatesDir, _ := cmd.Flags().GetString("templates-dir")
	store, err := schema.NewStore(types.TemplateStoreConfig{TemplatesDir: templatesDir})
	if err != nil {
		return err
	}
	defer store.Close()

	tmpl, err := store.Get(context.Background(), templateKey)
	if err != nil {
		return err
	}

	includeReasoning, _ := cmd.Flags().GetBool("include-reasoning")
	enhanced := confidence.Enhance(values, tmpl)
	formatted := confidence.FormatResults(enhanced, includeReasoning)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(formatted)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(formatted)
}

// readValues parses a flat field-value map from a YAML or JSON file,
// chosen by extension.
func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading values file: %w", err)
	}

	values := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return values, nil
}
