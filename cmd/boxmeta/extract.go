// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairsailau/AI-clean-V2/internal/extraction"
	"github.com/fairsailau/AI-clean-V2/internal/schema"
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	defaultModel      = "azure__openai__gpt_4o_mini"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file-ids...]",
	Short: "Extract structured metadata from Box files against a template",
	Long: `Extract calls the Box AI API for each file, validates the returned
values against the named template, and writes one result YAML per file
to the results directory. Every field carries a confidence tier derived
from validation, overriding whatever the AI claimed. Files with an
existing result are skipped.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("template", "", "template key to extract against")
	extractCmd.Flags().String("template-file", "", "template YAML file to extract against (bypasses the store)")
	extractCmd.Flags().String("model", "", "AI model identifier (default "+defaultModel+")")
	extractCmd.Flags().String("access-token", "", "Box API bearer token (default: box-access-token secret)")
	extractCmd.Flags().Int("max-retries", 0, "retry attempts for failed API calls (default 3)")
	extractCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	extractCmd.Flags().String("templates-dir", "templates", "base directory for templates (contains index/)")
	extractCmd.Flags().String("results-dir", "results", "directory extraction results are written to")
	extractCmd.Flags().Bool("include-reasoning", false, "include per-field reasoning in formatted results")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more Box file IDs")
	}

	cfg := extractionConfig(cmd)
	backend, err := boxBackend(cmd, cfg)
	if err != nil {
		return err
	}

	tmpl, err := loadTemplate(cmd, cfg.TemplatesDir)
	if err != nil {
		return err
	}

	summary, err := extraction.ExtractAll(context.Background(), backend, args, tmpl, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d file(s) failed extraction", summary.Failed)
	}
	return nil
}

// --- shared helpers ---

// loadTemplate resolves the template from --template-file or, failing that,
// looks up --template in the store.
func loadTemplate(cmd *cobra.Command, templatesDir string) (*types.Template, error) {
	if templateFile, _ := cmd.Flags().GetString("template-file"); templateFile != "" {
		return schema.LoadFile(templateFile)
	}

	templateKey, _ := cmd.Flags().GetString("template")
	if templateKey == "" {
		return nil, fmt.Errorf("template required: pass --template <key> or --template-file <path>")
	}

	store, err := schema.NewStore(types.TemplateStoreConfig{TemplatesDir: templatesDir})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Get(context.Background(), templateKey)
}

func extractionConfig(cmd *cobra.Command) types.ExtractionConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = defaultModel
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	templatesDir, _ := cmd.Flags().GetString("templates-dir")
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	includeReasoning, _ := cmd.Flags().GetBool("include-reasoning")

	token, _ := cmd.Flags().GetString("access-token")

	return types.ExtractionConfig{
		BoxConfig: types.BoxConfig{
			Model:       model,
			AccessToken: secretDefault("box-access-token", token),
			MaxRetries:  maxRetries,
		},
		TemplatesDir:     templatesDir,
		ResultsDir:       resultsDir,
		IncludeReasoning: includeReasoning,
	}
}

func boxBackend(cmd *cobra.Command, cfg types.ExtractionConfig) (*extraction.BoxBackend, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("Box access token required: pass --access-token or add box-access-token to .secrets/")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &extraction.BoxBackend{
		AccessToken: cfg.AccessToken,
		Model:       cfg.Model,
		MaxRetries:  cfg.MaxRetries,
		Client:      &http.Client{Timeout: timeout},
	}, nil
}
