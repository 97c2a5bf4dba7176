package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/internal/extraction"
)

var freeformCmd = &cobra.Command{
	Use:   "freeform [file-ids...]",
	Short: "Extract metadata from Box files with a custom prompt",
	Long: `Freeform sends a custom extraction prompt to the Box AI API for each
file and prints the extracted fields as YAML. Without a template there is
nothing to validate against, so fields keep the confidence the AI
reported (defaulting to Medium).`,
	RunE: runFreeform,
}

func init() {
	freeformCmd.Flags().String("prompt", "", "extraction instructions sent to the AI (required)")
	freeformCmd.Flags().String("model", "", "AI model identifier (default "+defaultModel+")")
	freeformCmd.Flags().String("access-token", "", "Box API bearer token (default: box-access-token secret)")
	freeformCmd.Flags().Int("max-retries", 0, "retry attempts for failed API calls (default 3)")
	freeformCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(freeformCmd)
}

func runFreeform(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more Box file IDs")
	}

	prompt, _ := cmd.Flags().GetString("prompt")
	if prompt == "" {
		return fmt.Errorf("--prompt is required")
	}

	cfg := extractionConfig(cmd)
	backend, err := boxBackend(cmd, cfg)
	if err != nil {
		return err
	}

	out := make(map[string]any, len(args))
	for _, fileID := range args {
		fields, err := extraction.ExtractFreeform(context.Background(), backend, fileID, prompt, cfg)
		if err != nil {
			return fmt.Errorf("file %s: %w", fileID, err)
		}
		out[fileID] = fields
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(out)
}
