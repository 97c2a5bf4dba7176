// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/internal/schema"
	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the metadata template store (index, list, show)",
	Long: `Template manages a local SQLite store of metadata templates built from
YAML schema files. Use subcommands to index template files, list the
indexed templates, or show one template's field definitions.`,
}

// --- index subcommand ---

var templateIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Ingest template YAML files into the template store",
	Long: `Index reads template YAML files from the templates directory, validates
their field definitions, and ingests them into a SQLite store. Unchanged
files are skipped on subsequent runs; invalid templates are reported and
rejected without aborting the batch.`,
	RunE: runTemplateIndex,
}

func runTemplateIndex(cmd *cobra.Command, args []string) error {
	store, err := openTemplateStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d template(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- list subcommand ---

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates indexed in the store",
	RunE:  runTemplateList,
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	store, err := openTemplateStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No templates indexed.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-32s  %s\n", "Key", "Display Name", "Fields")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 68))
	for _, info := range infos {
		name := info.DisplayName
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-32s  %d\n", info.Key, name, info.FieldCount)
	}
	fmt.Fprintf(os.Stdout, "\n%d templates\n", len(infos))
	return nil
}

// --- show subcommand ---

var templateShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print one template's field definitions as YAML",
	RunE:  runTemplateShow,
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one template key")
	}

	store, err := openTemplateStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	tmpl, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(tmpl)
}

// --- shared helpers ---

func openTemplateStore(cmd *cobra.Command) (*schema.Store, error) {
	templatesDir, _ := cmd.Flags().GetString("templates-dir")
	if templatesDir == "" {
		templatesDir = "templates"
	}
	return schema.NewStore(types.TemplateStoreConfig{TemplatesDir: templatesDir})
}

func init() {
	// Shared flag on the parent command, inherited by subcommands.
	templateCmd.PersistentFlags().String("templates-dir", "templates", "base directory for templates (contains index/)")

	templateListCmd.Flags().Bool("json", false, "output templates as JSON")

	templateCmd.AddCommand(templateIndexCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)

	rootCmd.AddCommand(templateCmd)
}
