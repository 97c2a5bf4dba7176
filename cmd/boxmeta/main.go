// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the boxmeta CLI: metadata extraction
// from Box files with template-driven validation and confidence scoring.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairsailau/AI-clean-V2/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the boxmeta CLI.
var rootCmd = &cobra.Command{
	Use:   "boxmeta",
	Short: "Extract and validate document metadata via the Box AI API",
	Long: `boxmeta extracts metadata fields from Box files using the Box AI API,
validates every extracted value against a metadata template, and scores
each field with a confidence tier the AI cannot inflate.

Templates are YAML schemas indexed into a local store. Each infrastructure
stage is a subcommand: template manages the schema store, extract runs
structured extraction, freeform runs prompt-driven extraction, and score
re-validates previously extracted values offline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./boxmeta.yaml or ~/.config/boxmeta/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("boxmeta")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "boxmeta"))
		}
	}

	viper.SetEnvPrefix("BOXMETA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
