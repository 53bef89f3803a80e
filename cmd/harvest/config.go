package main

import (
	"fmt"

	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect harvest configuration",
	Long:  `Show the effective configuration (defaults, config file, .env files and HARVEST_* variables) or validate it.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Publish.SecretKey != "" {
			shown.Publish.SecretKey = maskSecret(shown.Publish.SecretKey)
		}

		out, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		result := cfg.Validate(config.ValidationContextAll)
		if result.HasErrors() {
			return result.Err()
		}
		for _, w := range result.Warnings {
			fmt.Printf("⚠️  %s\n", w)
		}
		fmt.Println("✅ Configuration is valid")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
