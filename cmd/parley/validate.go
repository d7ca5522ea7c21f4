package main

import (
	"fmt"
	"os"

	"github.com/parleyhq/parley/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "Check the flow configuration for consistency",
	Long:  `Loads the configuration, verifies stage and transition references, and reports suspicious but non-fatal constructs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if len(args) > 0 {
		configPath = args[0]
	}

	doc, err := config.Load(configPath)
	if err != nil {
		return err
	}

	for _, warning := range doc.Lint() {
		fmt.Printf("Warning: %s\n", warning)
	}
	return nil
}
