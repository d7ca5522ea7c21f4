package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a guard-railed conversation orchestrator",
	Long:  `Parley drives multi-turn conversations through configured stages and states, vetoing transitions that break the business flow and forcing the ones it mandates.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "parley.json", "Path to the flow configuration (JSON or YAML)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for session persistence (empty = in-memory)")
}
