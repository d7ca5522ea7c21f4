package main

import (
	"fmt"
	"os"

	"github.com/parleyhq/parley/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive conversation session",
	Long:  `Starts an interactive session against the configured flow, with the operator playing the external decision-maker.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if !cmd.Flags().Changed("config") && len(args) > 0 {
			configPath = args[0]
		}
		sessionID, _ := cmd.Flags().GetString("session")
		redisAddr, _ := cmd.Flags().GetString("redis")
		debug, _ := cmd.Flags().GetBool("debug")
		noBanner, _ := cmd.Flags().GetBool("no-banner")

		opts := cli.RunOptions{
			ConfigPath: configPath,
			SessionID:  sessionID,
			RedisAddr:  redisAddr,
			Debug:      debug,
			NoBanner:   noBanner,
		}
		if err := cli.RunSession(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Session ID to resume (empty = new session)")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
	runCmd.Flags().Bool("no-banner", false, "Suppress the startup banner")
}
