package main

import (
	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "storyloom",
	Short: "Narrative synthesis pipeline that turns interview answers into a life-story book",
	Long: `Storyloom synthesizes a person's interview answers into first-person
narrative prose and compiles the chapters into a complete life-story book.

The pipeline includes:
  - Chapter-by-chapter narrative synthesis from captured Q/A answers
  - Idempotent caching so each chapter is generated at most once
  - Rolling context summaries that keep later chapters consistent
  - Book compilation in canonical chapter order`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.storyloom/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "storyloom home directory (default: ~/.storyloom)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
