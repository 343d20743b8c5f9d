package main

import (
	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Storyloom server via HTTP.

These commands require a running server (storyloom serve).
Use --server to specify a custom server URL.

Examples:
  storyloom api health                         # Check server health
  storyloom api chapters                       # List interview chapters
  storyloom api story compile --person p1      # Compile a life-story book`,
}

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Narrative synthesis and book commands",
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8399", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Interview structure and capture at top level
	apiCmd.AddCommand((&endpoints.ListChaptersEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListQuestionsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.UpsertAnswerEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.DeleteAnswerEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListAnswersEndpoint{}).Command(getServerURL))

	// Story as subcommand group
	storyCmd.AddCommand((&endpoints.SynthesizeChapterEndpoint{}).Command(getServerURL))
	storyCmd.AddCommand((&endpoints.GetChapterNarrativeEndpoint{}).Command(getServerURL))
	storyCmd.AddCommand((&endpoints.ListNarrativesEndpoint{}).Command(getServerURL))
	storyCmd.AddCommand((&endpoints.CompileBookEndpoint{}).Command(getServerURL))
	storyCmd.AddCommand((&endpoints.GetBookEndpoint{}).Command(getServerURL))
	storyCmd.AddCommand((&endpoints.ExportBookEndpoint{}).Command(getServerURL))

	// Admin as subcommand group
	adminCmd.AddCommand((&endpoints.SetEntitlementEndpoint{}).Command(getServerURL))
	adminCmd.AddCommand((&endpoints.ListLLMCallsEndpoint{}).Command(getServerURL))
	adminCmd.AddCommand((&endpoints.LLMCallSummaryEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(storyCmd)
	apiCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(apiCmd)
}
