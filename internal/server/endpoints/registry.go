package endpoints

import (
	"github.com/storyloom/storyloom/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Interview structure endpoints
		&ListChaptersEndpoint{},
		&ListQuestionsEndpoint{},

		// Answer capture endpoints
		&UpsertAnswerEndpoint{},
		&DeleteAnswerEndpoint{},
		&ListAnswersEndpoint{},

		// Narrative endpoints
		&SynthesizeChapterEndpoint{},
		&GetChapterNarrativeEndpoint{},
		&ListNarrativesEndpoint{},

		// Book endpoints
		&CompileBookEndpoint{},
		&GetBookEndpoint{},
		&ExportBookEndpoint{},

		// Admin endpoints
		&SetEntitlementEndpoint{},

		// Model call ledger endpoints
		&ListLLMCallsEndpoint{},
		&LLMCallSummaryEndpoint{},
	}
}
