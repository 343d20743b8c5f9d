package endpoints

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// LLMCall is the API representation of one recorded model call.
type LLMCall struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"timestamp"`
	LatencyMs    int     `json:"latency_ms"`
	PersonID     string  `json:"person_id"`
	ChapterID    string  `json:"chapter_id"`
	PromptKey    string  `json:"prompt_key"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Success      bool    `json:"success"`
	Error        string  `json:"error,omitempty"`
}

// CallSummary aggregates the ledger into usage totals.
type CallSummary struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls?person_id=&limit=.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }

func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	personID := r.URL.Query().Get("person_id")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	calls, err := st.ListLLMCalls(r.Context(), personID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]LLMCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, LLMCall{
			ID:           c.ID,
			Timestamp:    c.Timestamp.Format(time.RFC3339),
			LatencyMs:    c.LatencyMs,
			PersonID:     c.PersonID,
			ChapterID:    c.ChapterID,
			PromptKey:    c.PromptKey,
			Provider:     c.Provider,
			Model:        c.Model,
			InputTokens:  c.InputTokens,
			OutputTokens: c.OutputTokens,
			CostUSD:      c.CostUSD,
			Success:      c.Success,
			Error:        c.Error,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personID string
	var limit int
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recent model calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/llmcalls?person_id=" + url.QueryEscape(personID) +
				"&limit=" + strconv.Itoa(limit)
			var calls []LLMCall
			if err := client.Get(cmd.Context(), path, &calls); err != nil {
				return err
			}
			return api.Output(calls)
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "only show calls for this person")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of calls to return")
	return cmd
}

// LLMCallSummaryEndpoint handles GET /api/llmcalls/summary.
type LLMCallSummaryEndpoint struct{}

func (e *LLMCallSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/summary", e.handler
}

func (e *LLMCallSummaryEndpoint) RequiresInit() bool { return true }

func (e *LLMCallSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	sum, err := st.LLMCallSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CallSummary{
		Calls:        sum.Calls,
		Failures:     sum.Failures,
		InputTokens:  sum.InputTokens,
		OutputTokens: sum.OutputTokens,
		CostUSD:      sum.CostUSD,
	})
}

func (e *LLMCallSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show aggregate model usage and cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var sum CallSummary
			if err := client.Get(cmd.Context(), "/api/llmcalls/summary", &sum); err != nil {
				return err
			}
			return api.Output(sum)
		},
	}
}
