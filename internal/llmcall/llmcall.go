// Package llmcall records every model API call for traceability and cost
// accounting. Recording is best-effort: a failed write never fails the
// synthesis that triggered it.
package llmcall

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storyloom/storyloom/internal/providers"
	"github.com/storyloom/storyloom/internal/store"
)

// CallStore persists call records. *store.SQLiteStore satisfies it.
type CallStore interface {
	RecordLLMCall(ctx context.Context, c store.LLMCall) error
}

// RecordOptions carries the pipeline context of one call.
type RecordOptions struct {
	PersonID  string
	ChapterID string
	// PromptKey names which prompt produced the call, e.g. "chapter".
	PromptKey string
	Provider  string
	Model     string
}

// Recorder writes call records to the store.
type Recorder struct {
	store  CallStore
	logger *slog.Logger
}

func NewRecorder(st CallStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: st, logger: logger}
}

// Record persists one call outcome. Either result or callErr may be nil.
func (r *Recorder) Record(ctx context.Context, result *providers.ChatResult, callErr error, opts RecordOptions) {
	if r == nil {
		return
	}

	call := store.LLMCall{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		PersonID:  opts.PersonID,
		ChapterID: opts.ChapterID,
		PromptKey: opts.PromptKey,
		Provider:  opts.Provider,
		Model:     opts.Model,
		Success:   callErr == nil,
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}
	if result != nil {
		call.LatencyMs = int(result.ExecutionTime.Milliseconds())
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.CostUSD = result.CostUSD
		if result.Provider != "" {
			call.Provider = result.Provider
		}
		if result.ModelUsed != "" {
			call.Model = result.ModelUsed
		}
	}

	if err := r.store.RecordLLMCall(ctx, call); err != nil {
		r.logger.Warn("failed to record llm call", "error", err)
	}
}
