package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/storyloom/storyloom/internal/llmcall"
	"github.com/storyloom/storyloom/internal/prompts/chapter"
	"github.com/storyloom/storyloom/internal/providers"
	"github.com/storyloom/storyloom/internal/store"
)

// DefaultTimeout bounds one language-model call. Narrative generation is a
// slow, non-interactive operation; callers must treat synthesis as
// long-running and cancellable, not as a quick request.
const DefaultTimeout = 5 * time.Minute

// SynthesizerConfig configures a Synthesizer.
type SynthesizerConfig struct {
	Store    Store
	Registry *providers.Registry
	// Provider is the registry name of the LLM client to use.
	Provider string
	// Model overrides the client's default model when set.
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each model call (default: DefaultTimeout).
	Timeout time.Duration
	// Limiter, when set, throttles model calls.
	Limiter *providers.RateLimiter
	// Calls, when set, records every model call to the ledger.
	Calls  *llmcall.Recorder
	Logger *slog.Logger
}

// Synthesizer turns one chapter's answers into narrative prose and persists
// the result keyed by (person, chapter).
type Synthesizer struct {
	store    Store
	registry *providers.Registry
	provider string
	model    string
	temp     float64
	maxTok   int
	timeout  time.Duration
	limiter  *providers.RateLimiter
	calls    *llmcall.Recorder
	locks    *keyLocks
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synthesizer{
		store:    cfg.Store,
		registry: cfg.Registry,
		provider: cfg.Provider,
		model:    cfg.Model,
		temp:     cfg.Temperature,
		maxTok:   cfg.MaxTokens,
		timeout:  cfg.Timeout,
		limiter:  cfg.Limiter,
		calls:    cfg.Calls,
		locks:    newKeyLocks(),
		logger:   cfg.Logger,
	}
}

// SynthesizeRequest is one chapter-synthesis request.
type SynthesizeRequest struct {
	PersonID  string
	ChapterID string
	// StyleGuide conditions the prompt and is echoed consistently within
	// one compilation run.
	StyleGuide string
	// ContextSummary carries facts from earlier chapters. Empty means
	// "no prior chapters".
	ContextSummary string
	// Force bypasses the idempotency gate and regenerates, overwriting
	// any cached narrative.
	Force bool
}

// Synthesize returns the narrative for (person, chapter), generating and
// persisting it if none is cached.
//
// The cached value is returned verbatim unless Force is set; the model is
// called at most once per cache miss. On any model failure (timeout, provider
// error, empty output) nothing is persisted and ErrGenerationFailed is
// returned; a present narrative is always a complete, usable artifact.
//
// Concurrent calls for the same (person, chapter) are serialized on a
// per-key lock; the second caller observes the first caller's result.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) (*store.ChapterNarrative, error) {
	unlock := s.locks.Lock(req.PersonID + "/" + req.ChapterID)
	defer unlock()

	if !req.Force {
		cached, err := s.store.GetNarrative(ctx, req.PersonID, req.ChapterID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	ch, pairs, err := Aggregate(ctx, s.store, req.PersonID, req.ChapterID)
	if err != nil {
		return nil, err
	}

	userPrompt, err := chapter.UserPrompt(chapter.PromptData{
		ChapterTitle:   ch.Title,
		StyleGuide:     req.StyleGuide,
		ContextSummary: req.ContextSummary,
		Pairs:          pairs,
	})
	if err != nil {
		return nil, fmt.Errorf("render chapter prompt: %w", err)
	}

	narrative, err := s.generate(ctx, req, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("chapter %s for %s: %w", req.ChapterID, req.PersonID, err)
	}

	n := store.ChapterNarrative{
		PersonID:       req.PersonID,
		ChapterID:      req.ChapterID,
		Narrative:      narrative,
		Summary:        DeriveSummary(narrative),
		StyleGuide:     req.StyleGuide,
		ContextSummary: req.ContextSummary,
		GeneratedAt:    time.Now().UTC(),
	}
	if err := s.store.PutNarrative(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("synthesized chapter narrative",
		"person", req.PersonID,
		"chapter", req.ChapterID,
		"narrative_len", len(n.Narrative),
		"forced", req.Force,
	)
	return &n, nil
}

// generate performs the single bounded language-model call. A call that
// times out or errors is not retried here; transport-level retries live in
// the provider clients.
func (s *Synthesizer) generate(ctx context.Context, req SynthesizeRequest, userPrompt string) (string, error) {
	llm, err := s.registry.GetLLM(s.provider)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	res, err := llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: chapter.SystemPrompt()},
			{Role: "user", Content: userPrompt},
		},
		Model:       s.model,
		Temperature: s.temp,
		MaxTokens:   s.maxTok,
		Timeout:     s.timeout,
	})
	s.calls.Record(ctx, res, err, llmcall.RecordOptions{
		PersonID:  req.PersonID,
		ChapterID: req.ChapterID,
		PromptKey: "chapter",
		Provider:  s.provider,
		Model:     s.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	narrative := strings.TrimSpace(res.Content)
	if narrative == "" {
		// Empty output is never treated as success.
		return "", fmt.Errorf("%w: model returned empty text", ErrGenerationFailed)
	}
	return narrative, nil
}
