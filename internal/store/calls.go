package store

import (
	"context"
	"fmt"
)

// RecordLLMCall appends one model-call record to the ledger.
func (s *SQLiteStore) RecordLLMCall(ctx context.Context, c LLMCall) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_calls
		 (id, ts, latency_ms, person_id, chapter_id, prompt_key, provider, model,
		  input_tokens, output_tokens, cost_usd, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, encodeTime(c.Timestamp), c.LatencyMs, c.PersonID, c.ChapterID,
		c.PromptKey, c.Provider, c.Model,
		c.InputTokens, c.OutputTokens, c.CostUSD, c.Success, nullable(c.Error))
	if err != nil {
		return fmt.Errorf("record llm call: %w", err)
	}
	return nil
}

// ListLLMCalls returns the most recent model calls, newest first. When
// personID is non-empty only that person's calls are returned.
func (s *SQLiteStore) ListLLMCalls(ctx context.Context, personID string, limit int) ([]LLMCall, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, ts, latency_ms, person_id, chapter_id, prompt_key, provider, model,
	                 input_tokens, output_tokens, cost_usd, success, COALESCE(error, '')
	          FROM llm_calls`
	args := []any{}
	if personID != "" {
		query += ` WHERE person_id = ?`
		args = append(args, personID)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list llm calls: %w", err)
	}
	defer rows.Close()

	var calls []LLMCall
	for rows.Next() {
		var c LLMCall
		var ts string
		if err := rows.Scan(&c.ID, &ts, &c.LatencyMs, &c.PersonID, &c.ChapterID,
			&c.PromptKey, &c.Provider, &c.Model,
			&c.InputTokens, &c.OutputTokens, &c.CostUSD, &c.Success, &c.Error); err != nil {
			return nil, err
		}
		c.Timestamp = decodeTime(ts)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// LLMCallSummary aggregates the call ledger into usage totals.
func (s *SQLiteStore) LLMCallSummary(ctx context.Context) (*CallSummary, error) {
	var sum CallSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost_usd), 0)
		 FROM llm_calls`).
		Scan(&sum.Calls, &sum.Failures, &sum.InputTokens, &sum.OutputTokens, &sum.CostUSD)
	if err != nil {
		return nil, fmt.Errorf("llm call summary: %w", err)
	}
	return &sum, nil
}
