// Package store provides SQLite-backed persistence for people, chapters,
// questions, answers, chapter narratives and compiled books.
package store

import "time"

// Person is someone whose life story is being collected.
type Person struct {
	PersonID    string    `json:"person_id"`
	Name        string    `json:"name,omitempty"`
	CanGenerate bool      `json:"can_generate"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chapter is an ordered section of the life-story questionnaire.
// Chapters are seeded once and immutable afterwards; their sort order
// defines both the interview structure and the book compilation order.
type Chapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
}

// Question is a single interview prompt within a chapter.
type Question struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	SortOrder int    `json:"sort_order"`
	Prompt    string `json:"prompt"`
}

// Answer is a person's answer to one question. At most one answer exists
// per (person, question); writes are upserts.
type Answer struct {
	PersonID   string    `json:"person_id"`
	QuestionID string    `json:"question_id"`
	ChapterID  string    `json:"chapter_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChapterNarrative is the generated first-person prose for one chapter,
// plus the compact context summary carried forward to later chapters.
// At most one exists per (person, chapter); it is the unit of idempotency.
type ChapterNarrative struct {
	PersonID       string    `json:"person_id"`
	ChapterID      string    `json:"chapter_id"`
	Narrative      string    `json:"narrative"`
	Summary        string    `json:"summary"`
	StyleGuide     string    `json:"style_guide,omitempty"`
	ContextSummary string    `json:"context_summary,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Book is the compiled full life story for one person. It is a derived,
// recomputable artifact: compilation always overwrites it.
type Book struct {
	PersonID     string    `json:"person_id"`
	BookText     string    `json:"book_text"`
	StyleGuide   string    `json:"style_guide,omitempty"`
	ChaptersUsed int       `json:"chapters_used"`
	CompiledAt   time.Time `json:"compiled_at"`
}

// LLMCall is one recorded model call, kept for traceability and cost
// accounting. Generated narratives live in chapter_narratives; the ledger
// only carries usage metadata.
type LLMCall struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	LatencyMs    int       `json:"latency_ms"`
	PersonID     string    `json:"person_id,omitempty"`
	ChapterID    string    `json:"chapter_id,omitempty"`
	PromptKey    string    `json:"prompt_key"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// CallSummary aggregates the model-call ledger.
type CallSummary struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}
