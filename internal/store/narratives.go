package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetNarrative returns the cached narrative for (person, chapter), or nil
// if none has been generated yet. Absence is not an error: the cache gate
// relies on the single atomic read this provides.
func (s *SQLiteStore) GetNarrative(ctx context.Context, personID, chapterID string) (*ChapterNarrative, error) {
	var n ChapterNarrative
	var styleGuide, contextSummary sql.NullString
	var generated string
	err := s.db.QueryRowContext(ctx,
		`SELECT person_id, chapter_id, narrative, summary, style_guide, context_summary, generated_at
		 FROM chapter_narratives
		 WHERE person_id = ? AND chapter_id = ?`, personID, chapterID).
		Scan(&n.PersonID, &n.ChapterID, &n.Narrative, &n.Summary, &styleGuide, &contextSummary, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get narrative: %w", err)
	}
	n.StyleGuide = styleGuide.String
	n.ContextSummary = contextSummary.String
	n.GeneratedAt = decodeTime(generated)
	return &n, nil
}

// PutNarrative creates or overwrites the narrative for (person, chapter).
// Only the synthesizer writes narratives; a stored narrative is always a
// complete, usable artifact.
func (s *SQLiteStore) PutNarrative(ctx context.Context, n ChapterNarrative) error {
	if n.GeneratedAt.IsZero() {
		n.GeneratedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapter_narratives
		   (id, person_id, chapter_id, narrative, summary, style_guide, context_summary, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(person_id, chapter_id) DO UPDATE SET
		   narrative = excluded.narrative,
		   summary = excluded.summary,
		   style_guide = excluded.style_guide,
		   context_summary = excluded.context_summary,
		   generated_at = excluded.generated_at`,
		s.newID(), n.PersonID, n.ChapterID, n.Narrative, n.Summary,
		nullable(n.StyleGuide), nullable(n.ContextSummary), encodeTime(n.GeneratedAt))
	if err != nil {
		return fmt.Errorf("put narrative: %w", err)
	}
	return nil
}

// ListNarratives returns all of a person's narratives in canonical chapter order.
func (s *SQLiteStore) ListNarratives(ctx context.Context, personID string) ([]ChapterNarrative, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.person_id, n.chapter_id, n.narrative, n.summary, n.style_guide, n.context_summary, n.generated_at
		 FROM chapter_narratives n
		 JOIN chapters c ON c.id = n.chapter_id
		 WHERE n.person_id = ?
		 ORDER BY c.sort_order ASC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list narratives: %w", err)
	}
	defer rows.Close()

	var narratives []ChapterNarrative
	for rows.Next() {
		var n ChapterNarrative
		var styleGuide, contextSummary sql.NullString
		var generated string
		if err := rows.Scan(&n.PersonID, &n.ChapterID, &n.Narrative, &n.Summary, &styleGuide, &contextSummary, &generated); err != nil {
			return nil, err
		}
		n.StyleGuide = styleGuide.String
		n.ContextSummary = contextSummary.String
		n.GeneratedAt = decodeTime(generated)
		narratives = append(narratives, n)
	}
	return narratives, rows.Err()
}
