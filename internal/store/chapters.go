package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListChapters returns all chapters in canonical order.
func (s *SQLiteStore) ListChapters(ctx context.Context) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, sort_order FROM chapters ORDER BY sort_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.Title, &c.SortOrder); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// GetChapter returns a chapter by ID, or nil if it does not exist.
func (s *SQLiteStore) GetChapter(ctx context.Context, chapterID string) (*Chapter, error) {
	var c Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, sort_order FROM chapters WHERE id = ?`, chapterID).
		Scan(&c.ID, &c.Title, &c.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return &c, nil
}

// GetQuestion returns a question by ID, or nil if it does not exist.
func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID string) (*Question, error) {
	var q Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chapter_id, sort_order, prompt FROM questions WHERE id = ?`, questionID).
		Scan(&q.ID, &q.ChapterID, &q.SortOrder, &q.Prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// ListQuestions returns all questions for a chapter ordered by sort order.
func (s *SQLiteStore) ListQuestions(ctx context.Context, chapterID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chapter_id, sort_order, prompt FROM questions
		 WHERE chapter_id = ? ORDER BY sort_order ASC`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.SortOrder, &q.Prompt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SeedChapters inserts chapters and questions if the chapters table is empty.
// Seeding runs once; chapters are immutable afterwards.
func (s *SQLiteStore) SeedChapters(ctx context.Context, chapters []Chapter, questions []Question) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chapters`).Scan(&count); err != nil {
		return fmt.Errorf("count chapters: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range chapters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chapters (id, title, sort_order) VALUES (?, ?, ?)`,
			c.ID, c.Title, c.SortOrder); err != nil {
			return fmt.Errorf("seed chapter %s: %w", c.ID, err)
		}
	}
	for _, q := range questions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, chapter_id, sort_order, prompt) VALUES (?, ?, ?, ?)`,
			q.ID, q.ChapterID, q.SortOrder, q.Prompt); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}
