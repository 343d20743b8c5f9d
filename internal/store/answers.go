package store

import (
	"context"
	"fmt"
	"time"
)

// UpsertAnswer creates or replaces a person's answer to a question.
// One answer exists per (person, question); repeated writes update the text.
func (s *SQLiteStore) UpsertAnswer(ctx context.Context, a Answer) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (id, person_id, question_id, chapter_id, text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(person_id, question_id) DO UPDATE SET
		   text = excluded.text,
		   updated_at = excluded.updated_at`,
		s.newID(), a.PersonID, a.QuestionID, a.ChapterID, a.Text,
		encodeTime(now), encodeTime(now))
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// DeleteAnswer removes a person's answer to a question. It reports whether
// an answer existed.
func (s *SQLiteStore) DeleteAnswer(ctx context.Context, personID, questionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM answers WHERE person_id = ? AND question_id = ?`,
		personID, questionID)
	if err != nil {
		return false, fmt.Errorf("delete answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete answer: %w", err)
	}
	return n > 0, nil
}

// ListAnswers returns a person's answers for a chapter, ordered by the
// question sort order of the chapter they belong to.
func (s *SQLiteStore) ListAnswers(ctx context.Context, personID, chapterID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.person_id, a.question_id, a.chapter_id, a.text, a.created_at, a.updated_at
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.person_id = ? AND a.chapter_id = ?
		 ORDER BY q.sort_order ASC`, personID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var a Answer
		var created, updated string
		if err := rows.Scan(&a.PersonID, &a.QuestionID, &a.ChapterID, &a.Text, &created, &updated); err != nil {
			return nil, err
		}
		a.CreatedAt = decodeTime(created)
		a.UpdatedAt = decodeTime(updated)
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
