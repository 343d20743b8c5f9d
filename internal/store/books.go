package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetBook returns the compiled book for a person, or nil if none exists.
func (s *SQLiteStore) GetBook(ctx context.Context, personID string) (*Book, error) {
	var b Book
	var styleGuide sql.NullString
	var compiled string
	err := s.db.QueryRowContext(ctx,
		`SELECT person_id, book_text, style_guide, chapters_used, compiled_at
		 FROM books WHERE person_id = ?`, personID).
		Scan(&b.PersonID, &b.BookText, &styleGuide, &b.ChaptersUsed, &compiled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	b.StyleGuide = styleGuide.String
	b.CompiledAt = decodeTime(compiled)
	return &b, nil
}

// PutBook creates or overwrites the compiled book for a person.
// Compilation always rewrites the record: assembly is cheap and chapters
// may have changed since the last compile.
func (s *SQLiteStore) PutBook(ctx context.Context, b Book) error {
	if b.CompiledAt.IsZero() {
		b.CompiledAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (id, person_id, book_text, style_guide, chapters_used, compiled_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(person_id) DO UPDATE SET
		   book_text = excluded.book_text,
		   style_guide = excluded.style_guide,
		   chapters_used = excluded.chapters_used,
		   compiled_at = excluded.compiled_at`,
		s.newID(), b.PersonID, b.BookText, nullable(b.StyleGuide), b.ChaptersUsed,
		encodeTime(b.CompiledAt))
	if err != nil {
		return fmt.Errorf("put book: %w", err)
	}
	return nil
}
