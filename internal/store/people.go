package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetPerson returns a person by external person ID, or nil if unknown.
func (s *SQLiteStore) GetPerson(ctx context.Context, personID string) (*Person, error) {
	var p Person
	var name sql.NullString
	var canGenerate int
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT person_id, name, can_generate, created_at FROM people WHERE person_id = ?`,
		personID).Scan(&p.PersonID, &name, &canGenerate, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	p.Name = name.String
	p.CanGenerate = canGenerate != 0
	p.CreatedAt = decodeTime(created)
	return &p, nil
}

// EnsurePerson returns the person with the given ID, creating a record
// with generation disabled if none exists yet.
func (s *SQLiteStore) EnsurePerson(ctx context.Context, personID string) (*Person, error) {
	p, err := s.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO people (id, person_id, can_generate, created_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(person_id) DO NOTHING`,
		s.newID(), personID, encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("ensure person: %w", err)
	}
	return s.GetPerson(ctx, personID)
}

// SetCanGenerate grants or revokes a person's narrative-generation entitlement.
func (s *SQLiteStore) SetCanGenerate(ctx context.Context, personID string, allowed bool) error {
	if _, err := s.EnsurePerson(ctx, personID); err != nil {
		return err
	}
	val := 0
	if allowed {
		val = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE people SET can_generate = ? WHERE person_id = ?`, val, personID)
	if err != nil {
		return fmt.Errorf("set can_generate: %w", err)
	}
	return nil
}
