package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements persistence on top of SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Pass ":memory:" for an in-memory database (tests).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(on)"
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newID generates a ULID. ulid.Make uses the package's locked entropy
// source, so IDs can be generated from concurrent request handlers.
func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		id           TEXT PRIMARY KEY,
		person_id    TEXT NOT NULL UNIQUE,
		name         TEXT,
		can_generate INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chapters (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		sort_order INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chapters_order ON chapters(sort_order);

	CREATE TABLE IF NOT EXISTS questions (
		id         TEXT PRIMARY KEY,
		chapter_id TEXT NOT NULL REFERENCES chapters(id),
		sort_order INTEGER NOT NULL,
		prompt     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_chapter ON questions(chapter_id, sort_order);

	CREATE TABLE IF NOT EXISTS answers (
		id          TEXT PRIMARY KEY,
		person_id   TEXT NOT NULL,
		question_id TEXT NOT NULL REFERENCES questions(id),
		chapter_id  TEXT NOT NULL REFERENCES chapters(id),
		text        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		UNIQUE(person_id, question_id)
	);
	CREATE INDEX IF NOT EXISTS idx_answers_person_chapter ON answers(person_id, chapter_id);

	CREATE TABLE IF NOT EXISTS chapter_narratives (
		id              TEXT PRIMARY KEY,
		person_id       TEXT NOT NULL,
		chapter_id      TEXT NOT NULL REFERENCES chapters(id),
		narrative       TEXT NOT NULL,
		summary         TEXT NOT NULL,
		style_guide     TEXT,
		context_summary TEXT,
		generated_at    TEXT NOT NULL,
		UNIQUE(person_id, chapter_id)
	);

	CREATE TABLE IF NOT EXISTS llm_calls (
		id            TEXT PRIMARY KEY,
		ts            TEXT NOT NULL,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		person_id     TEXT,
		chapter_id    TEXT,
		prompt_key    TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd      REAL NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL,
		error         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_llm_calls_person ON llm_calls(person_id, ts);

	CREATE TABLE IF NOT EXISTS books (
		id            TEXT PRIMARY KEY,
		person_id     TEXT NOT NULL UNIQUE,
		book_text     TEXT NOT NULL,
		style_guide   TEXT,
		chapters_used INTEGER NOT NULL DEFAULT 0,
		compiled_at   TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeFmt is the canonical timestamp encoding used in all tables.
const timeFmt = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFmt)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(timeFmt, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
