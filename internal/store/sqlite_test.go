package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	if err := s.SeedChapters(context.Background(), DefaultChapters(), DefaultQuestions()); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSeedChapters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	chapters, err := s.ListChapters(ctx)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 5 {
		t.Fatalf("got %d chapters, want 5", len(chapters))
	}
	for i := 1; i < len(chapters); i++ {
		if chapters[i].SortOrder <= chapters[i-1].SortOrder {
			t.Fatalf("chapters out of order at %d", i)
		}
	}

	// Seeding again is a no-op, not a duplicate insert.
	seed(t, s)
	chapters, err = s.ListChapters(ctx)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 5 {
		t.Fatalf("got %d chapters after reseed, want 5", len(chapters))
	}

	questions, err := s.ListQuestions(ctx, "childhood")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) == 0 {
		t.Fatal("expected seeded questions for childhood")
	}

	q, err := s.GetQuestion(ctx, "childhood-01")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q == nil || q.ChapterID != "childhood" {
		t.Fatalf("question = %+v", q)
	}

	missing, err := s.GetChapter(ctx, "nope")
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if missing != nil {
		t.Fatal("unknown chapter should be nil, not an error")
	}
}

func TestAnswerUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	a := Answer{
		PersonID:   "p1",
		QuestionID: "childhood-01",
		ChapterID:  "childhood",
		Text:       "I was born in Haifa in 1950.",
	}
	if err := s.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Text = "I was born in Haifa, near the port."
	if err := s.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	answers, err := s.ListAnswers(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1 after upsert", len(answers))
	}
	if answers[0].Text != "I was born in Haifa, near the port." {
		t.Fatalf("text = %q, want the replacement", answers[0].Text)
	}

	// Another person's answers are separate.
	a.PersonID = "p2"
	a.Text = "I grew up far from the sea."
	if err := s.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("other person upsert: %v", err)
	}
	answers, err = s.ListAnswers(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("p1 answers leaked: got %d", len(answers))
	}
}

func TestAnswerDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	deleted, err := s.DeleteAnswer(ctx, "p1", "childhood-01")
	if err != nil {
		t.Fatalf("delete absent answer: %v", err)
	}
	if deleted {
		t.Fatal("reported a deletion with nothing stored")
	}

	a := Answer{
		PersonID:   "p1",
		QuestionID: "childhood-01",
		ChapterID:  "childhood",
		Text:       "I was born in Haifa in 1950.",
	}
	if err := s.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	a.PersonID = "p2"
	if err := s.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("other person upsert: %v", err)
	}

	deleted, err = s.DeleteAnswer(ctx, "p1", "childhood-01")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("delete did not report the removed answer")
	}

	answers, err := s.ListAnswers(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("got %d answers after delete, want 0", len(answers))
	}

	// The other person's answer is untouched.
	answers, err = s.ListAnswers(ctx, "p2", "childhood")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("p2 lost answers: got %d, want 1", len(answers))
	}
}

func TestNarrativeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	// Absent narrative reads as nil.
	n, err := s.GetNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("get narrative: %v", err)
	}
	if n != nil {
		t.Fatal("expected nil for absent narrative")
	}

	put := ChapterNarrative{
		PersonID:       "p1",
		ChapterID:      "childhood",
		Narrative:      "I was born by the sea.",
		Summary:        "Born by the sea.",
		StyleGuide:     "warm",
		ContextSummary: "",
		GeneratedAt:    time.Now().UTC(),
	}
	if err := s.PutNarrative(ctx, put); err != nil {
		t.Fatalf("put narrative: %v", err)
	}

	got, err := s.GetNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("get narrative: %v", err)
	}
	if got == nil || got.Narrative != put.Narrative || got.Summary != put.Summary {
		t.Fatalf("got %+v", got)
	}
	if got.StyleGuide != "warm" {
		t.Fatalf("style guide = %q", got.StyleGuide)
	}

	// Overwrite replaces in place.
	put.Narrative = "A new telling of my first years."
	put.Summary = "New telling."
	if err := s.PutNarrative(ctx, put); err != nil {
		t.Fatalf("overwrite narrative: %v", err)
	}
	list, err := s.ListNarratives(ctx, "p1")
	if err != nil {
		t.Fatalf("list narratives: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d narratives, want 1 after overwrite", len(list))
	}
	if list[0].Narrative != "A new telling of my first years." {
		t.Fatalf("narrative = %q", list[0].Narrative)
	}
}

func TestBookRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.GetBook(ctx, "p1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if b != nil {
		t.Fatal("expected nil for absent book")
	}

	book := Book{
		PersonID:     "p1",
		BookText:     "## Childhood\n\nI was born by the sea.",
		StyleGuide:   "plain",
		ChaptersUsed: 1,
		CompiledAt:   time.Now().UTC(),
	}
	if err := s.PutBook(ctx, book); err != nil {
		t.Fatalf("put book: %v", err)
	}

	book.BookText = "## Childhood\n\nA second compile."
	book.ChaptersUsed = 5
	if err := s.PutBook(ctx, book); err != nil {
		t.Fatalf("overwrite book: %v", err)
	}

	got, err := s.GetBook(ctx, "p1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.BookText != "## Childhood\n\nA second compile." || got.ChaptersUsed != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestPersonEntitlement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil for unknown person")
	}

	created, err := s.EnsurePerson(ctx, "p1")
	if err != nil {
		t.Fatalf("ensure person: %v", err)
	}
	if created.CanGenerate {
		t.Fatal("new person must not be entitled by default")
	}

	// EnsurePerson is idempotent and keeps the flag.
	if err := s.SetCanGenerate(ctx, "p1", true); err != nil {
		t.Fatalf("set can_generate: %v", err)
	}
	again, err := s.EnsurePerson(ctx, "p1")
	if err != nil {
		t.Fatalf("ensure person again: %v", err)
	}
	if !again.CanGenerate {
		t.Fatal("EnsurePerson reset the entitlement flag")
	}

	if err := s.SetCanGenerate(ctx, "p1", false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	p, err = s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if p.CanGenerate {
		t.Fatal("revoke did not stick")
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		personID := fmt.Sprintf("p%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.PutNarrative(ctx, ChapterNarrative{
				PersonID:    personID,
				ChapterID:   "childhood",
				Narrative:   "Concurrent narrative for " + personID,
				Summary:     "summary",
				GeneratedAt: time.Now().UTC(),
			})
			errs <- s.UpsertAnswer(ctx, Answer{
				PersonID:   personID,
				QuestionID: "childhood-01",
				ChapterID:  "childhood",
				Text:       "answer from " + personID,
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent write: %v", err)
		}
	}

	for i := 0; i < workers; i++ {
		personID := fmt.Sprintf("p%d", i)
		n, err := s.GetNarrative(ctx, personID, "childhood")
		if err != nil {
			t.Fatalf("get narrative for %s: %v", personID, err)
		}
		if n == nil || n.Narrative != "Concurrent narrative for "+personID {
			t.Fatalf("narrative for %s lost or mixed up", personID)
		}
	}

	var distinct, total int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT id), COUNT(*) FROM answers`).Scan(&distinct, &total)
	if err != nil {
		t.Fatalf("count answer ids: %v", err)
	}
	if total != workers || distinct != total {
		t.Fatalf("got %d answers with %d distinct ids, want %d unique rows", total, distinct, workers)
	}
}
