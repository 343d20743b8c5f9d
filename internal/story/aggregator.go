package story

import (
	"context"
	"fmt"

	"github.com/storyloom/storyloom/internal/prompts/chapter"
	"github.com/storyloom/storyloom/internal/store"
)

// Store is the persistence surface the pipeline needs.
// *store.SQLiteStore satisfies it.
type Store interface {
	GetChapter(ctx context.Context, chapterID string) (*store.Chapter, error)
	ListChapters(ctx context.Context) ([]store.Chapter, error)
	ListQuestions(ctx context.Context, chapterID string) ([]store.Question, error)
	ListAnswers(ctx context.Context, personID, chapterID string) ([]store.Answer, error)
	GetNarrative(ctx context.Context, personID, chapterID string) (*store.ChapterNarrative, error)
	PutNarrative(ctx context.Context, n store.ChapterNarrative) error
	GetBook(ctx context.Context, personID string) (*store.Book, error)
	PutBook(ctx context.Context, b store.Book) error
}

// Aggregate collects the question/answer pairs for one chapter, ordered by
// question order. Questions without a stored answer are included with an
// empty answer text so the model sees the full interview structure.
// It fails with ErrNotFound only when the chapter itself does not exist;
// missing answers are never an error.
func Aggregate(ctx context.Context, st Store, personID, chapterID string) (*store.Chapter, []chapter.QA, error) {
	ch, err := st.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil {
		return nil, nil, fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
	}

	questions, err := st.ListQuestions(ctx, chapterID)
	if err != nil {
		return nil, nil, err
	}

	answers, err := st.ListAnswers(ctx, personID, chapterID)
	if err != nil {
		return nil, nil, err
	}
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Text
	}

	pairs := make([]chapter.QA, 0, len(questions))
	for _, q := range questions {
		pairs = append(pairs, chapter.QA{
			Question: q.Prompt,
			Answer:   byQuestion[q.ID],
		})
	}
	return ch, pairs, nil
}
