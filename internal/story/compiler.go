package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/storyloom/storyloom/internal/store"
)

// Compiler assembles a person's full life-story book from chapter narratives.
type Compiler struct {
	store  Store
	synth  *Synthesizer
	logger *slog.Logger
}

// NewCompiler creates a Compiler that uses synth for any chapter that has
// no cached narrative yet.
func NewCompiler(st Store, synth *Synthesizer, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{store: st, synth: synth, logger: logger}
}

// Compile builds and persists the compiled book for a person.
//
// Chapters are processed strictly in canonical order because each chapter's
// prompt depends on the previous chapters' derived summaries; the rolling
// summary is an explicit accumulator threaded call-to-call, never hidden
// state. Cached narratives are used as-is — compilation never re-runs the
// model for a chapter that already has one — but the book record itself is
// always reassembled and overwritten, since assembly is cheap and chapters
// may have changed since the last compile.
//
// If any chapter's synthesis fails, the whole compile fails with
// ErrPartialGeneration and no book is persisted; previously cached chapter
// narratives are left untouched.
func (c *Compiler) Compile(ctx context.Context, personID, styleGuide string) (*store.Book, error) {
	chapters, err := c.store.ListChapters(ctx)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters seeded: %w", ErrNotFound)
	}

	var sections []string
	var contextParts []string

	for _, ch := range chapters {
		n, err := c.store.GetNarrative(ctx, personID, ch.ID)
		if err != nil {
			return nil, err
		}
		if n == nil {
			n, err = c.synth.Synthesize(ctx, SynthesizeRequest{
				PersonID:       personID,
				ChapterID:      ch.ID,
				StyleGuide:     styleGuide,
				ContextSummary: strings.Join(contextParts, "\n\n"),
			})
			if err != nil {
				return nil, fmt.Errorf("%w: chapter %s: %v", ErrPartialGeneration, ch.ID, err)
			}
		}

		contextParts = append(contextParts, fmt.Sprintf("%s: %s", ch.Title, n.Summary))
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", ch.Title, n.Narrative))
	}

	book := store.Book{
		PersonID:     personID,
		BookText:     strings.Join(sections, "\n\n"),
		StyleGuide:   styleGuide,
		ChaptersUsed: len(sections),
		CompiledAt:   time.Now().UTC(),
	}
	if err := c.store.PutBook(ctx, book); err != nil {
		return nil, err
	}

	c.logger.Info("compiled book",
		"person", personID,
		"chapters", book.ChaptersUsed,
		"book_len", len(book.BookText),
	)
	return &book, nil
}
