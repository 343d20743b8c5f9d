package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/storyloom/storyloom/internal/entitlement"
	"github.com/storyloom/storyloom/internal/llmcall"
	"github.com/storyloom/storyloom/internal/providers"
	"github.com/storyloom/storyloom/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SeedChapters(context.Background(), store.DefaultChapters(), store.DefaultQuestions()); err != nil {
		t.Fatalf("seed chapters: %v", err)
	}
	return st
}

func newTestSynthesizer(t *testing.T, st *store.SQLiteStore, mock *providers.MockClient) *Synthesizer {
	t.Helper()
	reg := providers.NewRegistry()
	reg.RegisterLLM(providers.MockClientName, mock)
	return NewSynthesizer(SynthesizerConfig{
		Store:    st,
		Registry: reg,
		Provider: providers.MockClientName,
		Logger:   testLogger(),
	})
}

func TestSynthesizeCachesNarrative(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "I was born in a small town by the sea."
	synth := newTestSynthesizer(t, st, mock)
	ctx := context.Background()

	req := SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}
	first, err := synth.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("first synthesis: %v", err)
	}
	if first.Narrative != mock.ResponseText {
		t.Fatalf("narrative = %q, want model output", first.Narrative)
	}
	if first.Summary == "" {
		t.Fatal("expected derived summary to be stored")
	}

	second, err := synth.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("second synthesis: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("model called %d times, want 1", mock.CallCount())
	}
	if second.Narrative != first.Narrative {
		t.Fatal("cached narrative differs from the generated one")
	}
}

func TestSynthesizeForceRegenerates(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	calls := 0
	mock.ResponseFn = func(*providers.ChatRequest) string {
		calls++
		return fmt.Sprintf("Draft number %d of my childhood.", calls)
	}
	synth := newTestSynthesizer(t, st, mock)
	ctx := context.Background()

	req := SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}
	if _, err := synth.Synthesize(ctx, req); err != nil {
		t.Fatalf("first synthesis: %v", err)
	}

	req.Force = true
	regen, err := synth.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("forced synthesis: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("model called %d times, want 2", mock.CallCount())
	}
	if !strings.Contains(regen.Narrative, "number 2") {
		t.Fatalf("forced narrative = %q, want the regenerated draft", regen.Narrative)
	}

	cached, err := st.GetNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("get narrative: %v", err)
	}
	if cached.Narrative != regen.Narrative {
		t.Fatal("forced regeneration did not overwrite the cached narrative")
	}
}

func TestSynthesizeFailureLeavesNothingBehind(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	synth := newTestSynthesizer(t, st, mock)
	ctx := context.Background()

	_, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}

	n, err := st.GetNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("get narrative: %v", err)
	}
	if n != nil {
		t.Fatal("failed synthesis must not persist a narrative")
	}
}

func TestSynthesizeEmptyOutputIsFailure(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "   \n  "
	synth := newTestSynthesizer(t, st, mock)

	_, err := synth.Synthesize(context.Background(), SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed for empty output", err)
	}
}

func TestSynthesizeUnknownChapter(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	synth := newTestSynthesizer(t, st, mock)

	_, err := synth.Synthesize(context.Background(), SynthesizeRequest{PersonID: "p1", ChapterID: "no-such-chapter"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("unknown chapter must not reach the model")
	}
}

func TestSynthesizeWithZeroAnswers(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "This chapter is still waiting to be told."
	synth := newTestSynthesizer(t, st, mock)

	n, err := synth.Synthesize(context.Background(), SynthesizeRequest{PersonID: "silent", ChapterID: "career"})
	if err != nil {
		t.Fatalf("synthesis with no answers: %v", err)
	}
	if n.Narrative == "" {
		t.Fatal("expected a narrative even with zero answers")
	}

	// The model still sees the full interview structure.
	last := mock.LastRequest()
	if last == nil {
		t.Fatal("no request recorded")
	}
	user := last.Messages[len(last.Messages)-1].Content
	if !strings.Contains(user, "What was your first job?") {
		t.Fatalf("prompt missing unanswered question:\n%s", user)
	}
}

func TestSynthesizePromptCarriesAnswersAndContext(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	err := st.UpsertAnswer(ctx, store.Answer{
		PersonID:   "haifa-p",
		QuestionID: "childhood-01",
		ChapterID:  "childhood",
		Text:       "I was born in Haifa in 1950, near the port.",
	})
	if err != nil {
		t.Fatalf("upsert answer: %v", err)
	}

	mock := providers.NewMockClient()
	mock.ResponseText = "I was born in Haifa in 1950, near the port, and the sea was my first horizon."
	synth := newTestSynthesizer(t, st, mock)

	_, err = synth.Synthesize(ctx, SynthesizeRequest{
		PersonID:       "haifa-p",
		ChapterID:      "childhood",
		StyleGuide:     "warm, nostalgic",
		ContextSummary: "Earlier: the port city years.",
	})
	if err != nil {
		t.Fatalf("synthesis: %v", err)
	}

	user := mock.LastRequest().Messages[1].Content
	for _, want := range []string{
		"Chapter: Childhood",
		"I was born in Haifa in 1950",
		"warm, nostalgic",
		"Earlier: the port city years.",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestSynthesizeSerializesPerKey(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "One shared childhood narrative."
	synth := newTestSynthesizer(t, st, mock)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*store.ChapterNarrative, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"})
			if err != nil {
				t.Errorf("concurrent synthesis: %v", err)
				return
			}
			results[i] = n
		}(i)
	}
	wg.Wait()

	if mock.CallCount() != 1 {
		t.Fatalf("model called %d times for one key, want 1", mock.CallCount())
	}
	for i, n := range results {
		if n == nil || n.Narrative != results[0].Narrative {
			t.Fatalf("result %d diverged", i)
		}
	}
}

func TestCompileOrdersChaptersAndThreadsContext(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseFn = func(req *providers.ChatRequest) string {
		user := req.Messages[1].Content
		title := strings.TrimSpace(strings.SplitN(strings.SplitN(user, "Chapter: ", 2)[1], "\n", 2)[0])
		return fmt.Sprintf("The story of my %s.", strings.ToLower(title))
	}
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	ctx := context.Background()

	book, err := compiler.Compile(ctx, "p1", "")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if book.ChaptersUsed != 5 {
		t.Fatalf("chapters used = %d, want 5", book.ChaptersUsed)
	}

	// Sections appear in canonical chapter order.
	var prev int
	for _, title := range []string{"Childhood", "Youth and School Years", "Family and Relationships", "Work and Career", "Reflections and Lessons"} {
		idx := strings.Index(book.BookText, "## "+title)
		if idx < 0 {
			t.Fatalf("book missing section %q", title)
		}
		if idx < prev {
			t.Fatalf("section %q out of order", title)
		}
		prev = idx
	}

	// Each later chapter's prompt carries the earlier chapters' summaries.
	reqs := mock.Requests()
	if len(reqs) != 5 {
		t.Fatalf("model called %d times, want 5", len(reqs))
	}
	secondUser := reqs[1].Messages[1].Content
	if !strings.Contains(secondUser, "Childhood: The story of my childhood.") {
		t.Fatalf("second chapter prompt missing first chapter summary:\n%s", secondUser)
	}
	lastUser := reqs[4].Messages[1].Content
	for _, want := range []string{"Childhood:", "Youth and School Years:", "Family and Relationships:", "Work and Career:"} {
		if !strings.Contains(lastUser, want) {
			t.Errorf("final chapter prompt missing %q", want)
		}
	}

	stored, err := st.GetBook(ctx, "p1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if stored == nil || stored.BookText != book.BookText {
		t.Fatal("compiled book was not persisted")
	}
}

func TestCompileReusesCachedNarratives(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "A chapter of my life."
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	ctx := context.Background()

	if _, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}); err != nil {
		t.Fatalf("pre-synthesize: %v", err)
	}

	if _, err := compiler.Compile(ctx, "p1", ""); err != nil {
		t.Fatalf("compile: %v", err)
	}
	// 1 earlier call + 4 remaining chapters.
	if mock.CallCount() != 5 {
		t.Fatalf("model called %d times, want 5 (cached chapter reused)", mock.CallCount())
	}
}

func TestCompilePartialFailurePersistsNoBook(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "A chapter of my life."
	mock.FailAfter = 1
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	ctx := context.Background()

	_, err := compiler.Compile(ctx, "p1", "")
	if !errors.Is(err, ErrPartialGeneration) {
		t.Fatalf("err = %v, want ErrPartialGeneration", err)
	}

	book, err := st.GetBook(ctx, "p1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if book != nil {
		t.Fatal("partial compile must not persist a book")
	}

	// The chapter that succeeded stays cached for the next attempt.
	n, err := st.GetNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("get narrative: %v", err)
	}
	if n == nil {
		t.Fatal("successful chapter narrative should remain cached")
	}
}

func TestCompileOverwritesPreviousBook(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	calls := 0
	mock.ResponseFn = func(*providers.ChatRequest) string {
		calls++
		return fmt.Sprintf("Chapter text, run for call %d.", calls)
	}
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	ctx := context.Background()

	first, err := compiler.Compile(ctx, "p1", "")
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := compiler.Compile(ctx, "p1", "plain")
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}

	// Narratives are cached, so recompiling reassembles without new calls.
	if calls != 5 {
		t.Fatalf("model called %d times across both compiles, want 5", calls)
	}
	if second.BookText != first.BookText {
		t.Fatal("recompile from the same cache should yield the same text")
	}
	stored, err := st.GetBook(ctx, "p1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if stored.StyleGuide != "plain" {
		t.Fatalf("stored style guide = %q, want the latest compile's", stored.StyleGuide)
	}
}

func TestServiceForbidsUnentitledGeneration(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "Should never be generated."
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	svc := NewService(st, synth, compiler, entitlement.Static(false))
	ctx := context.Background()

	_, err := svc.SynthesizeChapter(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("synthesize err = %v, want ErrForbidden", err)
	}
	_, err = svc.CompileBook(ctx, "p1", "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("compile err = %v, want ErrForbidden", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("forbidden person must never reach the model")
	}
}

func TestServiceEntitlementFromStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.EnsurePerson(ctx, "p1"); err != nil {
		t.Fatalf("ensure person: %v", err)
	}

	mock := providers.NewMockClient()
	mock.ResponseText = "An entitled narrative."
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	svc := NewService(st, synth, compiler, entitlement.NewStoreProvider(st))

	// Entitlement defaults to off.
	if _, err := svc.SynthesizeChapter(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden before the flag is set", err)
	}

	if err := st.SetCanGenerate(ctx, "p1", true); err != nil {
		t.Fatalf("set can_generate: %v", err)
	}
	if _, err := svc.SynthesizeChapter(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}); err != nil {
		t.Fatalf("entitled synthesis: %v", err)
	}
}

func TestServiceCachedReadsNeedNoEntitlement(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "Cached text."
	synth := newTestSynthesizer(t, st, mock)
	compiler := NewCompiler(st, synth, testLogger())
	ctx := context.Background()

	if _, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}); err != nil {
		t.Fatalf("pre-synthesize: %v", err)
	}

	svc := NewService(st, synth, compiler, entitlement.Static(false))
	n, err := svc.GetChapterNarrative(ctx, "p1", "childhood")
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if n == nil || n.Narrative != "Cached text." {
		t.Fatal("cached read should return the stored narrative")
	}

	if _, err := svc.GetChapterNarrative(ctx, "p1", "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown chapter", err)
	}

	missing, err := svc.GetChapterNarrative(ctx, "p1", "career")
	if err != nil {
		t.Fatalf("absent narrative read: %v", err)
	}
	if missing != nil {
		t.Fatal("absent narrative should read as nil, not as an error")
	}
}

func TestDeriveSummary(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		got := DeriveSummary("I was born in Haifa.\n\nThe sea was close.")
		if got != "I was born in Haifa. The sea was close." {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("long text keeps opening and closing sentences", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("My first years were spent by the harbor. ")
		for i := 0; i < 40; i++ {
			fmt.Fprintf(&sb, "Filler sentence number %d about everyday life. ", i)
		}
		sb.WriteString("In the end the harbor never left me.")

		got := DeriveSummary(sb.String())
		if len(got) > maxSummaryLen {
			t.Fatalf("summary length %d exceeds cap %d", len(got), maxSummaryLen)
		}
		if !strings.HasPrefix(got, "My first years were spent by the harbor.") {
			t.Fatalf("summary lost the opening sentence: %q", got)
		}
		if !strings.HasSuffix(got, "In the end the harbor never left me.") {
			t.Fatalf("summary lost the closing sentence: %q", got)
		}
	})

	t.Run("multibyte text truncates on a rune boundary", func(t *testing.T) {
		// 7-byte prefix puts the byte cap in the middle of a two-byte rune.
		text := "חיי " + strings.Repeat("ארוכה", 120)

		got := DeriveSummary(text)
		if !utf8.ValidString(got) {
			t.Fatalf("summary contains a split rune: %q", got)
		}
		if len(got) > maxSummaryLen {
			t.Fatalf("summary length %d exceeds cap %d", len(got), maxSummaryLen)
		}
		if !strings.HasPrefix(text, got) {
			t.Fatalf("summary is not a prefix of the input: %q", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		text := "A life of small rooms and large windows. Nothing was wasted."
		if DeriveSummary(text) != DeriveSummary(text) {
			t.Fatal("summary derivation must be deterministic")
		}
	})
}

func TestSynthesizeRecordsLedger(t *testing.T) {
	st := newTestStore(t)
	mock := providers.NewMockClient()
	mock.ResponseText = "I grew up between two languages."
	reg := providers.NewRegistry()
	reg.RegisterLLM(providers.MockClientName, mock)
	synth := NewSynthesizer(SynthesizerConfig{
		Store:    st,
		Registry: reg,
		Provider: providers.MockClientName,
		Model:    "mock-model",
		Calls:    llmcall.NewRecorder(st, testLogger()),
		Logger:   testLogger(),
	})
	ctx := context.Background()

	if _, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "childhood"}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	mock.ShouldFail = true
	if _, err := synth.Synthesize(ctx, SynthesizeRequest{PersonID: "p1", ChapterID: "career"}); err == nil {
		t.Fatal("expected synthesis failure")
	}

	calls, err := st.ListLLMCalls(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d ledger rows, want 2", len(calls))
	}
	var ok, failed int
	for _, c := range calls {
		if c.Provider != providers.MockClientName || c.Model != "mock-model" {
			t.Fatalf("unexpected provider/model: %s/%s", c.Provider, c.Model)
		}
		if c.PromptKey != "chapter" {
			t.Fatalf("unexpected prompt key %q", c.PromptKey)
		}
		if c.Success {
			ok++
		} else {
			failed++
			if c.Error == "" {
				t.Fatal("failed call recorded without an error message")
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Fatalf("got %d ok / %d failed, want 1 / 1", ok, failed)
	}

	sum, err := st.LLMCallSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Calls != 2 || sum.Failures != 1 {
		t.Fatalf("summary %d/%d, want 2 calls with 1 failure", sum.Calls, sum.Failures)
	}
}
