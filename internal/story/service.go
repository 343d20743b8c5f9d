package story

import (
	"context"
	"fmt"

	"github.com/storyloom/storyloom/internal/entitlement"
	"github.com/storyloom/storyloom/internal/store"
)

// Service is the gated front door for narrative generation. Every operation
// that can trigger a model call checks entitlement first; reads of cached
// material never do.
type Service struct {
	store    Store
	synth    *Synthesizer
	compiler *Compiler
	ent      entitlement.Provider
}

func NewService(st Store, synth *Synthesizer, compiler *Compiler, ent entitlement.Provider) *Service {
	return &Service{store: st, synth: synth, compiler: compiler, ent: ent}
}

func (s *Service) authorize(ctx context.Context, personID string) error {
	ok, err := s.ent.CanGenerate(ctx, personID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("person %s may not generate narratives: %w", personID, ErrForbidden)
	}
	return nil
}

// SynthesizeChapter generates (or returns the cached) narrative for one
// chapter. The entitlement check runs before any cache lookup or model call,
// so an unentitled person gets ErrForbidden even for a fully cached chapter.
func (s *Service) SynthesizeChapter(ctx context.Context, req SynthesizeRequest) (*store.ChapterNarrative, error) {
	if err := s.authorize(ctx, req.PersonID); err != nil {
		return nil, err
	}
	return s.synth.Synthesize(ctx, req)
}

// GetChapterNarrative returns the cached narrative for a chapter, or nil
// when none has been generated. It never triggers generation and needs no
// entitlement.
func (s *Service) GetChapterNarrative(ctx context.Context, personID, chapterID string) (*store.ChapterNarrative, error) {
	ch, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
	}
	return s.store.GetNarrative(ctx, personID, chapterID)
}

// CompileBook assembles the person's full book, synthesizing any chapters
// that are not cached yet.
func (s *Service) CompileBook(ctx context.Context, personID, styleGuide string) (*store.Book, error) {
	if err := s.authorize(ctx, personID); err != nil {
		return nil, err
	}
	return s.compiler.Compile(ctx, personID, styleGuide)
}

// GetBook returns the most recently compiled book, or nil when the person
// has never compiled one.
func (s *Service) GetBook(ctx context.Context, personID string) (*store.Book, error) {
	return s.store.GetBook(ctx, personID)
}
