// Package story implements the narrative synthesis and compilation pipeline:
// it turns a person's interview answers into per-chapter first-person prose
// and stitches all chapters into a single life-story book.
package story

import "errors"

var (
	// ErrNotFound indicates a referenced chapter or person does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the person lacks the narrative-generation
	// entitlement. Nothing is invoked and nothing is persisted.
	ErrForbidden = errors.New("generation not permitted")

	// ErrGenerationFailed indicates the language-model call timed out,
	// errored, or returned empty text. Nothing is persisted and the same
	// request is safe to retry.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrPartialGeneration indicates one chapter failed during book
	// compilation. The whole compile fails and no partial book is persisted.
	ErrPartialGeneration = errors.New("book compilation failed on a chapter")
)
