// Package export writes compiled life-story books to files on disk.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Book is a compiled life story ready for export.
type Book struct {
	Title      string
	Author     string
	Language   string // ISO 639-1 code, defaults to "en"
	CompiledAt time.Time
	Sections   []Section
}

// Section is one chapter of the compiled book.
type Section struct {
	Title string
	Text  string
}

// ParseSections splits compiled book text into chapter sections. Chapters
// are delimited by "## Title" headings; any text before the first heading
// becomes an untitled preface section.
func ParseSections(bookText string) []Section {
	var sections []Section
	var current *Section

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(current.Text)
		if current.Title != "" || current.Text != "" {
			sections = append(sections, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(bookText, "\n") {
		if title, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = &Section{Title: strings.TrimSpace(title)}
			continue
		}
		if current == nil {
			current = &Section{}
		}
		current.Text += line + "\n"
	}
	flush()
	return sections
}

// WriteMarkdown writes the book as a markdown document at path.
func WriteMarkdown(path string, b Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	if b.Author != "" {
		fmt.Fprintf(&sb, "By %s\n\n", b.Author)
	}
	for _, s := range b.Sections {
		if s.Title != "" {
			fmt.Fprintf(&sb, "## %s\n\n", s.Title)
		}
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")
	}

	if err := os.WriteFile(path, []byte(strings.TrimRight(sb.String(), "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown export: %w", err)
	}
	return nil
}
