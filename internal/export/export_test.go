package export

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const compiledText = "## Childhood\n\nI was born by the sea.\n\nThe harbor was my playground.\n\n## Career\n\nI repaired fishing boats for forty years."

func TestParseSections(t *testing.T) {
	sections := ParseSections(compiledText)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Title != "Childhood" || sections[1].Title != "Career" {
		t.Fatalf("unexpected titles: %q, %q", sections[0].Title, sections[1].Title)
	}
	if !strings.HasPrefix(sections[0].Text, "I was born by the sea.") {
		t.Fatalf("section text lost its opening: %q", sections[0].Text)
	}
	if !strings.HasSuffix(sections[0].Text, "The harbor was my playground.") {
		t.Fatalf("section text not trimmed: %q", sections[0].Text)
	}

	t.Run("preface before first heading", func(t *testing.T) {
		sections := ParseSections("A note to the reader.\n\n## Childhood\n\nEarly years.")
		if len(sections) != 2 {
			t.Fatalf("got %d sections, want 2", len(sections))
		}
		if sections[0].Title != "" || sections[0].Text != "A note to the reader." {
			t.Fatalf("unexpected preface section: %+v", sections[0])
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if sections := ParseSections(""); len(sections) != 0 {
			t.Fatalf("got %d sections from empty text, want 0", len(sections))
		}
	})
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "p1.md")
	book := Book{
		Title:    "My Life Story",
		Author:   "Miriam",
		Sections: ParseSections(compiledText),
	}
	if err := WriteMarkdown(path, book); err != nil {
		t.Fatalf("write markdown: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		"# My Life Story\n",
		"By Miriam\n",
		"## Childhood\n",
		"I was born by the sea.",
		"## Career\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestEpubBuilder(t *testing.T) {
	book := Book{
		Title:      "Fish & Chips",
		Author:     "Miriam",
		CompiledAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Sections:   ParseSections(compiledText),
	}

	var buf bytes.Buffer
	if err := NewEpubBuilder(book).WriteTo(&buf); err != nil {
		t.Fatalf("write epub: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open epub zip: %v", err)
	}

	if zr.File[0].Name != "mimetype" {
		t.Fatalf("first entry is %q, want mimetype", zr.File[0].Name)
	}
	if zr.File[0].Method != zip.Store {
		t.Fatal("mimetype must be stored uncompressed")
	}
	if got := readZipFile(t, zr, "mimetype"); got != "application/epub+zip" {
		t.Fatalf("mimetype content = %q", got)
	}

	opf := readZipFile(t, zr, "OEBPS/content.opf")
	for _, want := range []string{
		"<dc:title>Fish &amp; Chips</dc:title>",
		"<dc:creator>Miriam</dc:creator>",
		`<meta property="dcterms:modified">2026-04-01T09:00:00Z</meta>`,
		`href="text/ch_001.xhtml"`,
		`<itemref idref="ch_002"/>`,
	} {
		if !strings.Contains(opf, want) {
			t.Errorf("content.opf missing %q", want)
		}
	}

	nav := readZipFile(t, zr, "OEBPS/nav.xhtml")
	if !strings.Contains(nav, ">Childhood</a>") || !strings.Contains(nav, ">Career</a>") {
		t.Fatal("navigation does not list chapter titles")
	}

	ch := readZipFile(t, zr, "OEBPS/text/ch_001.xhtml")
	if !strings.Contains(ch, "<h1>Childhood</h1>") {
		t.Fatal("chapter missing heading")
	}
	if !strings.Contains(ch, "<p>I was born by the sea.</p>") ||
		!strings.Contains(ch, "<p>The harbor was my playground.</p>") {
		t.Fatal("chapter paragraphs not rendered")
	}

	if err := NewEpubBuilder(book).Build(filepath.Join(t.TempDir(), "out", "p1.epub")); err != nil {
		t.Fatalf("build to file: %v", err)
	}
}

func readZipFile(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	f, err := zr.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}
