package export

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EpubBuilder creates ePub 3.0 files from a compiled book.
type EpubBuilder struct {
	book Book
	id   string
}

// NewEpubBuilder creates a builder for the given book.
func NewEpubBuilder(b Book) *EpubBuilder {
	if b.Language == "" {
		b.Language = "en"
	}
	if b.CompiledAt.IsZero() {
		b.CompiledAt = time.Now().UTC()
	}
	return &EpubBuilder{
		book: b,
		id:   uuid.New().String(),
	}
}

// Build generates the epub and writes it to the specified path.
func (b *EpubBuilder) Build(outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	return b.WriteTo(f)
}

// WriteTo writes the epub to a writer.
func (b *EpubBuilder) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	// mimetype must be the first entry and uncompressed
	if err := b.writeMimetype(zw); err != nil {
		return err
	}
	if err := b.writeContainer(zw); err != nil {
		return err
	}
	if err := writeEntry(zw, "OEBPS/content.opf", b.generatePackage()); err != nil {
		return err
	}
	if err := writeEntry(zw, "OEBPS/nav.xhtml", b.generateNavigation()); err != nil {
		return err
	}
	if err := writeEntry(zw, "OEBPS/styles/style.css", epubStylesheet); err != nil {
		return err
	}
	for i, s := range b.book.Sections {
		path := fmt.Sprintf("OEBPS/text/%s.xhtml", chapterID(i))
		if err := writeEntry(zw, path, b.generateChapterXHTML(s)); err != nil {
			return fmt.Errorf("failed to write chapter %d: %w", i+1, err)
		}
	}
	return nil
}

func (b *EpubBuilder) writeMimetype(zw *zip.Writer) error {
	header := &zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create mimetype: %w", err)
	}
	_, err = w.Write([]byte("application/epub+zip"))
	return err
}

func (b *EpubBuilder) writeContainer(zw *zip.Writer) error {
	return writeEntry(zw, "META-INF/container.xml", `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)
}

func writeEntry(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	_, err = w.Write([]byte(content))
	return err
}

// generatePackage creates the content.opf package document.
func (b *EpubBuilder) generatePackage() string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&sb, "    <dc:identifier id=\"pub-id\">urn:uuid:%s</dc:identifier>\n", b.id)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", html.EscapeString(b.book.Title))
	if b.book.Author != "" {
		fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(b.book.Author))
	}
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", b.book.Language)
	fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n",
		b.book.CompiledAt.UTC().Format("2006-01-02T15:04:05Z"))
	sb.WriteString("  </metadata>\n  <manifest>\n")
	sb.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="css" href="styles/style.css" media-type="text/css"/>
`)
	for i := range b.book.Sections {
		id := chapterID(i)
		fmt.Fprintf(&sb, "    <item id=%q href=\"text/%s.xhtml\" media-type=\"application/xhtml+xml\"/>\n", id, id)
	}
	sb.WriteString("  </manifest>\n  <spine>\n")
	for i := range b.book.Sections {
		fmt.Fprintf(&sb, "    <itemref idref=%q/>\n", chapterID(i))
	}
	sb.WriteString("  </spine>\n</package>\n")
	return sb.String()
}

// generateNavigation creates the nav.xhtml navigation document.
func (b *EpubBuilder) generateNavigation() string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>Contents</title>
  <link rel="stylesheet" type="text/css" href="styles/style.css"/>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Contents</h1>
    <ol>
`)
	for i, s := range b.book.Sections {
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		fmt.Fprintf(&sb, "      <li><a href=\"text/%s.xhtml\">%s</a></li>\n",
			chapterID(i), html.EscapeString(title))
	}
	sb.WriteString(`    </ol>
  </nav>
</body>
</html>
`)
	return sb.String()
}

// generateChapterXHTML converts one narrative section to XHTML. Narrative
// text is plain prose; blank lines separate paragraphs.
func (b *EpubBuilder) generateChapterXHTML(s Section) string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
`)
	fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(s.Title))
	sb.WriteString(`  <link rel="stylesheet" type="text/css" href="../styles/style.css"/>
</head>
<body>
`)
	if s.Title != "" {
		fmt.Fprintf(&sb, "  <h1>%s</h1>\n", html.EscapeString(s.Title))
	}
	for _, para := range strings.Split(s.Text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		fmt.Fprintf(&sb, "  <p>%s</p>\n", html.EscapeString(para))
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func chapterID(i int) string {
	return fmt.Sprintf("ch_%03d", i+1)
}

const epubStylesheet = `body {
  font-family: serif;
  line-height: 1.5;
  margin: 1em;
}
h1 {
  text-align: center;
  margin-bottom: 1.5em;
}
p {
  text-indent: 1.5em;
  margin: 0 0 0.3em 0;
}
`
