package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestForPath_SelectsByExtension(t *testing.T) {
	tests := []struct {
		path   string
		format any
	}{
		{"notes.txt", &TextExtractor{}},
		{"readme.md", &MarkdownExtractor{}},
		{"README.MD", &MarkdownExtractor{}},
		{"page.html", &HTMLExtractor{}},
		{"page.htm", &HTMLExtractor{}},
		{"report.docx", &DocxExtractor{}},
		{"paper.pdf", &PDFExtractor{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, err := ForPath(tt.path)
			require.NoError(t, err)
			assert.IsType(t, tt.format, e)
		})
	}
}

func TestForPath_RejectsUnsupported(t *testing.T) {
	_, err := ForPath("binary.exe")
	assert.Error(t, err)

	_, err = ForPath("noextension")
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("doc.md"))
	assert.False(t, Supported("doc.csv"))
}

func TestTextExtractor(t *testing.T) {
	path := writeTemp(t, "plain.txt", "hello\nworld\n")

	doc, err := File(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, "hello\nworld\n", doc.Text)
	assert.Nil(t, doc.PageTexts)
}

func TestTextExtractor_MissingFile(t *testing.T) {
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestMarkdownExtractor_CollectsHeadings(t *testing.T) {
	// Given: a markdown file with nested headings
	content := "# Title\n\nIntro text.\n\n## Install\n\nRun the installer.\n\n## Usage\n\nCall it.\n"
	path := writeTemp(t, "guide.md", content)

	// When: extracted
	doc, err := File(context.Background(), path)

	// Then: raw text is preserved and headings appear in order
	require.NoError(t, err)
	assert.Equal(t, "markdown", doc.Format)
	assert.Equal(t, content, doc.Text)
	assert.Equal(t, []string{"Title", "Install", "Usage"}, doc.Headings)
}

func TestMarkdownExtractor_NoHeadings(t *testing.T) {
	path := writeTemp(t, "flat.md", "just a paragraph")

	doc, err := File(context.Background(), path)

	require.NoError(t, err)
	assert.Empty(t, doc.Headings)
}

func TestHTMLExtractor_StripsMarkup(t *testing.T) {
	content := `<!DOCTYPE html>
<html>
<head><title>Ignored</title><style>body { color: red }</style></head>
<body>
<script>alert("no")</script>
<h1>Welcome</h1>
<p>First &amp; second.</p>
<div>Another block</div>
</body>
</html>`
	path := writeTemp(t, "page.html", content)

	doc, err := File(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "html", doc.Format)
	assert.Contains(t, doc.Text, "Welcome")
	assert.Contains(t, doc.Text, "First & second.")
	assert.Contains(t, doc.Text, "Another block")
	assert.NotContains(t, doc.Text, "alert")
	assert.NotContains(t, doc.Text, "color: red")
	assert.NotContains(t, doc.Text, "<p>")
	assert.Equal(t, []string{"Welcome"}, doc.Headings)
}

func TestDocxExtractor_ReadsParagraphs(t *testing.T) {
	// Given: a minimal docx archive with two paragraphs
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	// When: extracted
	doc, err := File(context.Background(), path)

	// Then: paragraphs are joined with newlines, runs concatenated
	require.NoError(t, err)
	assert.Equal(t, "docx", doc.Format)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", doc.Text)
}

func TestDocxExtractor_RejectsNonZip(t *testing.T) {
	path := writeTemp(t, "fake.docx", "this is not a zip archive")

	_, err := File(context.Background(), path)

	assert.Error(t, err)
}

func TestDocxExtractor_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "empty.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err = File(context.Background(), path)

	assert.Error(t, err)
}

func TestPDFExtractor_RejectsCorrupt(t *testing.T) {
	path := writeTemp(t, "bad.pdf", "%PDF-1.4 truncated garbage")

	_, err := File(context.Background(), path)

	assert.Error(t, err)
}
