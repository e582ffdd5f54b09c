package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docdex/docdex/internal/errors"
)

// PDFExtractor handles PDF files, keeping per-page text so chunks can
// carry the page they came from.
type PDFExtractor struct{}

// Extensions returns the handled extensions.
func (e *PDFExtractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract reads the PDF page by page. Pages whose text cannot be
// decoded yield empty text rather than failing the whole document.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptDocument,
			fmt.Sprintf("cannot open PDF %s", path), err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return &Document{
		SourcePath: path,
		Format:     "pdf",
		Text:       strings.Join(pages, "\n\n"),
		PageTexts:  pages,
	}, nil
}
