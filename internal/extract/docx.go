package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/docdex/docdex/internal/errors"
)

// DocxExtractor handles Word documents. A .docx file is a ZIP archive;
// the body text lives in word/document.xml as paragraphs of runs.
type DocxExtractor struct{}

// Extensions returns the handled extensions.
func (e *DocxExtractor) Extensions() []string {
	return []string{".docx"}
}

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// Extract unzips the document and concatenates paragraph text.
func (e *DocxExtractor) Extract(_ context.Context, path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptDocument,
			fmt.Sprintf("not a valid docx archive: %s", path), err)
	}

	text, err := docxBodyText(reader)
	if err != nil {
		return nil, err
	}

	return &Document{
		SourcePath: path,
		Format:     "docx",
		Text:       text,
	}, nil
}

// docxBodyText extracts paragraph text from word/document.xml.
func docxBodyText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", errors.New(errors.ErrCodeCorruptDocument,
				"cannot open word/document.xml", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", errors.New(errors.ErrCodeCorruptDocument,
				"cannot read word/document.xml", err)
		}

		var doc documentXML
		if err := xml.Unmarshal(content, &doc); err != nil {
			return "", errors.New(errors.ErrCodeCorruptDocument,
				"malformed word/document.xml", err)
		}

		var sb strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				sb.WriteString("\n")
			}
			for _, run := range para.Runs {
				for _, t := range run.Text {
					sb.WriteString(t.Content)
				}
			}
		}
		return strings.TrimSpace(sb.String()), nil
	}

	return "", errors.New(errors.ErrCodeCorruptDocument,
		"docx archive has no word/document.xml", nil)
}
