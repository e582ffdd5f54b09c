package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles markdown files. The raw markdown is kept as
// the chunkable text; headings are collected from the AST so chunks can
// be attributed to the section they fall under.
type MarkdownExtractor struct{}

// Extensions returns the handled extensions.
func (e *MarkdownExtractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Extract reads the file and collects its heading structure.
func (e *MarkdownExtractor) Extract(_ context.Context, path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	return &Document{
		SourcePath: path,
		Format:     "markdown",
		Text:       string(data),
		Headings:   collectHeadings(data),
	}, nil
}

// collectHeadings walks the markdown AST and returns heading texts in
// document order.
func collectHeadings(source []byte) []string {
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if txt := nodeText(heading, source); txt != "" {
			headings = append(headings, txt)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// nodeText concatenates the text content of a node's children.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			continue
		}
		sb.WriteString(nodeText(c, source))
	}
	return strings.TrimSpace(sb.String())
}
