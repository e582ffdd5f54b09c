package extract

import (
	"context"
	"html"
	"regexp"
	"strings"
)

// HTMLExtractor strips markup from HTML files, keeping block structure
// as newlines so chunk boundaries stay near element boundaries.
type HTMLExtractor struct{}

// Extensions returns the handled extensions.
func (e *HTMLExtractor) Extensions() []string {
	return []string{".html", ".htm"}
}

var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	headingTag    = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Extract reads the file and strips HTML to plain text.
func (e *HTMLExtractor) Extract(_ context.Context, path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	raw := string(data)
	return &Document{
		SourcePath: path,
		Format:     "html",
		Text:       stripHTML(raw),
		Headings:   htmlHeadings(raw),
	}, nil
}

// htmlHeadings returns h1..h6 texts in document order.
func htmlHeadings(content string) []string {
	var headings []string
	for _, m := range headingTag.FindAllStringSubmatch(content, -1) {
		txt := strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(m[1], "")))
		if txt != "" {
			headings = append(headings, txt)
		}
	}
	return headings
}

// stripHTML converts HTML to plain text. Block element boundaries become
// newlines; everything else collapses to single spaces.
func stripHTML(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")

	content = blockClose.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, " ")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
