package extract

import "context"

// TextExtractor handles plain-text files.
type TextExtractor struct{}

// Extensions returns the handled extensions.
func (e *TextExtractor) Extensions() []string {
	return []string{".txt"}
}

// Extract reads the file as UTF-8 text.
func (e *TextExtractor) Extract(_ context.Context, path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Document{
		SourcePath: path,
		Format:     "text",
		Text:       string(data),
	}, nil
}
