package extract

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// maxTextBytes caps how much of a plain-text file is read. Anything a user
// actually searches for is in the head of the file; the analyzer truncates
// further anyway.
const maxTextBytes = 100_000

// TextExtractor handles plain-text modalities (.txt, .md, .docx-as-text, .eml).
// Markdown files are parsed with goldmark and reduced to their visible text so
// formatting syntax does not pollute the analysis.
type TextExtractor struct {
	markdown goldmark.Markdown
}

// NewTextExtractor creates a new plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Extract returns the textual content of the file. Binary data that is not
// valid UTF-8 yields an empty string.
func (e *TextExtractor) Extract(_ context.Context, data []byte, filename string) (string, error) {
	if len(data) > maxTextBytes {
		data = data[:maxTextBytes]
	}
	// Drop a UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(data) {
		return "", nil
	}

	if strings.EqualFold(filepath.Ext(filename), ".md") {
		return e.extractMarkdown(data), nil
	}

	return strings.TrimSpace(string(data)), nil
}

// extractMarkdown walks the goldmark AST and collects the visible text.
func (e *TextExtractor) extractMarkdown(data []byte) string {
	reader := text.NewReader(data)
	doc := e.markdown.Parser().Parse(reader)

	var builder strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Separate block-level nodes so unrelated lines do not run together
			if _, isBlock := node.(*ast.Paragraph); isBlock {
				builder.WriteString("\n")
			}
			if _, isHeading := node.(*ast.Heading); isHeading {
				builder.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			segment := v.Segment
			builder.Write(segment.Value(data))
			if v.SoftLineBreak() || v.HardLineBreak() {
				builder.WriteString("\n")
			}
		case *ast.String:
			builder.Write(v.Value)
		case *ast.FencedCodeBlock:
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(data))
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}
