// Package extract defines the content-extraction collaborator boundary.
//
// The engine treats format-specific extraction (PDF, DOCX, XLSX) as an
// external concern; any implementation of Extractor can be plugged in. The
// package ships a plain-text extractor that covers text, markup, code and
// delimited data files, which is also what the tests use.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/localseek/localseek/pkg/types"
)

// Content is the result of extracting one file.
type Content struct {
	Text      string
	Category  string
	Encoding  string
	WordCount int
}

// Extractor obtains searchable text from a file. Any failure is recoverable
// per-file: implementations return a *types.ExtractionError and the indexer
// skips the path until the next scan.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Content, error)
}

// Categories assigned by extension.
const (
	CategoryDocument    = "document"
	CategorySpreadsheet = "spreadsheet"
	CategoryCode        = "code"
	CategoryData        = "data"
	CategoryText        = "text"
)

var categoryByExt = map[string]string{
	".md": CategoryDocument, ".rst": CategoryDocument, ".rtf": CategoryDocument,
	".pdf": CategoryDocument, ".doc": CategoryDocument, ".docx": CategoryDocument,
	".xls": CategorySpreadsheet, ".xlsx": CategorySpreadsheet,
	".csv": CategoryData, ".tsv": CategoryData, ".json": CategoryData,
	".yaml": CategoryData, ".yml": CategoryData,
	".go": CategoryCode, ".py": CategoryCode, ".js": CategoryCode,
	".ts": CategoryCode, ".rs": CategoryCode, ".java": CategoryCode,
	".c": CategoryCode, ".h": CategoryCode, ".cpp": CategoryCode,
	".sh": CategoryCode, ".sql": CategoryCode,
}

// CategoryForPath maps a path to its content category. Unknown extensions
// fall back to plain text.
func CategoryForPath(path string) string {
	if cat, ok := categoryByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return cat
	}
	return CategoryText
}

// TextExtractor reads files as UTF-8 text. Binary content is rejected so a
// corrupt or unsupported file surfaces as an ExtractionError instead of
// garbage entering the index.
type TextExtractor struct {
	// MaxBytes caps how much of a file is read. Zero means no cap.
	MaxBytes int64
}

// NewTextExtractor creates a plain-text extractor with the given read cap.
func NewTextExtractor(maxBytes int64) *TextExtractor {
	return &TextExtractor{MaxBytes: maxBytes}
}

// Extract reads path and returns its text content.
func (e *TextExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewExtractionError(path, err)
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader = f
	if e.MaxBytes > 0 {
		reader = io.LimitReader(f, e.MaxBytes)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, types.NewExtractionError(path, err)
	}

	if !utf8.Valid(data) || looksBinary(data) {
		return nil, types.NewExtractionError(path, fmt.Errorf("not valid text content"))
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, types.NewExtractionError(path, fmt.Errorf("no extractable text"))
	}

	return &Content{
		Text:      text,
		Category:  CategoryForPath(path),
		Encoding:  "utf-8",
		WordCount: len(strings.Fields(text)),
	}, nil
}

// looksBinary flags content with NUL bytes, the cheap signal for non-text.
func looksBinary(data []byte) bool {
	limit := len(data)
	if limit > 8192 {
		limit = 8192
	}
	for _, b := range data[:limit] {
		if b == 0 {
			return true
		}
	}
	return false
}
