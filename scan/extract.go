package scan

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mwantia/metacat/data"
)

// TextExtractor derives text from a file's full raw bytes. Extractors are
// pure functions specific to one document format; errors on malformed input
// fail only the affected file's row.
type TextExtractor func(raw []byte) (string, error)

var (
	extractorMu sync.RWMutex
	extractors  = map[string]TextExtractor{}
)

// RegisterExtractor binds a text extractor to a file type (the lowercased
// filename extension without the dot). Registering a type twice replaces
// the previous extractor.
func RegisterExtractor(fileType string, extract TextExtractor) {
	extractorMu.Lock()
	defer extractorMu.Unlock()

	extractors[strings.ToLower(fileType)] = extract
}

// ExtractorFor returns the extractor registered for the file type, falling
// back to plain text decoding for unknown types.
func ExtractorFor(fileType string) TextExtractor {
	extractorMu.RLock()
	defer extractorMu.RUnlock()

	if extract, exists := extractors[strings.ToLower(fileType)]; exists {
		return extract
	}
	return PlainText
}

// PlainText decodes raw bytes as UTF-8 text.
// Returns data.ErrExtraction for byte sequences that are not valid UTF-8.
func PlainText(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: content is not valid utf-8", data.ErrExtraction)
	}
	return string(raw), nil
}

func init() {
	RegisterExtractor("txt", PlainText)
	RegisterExtractor("md", PlainText)
	RegisterExtractor("csv", PlainText)
	RegisterExtractor("json", PlainText)
	RegisterExtractor("log", PlainText)
}
