package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwantia/metacat/data"
	memstore "github.com/mwantia/metacat/store/memory"
)

func TestPlainTextExtraction(t *testing.T) {
	text, err := PlainText([]byte("plain content"))
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if text != "plain content" {
		t.Errorf("Expected passthrough text, got %q", text)
	}

	_, err = PlainText([]byte{0xff, 0xfe, 0x00})
	if !errors.Is(err, data.ErrExtraction) {
		t.Errorf("Expected ErrExtraction for invalid utf-8, got %v", err)
	}
}

func TestRegisteredExtractorOverride(t *testing.T) {
	RegisterExtractor("rev", func(raw []byte) (string, error) {
		runes := []rune(string(raw))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	})

	text, err := ExtractorFor("rev")([]byte("abc"))
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if text != "cba" {
		t.Errorf("Expected reversed text, got %q", text)
	}
}

func TestExtractorFallback(t *testing.T) {
	// Unknown types fall back to plain text decoding
	text, err := ExtractorFor("unknown-type")([]byte("fallback"))
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if text != "fallback" {
		t.Errorf("Expected plain text fallback, got %q", text)
	}
}

func TestExtractionFailureFailsRow(t *testing.T) {
	ctx := context.Background()

	fs := memstore.NewMemoryStore()
	fs.Put("docs/broken.txt", []byte{0xff, 0xfe}, time.Now())

	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/broken.txt"),
		Columns: []string{data.ColumnTextContent},
		Mode:    ModeContent,
		Roots:   []string{"docs"},
	})

	if _, err := reader.Next(ctx); !errors.Is(err, data.ErrExtraction) {
		t.Errorf("Expected ErrExtraction, got %v", err)
	}

	// The failure is terminal for this partition
	if _, err := reader.Next(ctx); err == nil {
		t.Error("Expected no further rows after a failed build")
	}
}
