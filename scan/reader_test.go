package scan

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/filter"
	"github.com/mwantia/metacat/store"
	memstore "github.com/mwantia/metacat/store/memory"
)

func seedStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()

	fs := memstore.NewMemoryStore()
	fs.Put("docs/readme.txt", []byte("Welcome to the demo catalog."), time.Unix(1700000000, 0))
	fs.Put("docs/reports/summary.txt", []byte(strings.Repeat("abcde", 10)), time.Unix(1700000100, 0))
	fs.Put("docs/LICENSE", []byte("MIT"), time.Unix(1700000200, 0))
	return fs
}

func openReader(t *testing.T, ctx context.Context, fs *memstore.MemoryStore, partition Partition) *PartitionReader {
	t.Helper()

	reader := NewPartitionReader(fs, partition, nil)
	if err := reader.Open(ctx); err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func TestPartitionReaderMetadataRow(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File: mustStat(t, fs, "docs/reports/summary.txt"),
		Columns: []string{
			data.ColumnFileType,
			data.ColumnPath,
			data.ColumnModifiedAt,
			data.ColumnSizeInBytes,
			data.ColumnSubDir,
		},
		Mode:  ModeMetadata,
		Roots: []string{"docs"},
	})

	row, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}

	if row[0] != "txt" {
		t.Errorf("Expected file type txt, got %v", row[0])
	}
	if row[1] != "docs/reports/summary.txt" {
		t.Errorf("Expected full path, got %v", row[1])
	}
	if row[2] != time.Unix(1700000100, 0).UnixMilli() {
		t.Errorf("Expected epoch millis, got %v", row[2])
	}
	if row[3] != int64(50) {
		t.Errorf("Expected size 50, got %v", row[3])
	}
	if row[4] != "reports" {
		t.Errorf("Expected sub dir reports, got %v", row[4])
	}

	// Metadata-only projection never touches the file bytes
	if count := fs.ReadCount("docs/reports/summary.txt"); count != 0 {
		t.Errorf("Expected 0 reads, got %d", count)
	}

	if _, err := reader.Next(ctx); err != io.EOF {
		t.Errorf("Expected io.EOF after single row, got %v", err)
	}
}

func TestPartitionReaderNullFileType(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/LICENSE"),
		Columns: []string{data.ColumnFileType, data.ColumnSubDir},
		Mode:    ModeMetadata,
		Roots:   []string{"docs"},
	})

	row, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}

	if row[0] != nil {
		t.Errorf("Expected nil file type for extension-less file, got %v", row[0])
	}
	if row[1] != "" {
		t.Errorf("Expected empty sub dir for file directly under root, got %v", row[1])
	}
}

func TestPartitionReaderPreview(t *testing.T) {
	ctx := context.Background()

	t.Run("Truncated", func(t *testing.T) {
		fs := seedStore(t)
		reader := openReader(t, ctx, fs, Partition{
			File:          mustStat(t, fs, "docs/reports/summary.txt"),
			Columns:       []string{data.ColumnPreview},
			Mode:          ModeMetadata,
			Roots:         []string{"docs"},
			PreviewLength: 10,
		})

		row, err := reader.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to read row: %v", err)
		}
		if row[0] != "abcdeabcde" {
			t.Errorf("Expected 10-character preview, got %v", row[0])
		}
	})

	t.Run("DefaultLength", func(t *testing.T) {
		fs := seedStore(t)
		reader := openReader(t, ctx, fs, Partition{
			File:    mustStat(t, fs, "docs/reports/summary.txt"),
			Columns: []string{data.ColumnPreview},
			Mode:    ModeMetadata,
			Roots:   []string{"docs"},
		})

		row, err := reader.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to read row: %v", err)
		}
		// 50 characters fit well within the default bound
		if row[0] != strings.Repeat("abcde", 10) {
			t.Errorf("Expected full text preview, got %v", row[0])
		}
	})

	t.Run("ZeroDisablesTruncation", func(t *testing.T) {
		fs := seedStore(t)
		fs.Put("docs/essay.txt", []byte(strings.Repeat("lorem ipsum ", 50)), time.Unix(1700000300, 0))

		reader := openReader(t, ctx, fs, Partition{
			File:          mustStat(t, fs, "docs/essay.txt"),
			Columns:       []string{data.ColumnPreview},
			Mode:          ModeMetadata,
			Roots:         []string{"docs"},
			PreviewLength: 0,
		})

		row, err := reader.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to read row: %v", err)
		}
		if row[0] != strings.Repeat("lorem ipsum ", 50) {
			t.Errorf("Expected full 600-character text for length 0, got %d characters", len(row[0].(string)))
		}
	})
}

func TestPartitionReaderContentReadOnce(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File: mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{
			data.ColumnPath,
			data.ColumnTextContent,
			data.ColumnBinContent,
		},
		Mode:  ModeContent,
		Roots: []string{"docs"},
	})

	row, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}

	content := "Welcome to the demo catalog."
	if row[1] != content {
		t.Errorf("Expected text content, got %v", row[1])
	}
	raw, ok := row[2].([]byte)
	if !ok || string(raw) != content {
		t.Errorf("Expected raw bytes, got %v", row[2])
	}

	// Both content columns share one pass over the bytes
	if count := fs.ReadCount("docs/readme.txt"); count != 1 {
		t.Errorf("Expected exactly 1 read, got %d", count)
	}
}

func TestPartitionReaderModeProjection(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	// Content columns requested against the metadata mode project as nil
	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnPath, data.ColumnTextContent, "bogus_column"},
		Mode:    ModeMetadata,
		Roots:   []string{"docs"},
	})

	row, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}

	if row[0] != "docs/readme.txt" {
		t.Errorf("Expected path, got %v", row[0])
	}
	if row[1] != nil {
		t.Errorf("Expected nil for out-of-mode column, got %v", row[1])
	}
	if row[2] != nil {
		t.Errorf("Expected nil for unrecognized column, got %v", row[2])
	}
	if count := fs.ReadCount("docs/readme.txt"); count != 0 {
		t.Errorf("Expected 0 reads, got %d", count)
	}
}

func TestPartitionReaderFilterSuppression(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnPath},
		Mode:    ModeMetadata,
		Roots:   []string{"docs"},
		Filters: []filter.PushedFilter{
			filter.GreaterThan(data.ColumnSizeInBytes, int64(1000)),
		},
	})

	// The filter column is bound even though it is not projected
	if _, err := reader.Next(ctx); err != io.EOF {
		t.Errorf("Expected suppressed row to yield io.EOF, got %v", err)
	}
}

func TestPartitionReaderFilterEmission(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnPath},
		Mode:    ModeMetadata,
		Roots:   []string{"docs"},
		Filters: []filter.PushedFilter{
			filter.Equal(data.ColumnFileType, "txt"),
			filter.GreaterThan(data.ColumnSizeInBytes, int64(10)),
		},
	})

	row, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Expected row to pass filters, got %v", err)
	}
	if row[0] != "docs/readme.txt" {
		t.Errorf("Expected path column, got %v", row[0])
	}
}

func TestPartitionReaderLifecycle(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	partition := Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnPath},
		Mode:    ModeMetadata,
		Roots:   []string{"docs"},
	}

	t.Run("NextBeforeOpen", func(t *testing.T) {
		reader := NewPartitionReader(fs, partition, nil)
		if _, err := reader.Next(ctx); err == nil {
			t.Error("Expected error reading an unopened reader")
		}
	})

	t.Run("DoubleOpen", func(t *testing.T) {
		reader := openReader(t, ctx, fs, partition)
		if err := reader.Open(ctx); err == nil {
			t.Error("Expected error opening an open reader")
		}
	})

	t.Run("ReopenAfterClose", func(t *testing.T) {
		reader := NewPartitionReader(fs, partition, nil)
		if err := reader.Open(ctx); err != nil {
			t.Fatalf("Failed to open reader: %v", err)
		}
		if err := reader.Close(); err != nil {
			t.Fatalf("Failed to close reader: %v", err)
		}
		if err := reader.Open(ctx); !errors.Is(err, data.ErrReaderClosed) {
			t.Errorf("Expected ErrReaderClosed, got %v", err)
		}
	})

	t.Run("NextAfterClose", func(t *testing.T) {
		reader := NewPartitionReader(fs, partition, nil)
		if err := reader.Open(ctx); err != nil {
			t.Fatalf("Failed to open reader: %v", err)
		}
		reader.Close()
		if _, err := reader.Next(ctx); err != io.EOF {
			t.Errorf("Expected io.EOF after close, got %v", err)
		}
	})

	t.Run("IdempotentClose", func(t *testing.T) {
		reader := openReader(t, ctx, fs, partition)
		if err := reader.Close(); err != nil {
			t.Fatalf("Failed to close reader: %v", err)
		}
		if err := reader.Close(); err != nil {
			t.Errorf("Expected repeated close to succeed, got %v", err)
		}
	})
}

func TestPartitionReaderCancellation(t *testing.T) {
	fs := seedStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	reader := NewPartitionReader(fs, Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnTextContent},
		Mode:    ModeContent,
		Roots:   []string{"docs"},
	}, nil)

	if err := reader.Open(ctx); err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}

	cancel()

	// The cancellation hook closes the handle asynchronously
	deadline := time.Now().Add(time.Second)
	for {
		reader.mu.Lock()
		closed := reader.state == StateClosed
		reader.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected cancellation to close the reader")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := reader.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after cancellation, got %v", err)
	}
	if count := fs.ReadCount("docs/readme.txt"); count != 0 {
		t.Errorf("Expected no reads after cancellation, got %d", count)
	}
}

func TestRecordBuilderRootMismatch(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)

	reader := openReader(t, ctx, fs, Partition{
		File:    mustStat(t, fs, "docs/readme.txt"),
		Columns: []string{data.ColumnSubDir},
		Mode:    ModeMetadata,
		Roots:   []string{"images"},
	})

	if _, err := reader.Next(ctx); !errors.Is(err, data.ErrNoRootPathMatch) {
		t.Errorf("Expected ErrNoRootPathMatch, got %v", err)
	}
}

func TestRecordBuilderRootBoundary(t *testing.T) {
	ctx := context.Background()
	fs := seedStore(t)
	fs.Put("docs2/note.txt", []byte("aside"), time.Unix(1700000400, 0))

	// A sibling directory sharing the root's name prefix is not a match
	t.Run("SiblingPrefixRejected", func(t *testing.T) {
		reader := openReader(t, ctx, fs, Partition{
			File:    mustStat(t, fs, "docs2/note.txt"),
			Columns: []string{data.ColumnSubDir},
			Mode:    ModeMetadata,
			Roots:   []string{"docs"},
		})

		if _, err := reader.Next(ctx); !errors.Is(err, data.ErrNoRootPathMatch) {
			t.Errorf("Expected ErrNoRootPathMatch, got %v", err)
		}
	})

	t.Run("ExactRootMatches", func(t *testing.T) {
		reader := openReader(t, ctx, fs, Partition{
			File:    mustStat(t, fs, "docs2/note.txt"),
			Columns: []string{data.ColumnSubDir},
			Mode:    ModeMetadata,
			Roots:   []string{"docs", "docs2"},
		})

		row, err := reader.Next(ctx)
		if err != nil {
			t.Fatalf("Failed to read row: %v", err)
		}
		if row[0] != "" {
			t.Errorf("Expected empty sub dir under docs2, got %v", row[0])
		}
	})
}

func mustStat(t *testing.T, fs *memstore.MemoryStore, path string) store.FileRef {
	t.Helper()

	info, err := fs.StatObject(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	return *info
}
