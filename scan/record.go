package scan

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/store"
)

// DefaultPreviewLength bounds the preview column when neither the table nor
// its datasource configures a preview length.
const DefaultPreviewLength = 512

// RecordBuilder derives a metadata record for one physical file. Only the
// requested columns are bound; raw byte content is read from the file at
// most once per record, shared by every column derived from it, and skipped
// entirely when no requested column needs it.
type RecordBuilder struct {
	file    store.FileRef
	source  io.Reader
	mode    Mode
	roots   []string
	preview int
	extract TextExtractor

	raw       []byte
	rawLoaded bool
	text      string
	textDone  bool
}

// NewRecordBuilder creates a builder for one file. The source reader yields
// the file's full raw bytes and is only consumed when a requested column
// needs content. A previewLength of zero or less disables truncation.
func NewRecordBuilder(file store.FileRef, source io.Reader, mode Mode, roots []string, previewLength int) *RecordBuilder {
	return &RecordBuilder{
		file:    file,
		source:  source,
		mode:    mode,
		roots:   roots,
		preview: previewLength,
		extract: ExtractorFor(fileType(file.Path)),
	}
}

// Build populates a fresh record with the requested columns. Columns the
// active projection mode does not recognize are ignored, which keeps schema
// projection forward-compatible.
func (b *RecordBuilder) Build(ctx context.Context, columns []string) (*data.MetaData, error) {
	record := data.NewMetaData()

	for _, column := range columns {
		if !b.mode.Recognizes(column) {
			continue
		}
		if err := b.bind(ctx, record, column); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// bind fills a single column of the record.
func (b *RecordBuilder) bind(ctx context.Context, record *data.MetaData, column string) error {
	switch column {
	case data.ColumnFileType:
		record.FileType = fileType(b.file.Path)

	case data.ColumnPath:
		record.Path = b.file.Path

	case data.ColumnModifiedAt:
		record.ModifiedAt = b.file.ModifiedAt.UnixMilli()

	case data.ColumnSizeInBytes:
		record.SizeInBytes = b.file.Size

	case data.ColumnSubDir:
		subDir, err := b.subDir()
		if err != nil {
			return err
		}
		record.SubDir = subDir

	case data.ColumnPreview:
		text, err := b.loadText(ctx)
		if err != nil {
			return err
		}
		record.Preview = truncate(text, b.preview)

	case data.ColumnTextContent:
		text, err := b.loadText(ctx)
		if err != nil {
			return err
		}
		record.TextContent = text

	case data.ColumnBinContent:
		raw, err := b.loadRaw(ctx)
		if err != nil {
			return err
		}
		record.BinContent = raw
	}

	return nil
}

// loadRaw reads the file's full byte content, at most once per record.
func (b *RecordBuilder) loadRaw(ctx context.Context) ([]byte, error) {
	if b.rawLoaded {
		return b.raw, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(b.source)
	if err != nil {
		return nil, fmt.Errorf("metacat: failed to read %s: %w", b.file.Path, err)
	}

	b.raw = raw
	b.rawLoaded = true
	return raw, nil
}

// loadText derives text from the raw bytes, at most once per record.
func (b *RecordBuilder) loadText(ctx context.Context) (string, error) {
	if b.textDone {
		return b.text, nil
	}

	raw, err := b.loadRaw(ctx)
	if err != nil {
		return "", err
	}

	text, err := b.extract(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.file.Path, err)
	}

	b.text = text
	b.textDone = true
	return text, nil
}

// subDir computes the path between the first configured root that prefixes
// the file and the file itself; empty when the file sits directly under the
// root. A file outside every configured root is a configuration
// inconsistency and fails fast.
func (b *RecordBuilder) subDir() (string, error) {
	dir := path.Dir(b.file.Path)
	for _, root := range b.roots {
		// Match on a path-segment boundary so a sibling directory that
		// shares a name prefix is not misattributed.
		root = strings.TrimSuffix(root, "/")
		if !strings.HasPrefix(b.file.Path, root+"/") {
			continue
		}
		sub := strings.TrimPrefix(dir, root)
		return strings.Trim(sub, "/"), nil
	}
	return "", fmt.Errorf("%w: %s", data.ErrNoRootPathMatch, b.file.Path)
}

// fileType derives the file type from the filename extension; empty when no
// extension is present, which projects as a null column value.
func fileType(filePath string) string {
	ext := path.Ext(filePath)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// truncate bounds text to limit characters when the limit is positive and
// shorter than the text; otherwise the text passes through unmodified.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
