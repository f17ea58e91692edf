package scan

import (
	"fmt"
	"strings"

	"github.com/mwantia/metacat/data"
)

// Mode selects which derived columns a file scan produces.
type Mode int

const (
	// ModeMetadata projects per-file metadata: type, path, timestamps,
	// size, preview and subdirectory.
	ModeMetadata Mode = iota

	// ModeContent projects the file content itself: path, subdirectory,
	// derived text and raw bytes.
	ModeContent
)

func (m Mode) String() string {
	switch m {
	case ModeMetadata:
		return "metadata"
	case ModeContent:
		return "content"
	default:
		return "unknown"
	}
}

// ParseMode converts a table property value into a Mode.
func ParseMode(mode string) (Mode, error) {
	switch strings.ToLower(mode) {
	case "", "metadata":
		return ModeMetadata, nil
	case "content":
		return ModeContent, nil
	}
	return 0, fmt.Errorf("metacat: unknown projection mode %q", mode)
}

// Columns returns the column names the mode recognizes. Requested columns
// outside this set are ignored during record building.
func (m Mode) Columns() []string {
	switch m {
	case ModeContent:
		return []string{
			data.ColumnPath,
			data.ColumnSubDir,
			data.ColumnTextContent,
			data.ColumnBinContent,
		}
	default:
		return []string{
			data.ColumnFileType,
			data.ColumnPath,
			data.ColumnModifiedAt,
			data.ColumnSizeInBytes,
			data.ColumnPreview,
			data.ColumnSubDir,
		}
	}
}

// Recognizes reports whether the mode produces the named column.
func (m Mode) Recognizes(column string) bool {
	for _, name := range m.Columns() {
		if name == column {
			return true
		}
	}
	return false
}
