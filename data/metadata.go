package data

// Column names recognized by the unstructured projection logic.
// The exact strings are an external compatibility surface and must not
// be renamed.
const (
	ColumnFileType    = "file_type"
	ColumnPath        = "path"
	ColumnModifiedAt  = "modified_at"
	ColumnSizeInBytes = "size_in_bytes"
	ColumnPreview     = "preview"
	ColumnSubDir      = "sub_dir"
	ColumnTextContent = "text_content"
	ColumnBinContent  = "bin_content"
)

// MetaData is the per-file record produced by the unstructured scan.
// Fields are populated incrementally as the requested schema dictates;
// fields never requested stay at their sentinel defaults (-1 for numeric,
// empty otherwise) and must not feed predicate evaluation.
type MetaData struct {
	FileType    string
	Path        string
	ModifiedAt  int64 // epoch millis
	SizeInBytes int64
	Preview     string
	SubDir      string
	TextContent string
	BinContent  []byte
}

// NewMetaData returns a record with all fields at sentinel defaults.
func NewMetaData() *MetaData {
	return &MetaData{
		ModifiedAt:  -1,
		SizeInBytes: -1,
	}
}

// Field returns the value of the named column along with whether the
// column name is recognized at all.
func (m *MetaData) Field(column string) (any, bool) {
	switch column {
	case ColumnFileType:
		return m.FileType, true
	case ColumnPath:
		return m.Path, true
	case ColumnModifiedAt:
		return m.ModifiedAt, true
	case ColumnSizeInBytes:
		return m.SizeInBytes, true
	case ColumnPreview:
		return m.Preview, true
	case ColumnSubDir:
		return m.SubDir, true
	case ColumnTextContent:
		return m.TextContent, true
	case ColumnBinContent:
		return m.BinContent, true
	}
	return nil, false
}
