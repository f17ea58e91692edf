package scan

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/filter"
	"github.com/mwantia/metacat/log"
	"github.com/mwantia/metacat/store"
)

// State tracks the partition reader lifecycle.
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

// Row is one emitted logical row; values are ordered to match the requested
// projection columns. Unpopulated values project as nil.
type Row []any

// Partition is one unit of parallel scan work: a single physical file plus
// the projection and pushed filters that apply to it.
type Partition struct {
	// File is the assigned physical file.
	File store.FileRef

	// Columns is the requested projection schema, in output order.
	Columns []string

	// Mode selects the metadata or content projection.
	Mode Mode

	// Roots lists the table's configured root paths, used to derive the
	// subdirectory column.
	Roots []string

	// PreviewLength bounds the preview column, in characters. Zero or
	// negative disables truncation and yields the full derived text.
	PreviewLength int

	// Filters are the predicates pushed down to this scan.
	Filters []filter.PushedFilter
}

// PartitionReader produces at most one logical row for its assigned file:
// it builds the record, evaluates the pushed predicates and either emits or
// suppresses the row. Readers are single-use and not shared across files;
// each partition gets a fresh instance.
type PartitionReader struct {
	fs        store.FileStore
	partition Partition
	logger    *log.Logger

	mu       sync.Mutex
	state    State
	handle   io.ReadCloser
	builder  *RecordBuilder
	stopHook func() bool
	done     bool
	closeErr error
}

// NewPartitionReader creates an unopened reader for one partition.
func NewPartitionReader(fs store.FileStore, partition Partition, logger *log.Logger) *PartitionReader {
	if logger == nil {
		logger = log.Discard()
	}
	return &PartitionReader{
		fs:        fs,
		partition: partition,
		logger:    logger.Named("scan"),
	}
}

// Open acquires the scoped byte-stream handle for the assigned file and
// ties its release to cancellation of the enclosing task: when ctx is
// cancelled the handle is closed through the registered hook, so it is
// released on every exit path.
func (r *PartitionReader) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateOpen:
		return fmt.Errorf("metacat: partition reader already open: %s", r.partition.File.Path)
	case StateClosed:
		return fmt.Errorf("%w: %s", data.ErrReaderClosed, r.partition.File.Path)
	}

	handle, err := r.fs.OpenObject(ctx, r.partition.File.Path)
	if err != nil {
		return err
	}

	r.handle = handle
	r.builder = NewRecordBuilder(r.partition.File, handle, r.partition.Mode,
		r.partition.Roots, r.partition.PreviewLength)
	r.stopHook = context.AfterFunc(ctx, func() {
		r.logger.Debug("task cancelled, releasing %s", r.partition.File.Path)
		_ = r.Close()
	})
	r.state = StateOpen

	return nil
}

// Next returns the partition's single row, or io.EOF once the row has been
// emitted or suppressed. No partial row is ever emitted after cancellation.
func (r *PartitionReader) Next(ctx context.Context) (Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUnopened {
		return nil, fmt.Errorf("metacat: partition reader not open: %s", r.partition.File.Path)
	}
	if r.state == StateClosed || r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Terminal after the first production or suppression.
	r.done = true

	record, err := r.builder.Build(ctx, r.bindColumns())
	if err != nil {
		return nil, err
	}

	emit, err := filter.Evaluate(r.partition.Filters, record)
	if err != nil {
		return nil, err
	}
	if !emit {
		r.logger.Debug("row suppressed by pushed filters: %s", r.partition.File.Path)
		return nil, io.EOF
	}

	row := make(Row, len(r.partition.Columns))
	for i, column := range r.partition.Columns {
		row[i] = rowValue(record, column, r.partition.Mode)
	}
	return row, nil
}

// Close releases the byte-stream handle. It is idempotent and safe to call
// from the cancellation hook and from deferred cleanup at the same time.
func (r *PartitionReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateClosed {
		return r.closeErr
	}
	r.state = StateClosed

	if r.stopHook != nil {
		r.stopHook()
	}
	if r.handle != nil {
		r.closeErr = r.handle.Close()
		r.handle = nil
	}

	return r.closeErr
}

// bindColumns returns the columns the record must populate: the requested
// schema plus every column a pushed filter references. Sentinel defaults
// must never feed predicate evaluation.
func (r *PartitionReader) bindColumns() []string {
	columns := make([]string, 0, len(r.partition.Columns)+len(r.partition.Filters))
	seen := make(map[string]bool, cap(columns))

	for _, column := range r.partition.Columns {
		if !seen[column] {
			seen[column] = true
			columns = append(columns, column)
		}
	}
	for _, f := range r.partition.Filters {
		if !seen[f.Column] {
			seen[f.Column] = true
			columns = append(columns, f.Column)
		}
	}

	return columns
}

// rowValue converts a populated record field into its emitted value.
// Columns outside the active projection mode and extension-less file types
// project as nil.
func rowValue(record *data.MetaData, column string, mode Mode) any {
	if !mode.Recognizes(column) {
		return nil
	}

	value, known := record.Field(column)
	if !known {
		return nil
	}
	if column == data.ColumnFileType && value == "" {
		return nil
	}
	return value
}
