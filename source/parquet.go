package source

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
	"howett.net/ranger"

	"fragstats/datatypes"
	"fragstats/logging"
)

// ErrChunkOutOfRange is returned by ReadChunk for an index past the last row
// group.
var ErrChunkOutOfRange = errors.New("chunk index out of range")

// Option configures a ParquetSource
type Option func(*ParquetSource)

// WithAllocator sets the allocator for chunk arrays
func WithAllocator(mem memory.Allocator) Option {
	return func(s *ParquetSource) {
		s.mem = mem
	}
}

// WithTracer replaces the process-wide tracer
func WithTracer(t *logging.Tracer) Option {
	return func(s *ParquetSource) {
		s.tracer = t
	}
}

// WithHTTPClient sets the client used for range requests on remote files
func WithHTTPClient(client *http.Client) Option {
	return func(s *ParquetSource) {
		s.client = client
	}
}

// ParquetSource reads a parquet file one row group at a time. Each row group
// is one chunk. Only flat leaf columns are exposed; nested, repeated and
// INT96 columns are skipped.
type ParquetSource struct {
	path    string
	file    *parquet.File
	closer  io.Closer
	mem     memory.Allocator
	tracer  *logging.Tracer
	client  *http.Client
	columns []column
	skipped []string
	schema  *arrow.Schema
}

// Open opens a local parquet file or, for http(s) URLs, a remote one read
// through range requests.
func Open(path string, opts ...Option) (*ParquetSource, error) {
	s := &ParquetSource{
		path:   path,
		mem:    memory.DefaultAllocator,
		tracer: logging.GetTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	startTime := time.Now()
	var err error
	if IsHTTPURL(path) {
		err = s.openHTTP()
	} else {
		err = s.openLocal()
	}
	if err != nil {
		return nil, err
	}

	s.resolveColumns()
	s.tracer.Info(logging.TraceComponentSource, "Parquet source opened",
		zap.String("file", path),
		zap.Int("row_groups", s.NumChunks()),
		zap.Int64("rows", s.NumRows()),
		zap.Int("columns", len(s.columns)),
		zap.Strings("skipped", s.skipped),
		zap.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))
	return s, nil
}

// IsHTTPURL reports whether path is an http or https URL
func IsHTTPURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (s *ParquetSource) openLocal() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to get file stats: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to open parquet file: %w", err)
	}

	s.file = pf
	s.closer = f
	return nil
}

func (s *ParquetSource) openHTTP() error {
	parsedURL, err := url.Parse(s.path)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	httpRanger := &ranger.HTTPRanger{URL: parsedURL}
	// ranger only falls back to its default client when the interface is nil
	if s.client != nil {
		httpRanger.Client = s.client
	}
	reader, err := ranger.NewReader(httpRanger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP reader: %w", err)
	}

	length, err := reader.Length()
	if err != nil {
		return fmt.Errorf("failed to get HTTP content length: %w", err)
	}

	pf, err := parquet.OpenFile(reader, length)
	if err != nil {
		return fmt.Errorf("failed to open remote parquet file: %w", err)
	}

	s.file = pf
	return nil
}

func (s *ParquetSource) resolveColumns() {
	schema := s.file.Schema()
	fields := make([]arrow.Field, 0, len(schema.Columns()))

	for _, path := range schema.Columns() {
		name := strings.Join(path, ".")
		leaf, ok := schema.Lookup(path...)
		if !ok || len(path) != 1 || leaf.MaxRepetitionLevel > 0 {
			s.skip(name, "nested or repeated column")
			continue
		}
		col, ok := arrowColumn(leaf)
		if !ok {
			s.skip(name, "unsupported column type")
			continue
		}
		s.columns = append(s.columns, col)
		fields = append(fields, col.field)
	}
	s.schema = arrow.NewSchema(fields, nil)
}

func (s *ParquetSource) skip(name, reason string) {
	s.skipped = append(s.skipped, name)
	s.tracer.Debug(logging.TraceComponentSource, "Skipping parquet column",
		zap.String("file", s.path), zap.String("column", name), zap.String("reason", reason))
}

// Path returns the path or URL the source was opened from
func (s *ParquetSource) Path() string {
	return s.path
}

// Schema returns the Arrow schema of the exposed columns
func (s *ParquetSource) Schema() *arrow.Schema {
	return s.schema
}

// Fields returns the exposed columns with field ids assigned in column order
func (s *ParquetSource) Fields() []datatypes.Field {
	return datatypes.SchemaFromArrow(s.schema).Fields
}

// Skipped returns the dotted paths of columns that are not exposed
func (s *ParquetSource) Skipped() []string {
	return s.skipped
}

// NumChunks returns the number of row groups
func (s *ParquetSource) NumChunks() int {
	return len(s.file.RowGroups())
}

// NumRows returns the total number of rows
func (s *ParquetSource) NumRows() int64 {
	return s.file.NumRows()
}

// ReadChunk reads row group i into a record holding every exposed column
func (s *ParquetSource) ReadChunk(i int) (arrow.Record, error) {
	rowGroups := s.file.RowGroups()
	if i < 0 || i >= len(rowGroups) {
		return nil, fmt.Errorf("%w: %d of %d", ErrChunkOutOfRange, i, len(rowGroups))
	}
	rg := rowGroups[i]
	chunks := rg.ColumnChunks()

	arrays := make([]arrow.Array, 0, len(s.columns))
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	for _, col := range s.columns {
		arr, err := s.readColumn(col, chunks[col.index])
		if err != nil {
			return nil, fmt.Errorf("failed to read column %s of row group %d: %w", col.field.Name, i, err)
		}
		if int64(arr.Len()) != rg.NumRows() {
			arr.Release()
			return nil, fmt.Errorf("column %s of row group %d has %d values, expected %d",
				col.field.Name, i, arr.Len(), rg.NumRows())
		}
		arrays = append(arrays, arr)
	}

	s.tracer.Verbose(logging.TraceComponentSource, "Row group read",
		zap.String("file", s.path), zap.Int("row_group", i), zap.Int64("rows", rg.NumRows()))
	return array.NewRecord(s.schema, arrays, rg.NumRows()), nil
}

func (s *ParquetSource) readColumn(col column, chunk parquet.ColumnChunk) (arrow.Array, error) {
	bldr := array.NewBuilder(s.mem, col.field.Type)
	defer bldr.Release()

	pages := chunk.Pages()
	defer pages.Close()

	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read page: %w", err)
		}

		values := make([]parquet.Value, page.NumValues())
		n, err := page.Values().ReadValues(values)
		if err != nil && err != io.EOF {
			parquet.Release(page)
			return nil, fmt.Errorf("failed to read values: %w", err)
		}

		for _, v := range values[:n] {
			if v.IsNull() {
				bldr.AppendNull()
				continue
			}
			col.append(bldr, v)
		}
		parquet.Release(page)
	}

	return bldr.NewArray(), nil
}

// Close releases the underlying file
func (s *ParquetSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
