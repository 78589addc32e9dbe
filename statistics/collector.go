package statistics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"fragstats/datatypes"
	"fragstats/logging"
)

// NumValuesColumn is the name of the row count column of a statistics record
const NumValuesColumn = "num_values"

// Option configures a Collector
type Option func(*Collector)

// WithAllocator sets the allocator used for bounds and output columns
func WithAllocator(mem memory.Allocator) Option {
	return func(c *Collector) {
		c.mem = mem
	}
}

// WithMetrics records collector activity in m
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithTracer replaces the process-wide tracer
func WithTracer(t *logging.Tracer) Option {
	return func(c *Collector) {
		c.tracer = t
	}
}

// Collector gathers the statistics of a set of fields over a sequence of
// chunks. Every chunk contributes one row count and one statistics row per
// field. A Collector is not safe for concurrent use.
type Collector struct {
	mem      memory.Allocator
	metrics  *Metrics
	tracer   *logging.Tracer
	fields   []datatypes.Field // ascending by id
	builders map[int32]*Builder
	numRows  *array.Int64Builder
}

// NewCollector creates a collector with one builder per field. When two
// fields share an id the first one wins.
func NewCollector(fields []datatypes.Field, opts ...Option) *Collector {
	c := &Collector{
		mem:      memory.DefaultAllocator,
		tracer:   logging.GetTracer(),
		builders: make(map[int32]*Builder, len(fields)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, f := range fields {
		if _, dup := c.builders[f.ID]; dup {
			c.tracer.Warn(logging.TraceComponentCollector, "Duplicate field id ignored",
				zap.Int32("field_id", f.ID), zap.String("field", f.Name))
			continue
		}
		c.builders[f.ID] = NewBuilder(c.mem, f.Type)
		c.fields = append(c.fields, f)
	}
	sort.SliceStable(c.fields, func(i, j int) bool { return c.fields[i].ID < c.fields[j].ID })
	c.numRows = array.NewInt64Builder(c.mem)

	c.tracer.Debug(logging.TraceComponentCollector, "Collector created", zap.Int("fields", len(c.fields)))
	return c
}

// Fields returns the collected fields in ascending id order
func (c *Collector) Fields() []datatypes.Field {
	return c.fields
}

// Builder returns the statistics builder of a field
func (c *Collector) Builder(fieldID int32) (*Builder, bool) {
	b, ok := c.builders[fieldID]
	return b, ok
}

// NumChunks returns the number of row counts appended since the last Finish
func (c *Collector) NumChunks() int {
	return c.numRows.Len()
}

// AppendNumRows records the row count of the next chunk
func (c *Collector) AppendNumRows(n int64) {
	c.numRows.Append(n)
	c.metrics.observeChunk(n)
}

// CollectField computes the statistics of arrays and appends them as the next
// row of the field.
func (c *Collector) CollectField(fieldID int32, arrays []arrow.Array) error {
	b, ok := c.builders[fieldID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownField, fieldID)
	}

	row, err := c.collect(fieldID, b, arrays)
	if err != nil {
		return err
	}
	defer row.Release()

	b.Append(row)
	c.metrics.observeRow(row)
	return nil
}

func (c *Collector) collect(fieldID int32, b *Builder, arrays []arrow.Array) (Row, error) {
	for _, arr := range arrays {
		if !arrow.TypeEqual(BoundType(arr.DataType()), b.DataType()) {
			return Row{}, fmt.Errorf("%w: field %d is %s, got %s", ErrMismatchedTypes, fieldID, b.DataType(), arr.DataType())
		}
	}

	row, err := CollectWithAllocator(c.mem, arrays)
	if err != nil {
		var unsupported *UnsupportedTypeError
		if errors.As(err, &unsupported) {
			c.metrics.observeUnsupported(unsupported)
		}
		return Row{}, fmt.Errorf("failed to collect statistics for field %d: %w", fieldID, err)
	}

	c.tracer.Verbose(logging.TraceComponentDispatch, "Collected chunk statistics",
		zap.Int32("field_id", fieldID),
		zap.Uint32("null_count", row.NullCount),
		zap.Bool("has_min", row.HasMin()),
		zap.Bool("has_max", row.HasMax()))
	return row, nil
}

// AppendRecord appends one chunk: its row count and one statistics row per
// field. Record columns are matched to fields by name; a field without a
// column is appended as an all-null chunk. Nothing is appended on error.
func (c *Collector) AppendRecord(rec arrow.Record) error {
	schema := rec.Schema()
	rows := make([]Row, len(c.fields))
	defer func() {
		for i := range rows {
			rows[i].Release()
		}
	}()

	for i, f := range c.fields {
		indices := schema.FieldIndices(f.Name)
		if len(indices) == 0 {
			c.tracer.Debug(logging.TraceComponentCollector, "Field missing from chunk, recording nulls",
				zap.Int32("field_id", f.ID), zap.String("field", f.Name))
			rows[i] = Row{NullCount: nullCount(rec.NumRows())}
			continue
		}

		row, err := c.collect(f.ID, c.builders[f.ID], []arrow.Array{rec.Column(indices[0])})
		if err != nil {
			return err
		}
		rows[i] = row
	}

	for i, f := range c.fields {
		c.builders[f.ID].Append(rows[i])
		c.metrics.observeRow(rows[i])
	}
	c.AppendNumRows(rec.NumRows())
	return nil
}

// Finish checks that every field has exactly one statistics row per row count
// and assembles the statistics record. Appended rows are consumed either way.
func (c *Collector) Finish() (arrow.Record, error) {
	expected := c.numRows.Len()
	for _, f := range c.fields {
		if actual := c.builders[f.ID].Len(); actual != expected {
			c.reset()
			return nil, &AlignmentError{FieldID: f.ID, Expected: expected, Actual: actual}
		}
	}

	numRows := c.numRows.NewArray()
	defer numRows.Release()

	fields := make([]arrow.Field, 0, len(c.fields)+1)
	columns := make([]arrow.Array, 0, len(c.fields)+1)
	defer func() {
		for _, col := range columns[1:] {
			col.Release()
		}
	}()

	fields = append(fields, arrow.Field{Name: NumValuesColumn, Type: arrow.PrimitiveTypes.Int64})
	columns = append(columns, numRows)

	for _, f := range c.fields {
		st, err := c.builders[f.ID].Finish()
		if err != nil {
			c.reset()
			return nil, fmt.Errorf("failed to finish statistics for field %d: %w", f.ID, err)
		}
		fields = append(fields, arrow.Field{Name: strconv.FormatInt(int64(f.ID), 10), Type: st.DataType()})
		columns = append(columns, st)
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), columns, int64(expected))
	c.tracer.Info(logging.TraceComponentCollector, "Statistics record assembled",
		zap.Int("chunks", expected), zap.Int("fields", len(c.fields)))
	return rec, nil
}

func (c *Collector) reset() {
	if c.numRows.Len() > 0 {
		c.numRows.NewArray().Release()
	}
	for _, b := range c.builders {
		b.reset()
	}
}

// Release frees every builder held by the collector
func (c *Collector) Release() {
	for _, b := range c.builders {
		b.Release()
	}
	c.numRows.Release()
}
