package statistics

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Names of the columns of a field's statistics struct
const (
	NullCountColumn = "null_count"
	MinValueColumn  = "min_value"
	MaxValueColumn  = "max_value"
)

// Builder accumulates the statistics rows of one field, one row per chunk.
// The null count, min and max columns always have the same length.
type Builder struct {
	mem        memory.Allocator
	dt         arrow.DataType
	nullCounts *array.Uint32Builder
	// one single-element array per chunk, nil where the bound is absent
	minValues []arrow.Array
	maxValues []arrow.Array
}

// NewBuilder creates a builder for a field of type dt. Bounds of dictionary
// fields are stored with the dictionary's value type.
func NewBuilder(mem memory.Allocator, dt arrow.DataType) *Builder {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Builder{
		mem:        mem,
		dt:         BoundType(dt),
		nullCounts: array.NewUint32Builder(mem),
	}
}

// DataType returns the type of the min and max columns
func (b *Builder) DataType() arrow.DataType {
	return b.dt
}

// Len returns the number of rows appended since the last Finish
func (b *Builder) Len() int {
	return b.nullCounts.Len()
}

// Append adds one chunk's statistics. The builder takes its own reference to
// the row's bounds; the caller still releases the row. Appending a bound of
// another type than DataType panics.
func (b *Builder) Append(row Row) {
	minValue := b.checkBound(MinValueColumn, row.MinValue)
	maxValue := b.checkBound(MaxValueColumn, row.MaxValue)

	b.nullCounts.Append(row.NullCount)
	b.minValues = append(b.minValues, minValue)
	b.maxValues = append(b.maxValues, maxValue)
}

// AppendEmpty adds a chunk with no statistics other than its null count
func (b *Builder) AppendEmpty(nulls int64) {
	b.Append(Row{NullCount: nullCount(nulls)})
}

func (b *Builder) checkBound(name string, v arrow.Array) arrow.Array {
	if v == nil {
		return nil
	}
	if !arrow.TypeEqual(v.DataType(), b.dt) {
		panic(fmt.Sprintf("statistics: %s of type %s appended to builder of type %s", name, v.DataType(), b.dt))
	}
	if v.Len() != 1 || v.IsNull(0) {
		panic(fmt.Sprintf("statistics: %s must hold exactly one non-null value, got %d values", name, v.Len()))
	}
	v.Retain()
	return v
}

// Finish returns the accumulated rows as a struct array with the columns
// null_count, min_value and max_value, and resets the builder.
func (b *Builder) Finish() (*array.Struct, error) {
	defer b.reset()

	nullCounts := b.nullCounts.NewArray()
	defer nullCounts.Release()

	minValues, err := b.concat(b.minValues)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s column: %w", MinValueColumn, err)
	}
	defer minValues.Release()

	maxValues, err := b.concat(b.maxValues)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s column: %w", MaxValueColumn, err)
	}
	defer maxValues.Release()

	return array.NewStructArrayWithFields(
		[]arrow.Array{nullCounts, minValues, maxValues},
		[]arrow.Field{
			{Name: NullCountColumn, Type: arrow.PrimitiveTypes.Uint32},
			{Name: MinValueColumn, Type: b.dt, Nullable: true},
			{Name: MaxValueColumn, Type: b.dt, Nullable: true},
		},
	)
}

// concat joins the per-chunk bounds, filling absent ones with nulls
func (b *Builder) concat(values []arrow.Array) (arrow.Array, error) {
	if len(values) == 0 {
		return array.MakeArrayOfNull(b.mem, b.dt, 0), nil
	}

	var null arrow.Array
	parts := make([]arrow.Array, len(values))
	for i, v := range values {
		if v == nil {
			if null == nil {
				null = array.MakeArrayOfNull(b.mem, b.dt, 1)
				defer null.Release()
			}
			v = null
		}
		parts[i] = v
	}
	return array.Concatenate(parts, b.mem)
}

func (b *Builder) releaseBounds() {
	for _, values := range [][]arrow.Array{b.minValues, b.maxValues} {
		for _, v := range values {
			if v != nil {
				v.Release()
			}
		}
	}
	b.minValues = nil
	b.maxValues = nil
}

func (b *Builder) reset() {
	b.releaseBounds()
	if b.nullCounts.Len() > 0 {
		b.nullCounts.NewArray().Release()
	}
}

// Release frees every row held by the builder
func (b *Builder) Release() {
	b.releaseBounds()
	b.nullCounts.Release()
}
