package statistics

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/decimal256"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Collect computes the statistics of arrays that share one element type,
// using the default allocator for the bound arrays.
func Collect(arrays []arrow.Array) (Row, error) {
	return CollectWithAllocator(memory.DefaultAllocator, arrays)
}

// CollectWithAllocator computes the statistics of arrays that share one
// element type. Dictionary arrays are reduced over their referenced values and
// may be mixed with plain arrays of the same value type.
func CollectWithAllocator(mem memory.Allocator, arrays []arrow.Array) (Row, error) {
	if len(arrays) == 0 {
		return Row{}, ErrNoArrays
	}

	dt := BoundType(arrays[0].DataType())
	for _, arr := range arrays[1:] {
		if !arrow.TypeEqual(BoundType(arr.DataType()), dt) {
			return Row{}, fmt.Errorf("%w: %s and %s", ErrMismatchedTypes, arrays[0].DataType(), arr.DataType())
		}
	}

	switch dt.ID() {
	case arrow.INT8:
		return numericRow[int8, *array.Int8](mem, dt, arrays), nil
	case arrow.INT16:
		return numericRow[int16, *array.Int16](mem, dt, arrays), nil
	case arrow.INT32:
		return numericRow[int32, *array.Int32](mem, dt, arrays), nil
	case arrow.INT64:
		return numericRow[int64, *array.Int64](mem, dt, arrays), nil
	case arrow.UINT8:
		return numericRow[uint8, *array.Uint8](mem, dt, arrays), nil
	case arrow.UINT16:
		return numericRow[uint16, *array.Uint16](mem, dt, arrays), nil
	case arrow.UINT32:
		return numericRow[uint32, *array.Uint32](mem, dt, arrays), nil
	case arrow.UINT64:
		return numericRow[uint64, *array.Uint64](mem, dt, arrays), nil
	case arrow.FLOAT32:
		return numericRow[float32, *array.Float32](mem, dt, arrays), nil
	case arrow.FLOAT64:
		return numericRow[float64, *array.Float64](mem, dt, arrays), nil
	case arrow.FLOAT16:
		return boundedRow(mem, dt, reduceFloat16(sequencesOf[float16.Num, *array.Float16](arrays))), nil
	case arrow.DATE32:
		return numericRow[arrow.Date32, *array.Date32](mem, dt, arrays), nil
	case arrow.DATE64:
		return numericRow[arrow.Date64, *array.Date64](mem, dt, arrays), nil
	case arrow.TIME32:
		return numericRow[arrow.Time32, *array.Time32](mem, dt, arrays), nil
	case arrow.TIME64:
		return numericRow[arrow.Time64, *array.Time64](mem, dt, arrays), nil
	case arrow.TIMESTAMP:
		return numericRow[arrow.Timestamp, *array.Timestamp](mem, dt, arrays), nil
	case arrow.DURATION:
		return numericRow[arrow.Duration, *array.Duration](mem, dt, arrays), nil
	case arrow.BOOL:
		b := reduce(sequencesOf[bool, *array.Boolean](arrays), lessBool, nil)
		return boundedRow(mem, dt, b), nil
	case arrow.DECIMAL128:
		b := reduce(sequencesOf[decimal128.Num, *array.Decimal128](arrays),
			func(a, b decimal128.Num) bool { return a.Less(b) }, nil)
		return boundedRow(mem, dt, b), nil
	case arrow.DECIMAL256:
		b := reduce(sequencesOf[decimal256.Num, *array.Decimal256](arrays),
			func(a, b decimal256.Num) bool { return a.Less(b) }, nil)
		return boundedRow(mem, dt, b), nil
	case arrow.STRING:
		return textRow[*array.String](mem, dt, arrays), nil
	case arrow.LARGE_STRING:
		return textRow[*array.LargeString](mem, dt, arrays), nil
	case arrow.BINARY:
		return binaryRow[*array.Binary](mem, dt, arrays), nil
	case arrow.LARGE_BINARY:
		return binaryRow[*array.LargeBinary](mem, dt, arrays), nil
	default:
		return Row{}, &UnsupportedTypeError{Type: arrays[0].DataType()}
	}
}

// BoundType returns the type statistics bounds are stored as for a column of
// type dt: the value type for dictionaries, dt otherwise.
func BoundType(dt arrow.DataType) arrow.DataType {
	if dict, ok := dt.(*arrow.DictionaryType); ok {
		return dict.ValueType
	}
	return dt
}

// Supported reports whether statistics can be collected for columns of type dt
func Supported(dt arrow.DataType) bool {
	switch BoundType(dt).ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64, arrow.TIMESTAMP, arrow.DURATION,
		arrow.BOOL, arrow.DECIMAL128, arrow.DECIMAL256,
		arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return true
	default:
		return false
	}
}

// sequencesOf views each array as a sequence of T. The caller has checked that
// every array, or every dictionary's values, is an A.
func sequencesOf[T any, A sequence[T]](arrays []arrow.Array) []sequence[T] {
	seqs := make([]sequence[T], 0, len(arrays))
	for _, arr := range arrays {
		if dict, ok := arr.(*array.Dictionary); ok {
			seqs = append(seqs, newDictionarySequence[T](dict, dict.Dictionary().(A)))
			continue
		}
		seqs = append(seqs, arr.(A))
	}
	return seqs
}

func numericRow[T number, A sequence[T]](mem memory.Allocator, dt arrow.DataType, arrays []arrow.Array) Row {
	return boundedRow(mem, dt, reduceOrdered(sequencesOf[T, A](arrays)))
}

func boundedRow[T any](mem memory.Allocator, dt arrow.DataType, b bounds[T]) Row {
	row := Row{NullCount: nullCount(b.nulls)}
	if b.ok {
		row.MinValue = single(mem, dt, b.min)
		row.MaxValue = single(mem, dt, b.max)
	}
	return row
}

func textRow[A sequence[string]](mem memory.Allocator, dt arrow.DataType, arrays []arrow.Array) Row {
	b := reduce(sequencesOf[string, A](arrays), func(a, b string) bool { return a < b }, nil)
	row := Row{NullCount: nullCount(b.nulls)}
	if !b.ok {
		return row
	}
	row.MinValue = single(mem, dt, TruncateMinText(b.min))
	if upper, ok := TruncateMaxText(b.max); ok {
		row.MaxValue = single(mem, dt, upper)
	}
	return row
}

func binaryRow[A sequence[[]byte]](mem memory.Allocator, dt arrow.DataType, arrays []arrow.Array) Row {
	b := reduce(sequencesOf[[]byte, A](arrays), func(a, b []byte) bool { return bytes.Compare(a, b) < 0 }, nil)
	row := Row{NullCount: nullCount(b.nulls)}
	if !b.ok {
		return row
	}
	row.MinValue = single(mem, dt, TruncateMinBinary(b.min))
	if upper, ok := TruncateMaxBinary(b.max); ok {
		row.MaxValue = single(mem, dt, upper)
	}
	return row
}

// appender is the typed half of an Arrow builder
type appender[T any] interface {
	array.Builder
	Append(T)
}

// single builds a one-element array of type dt holding v
func single[T any](mem memory.Allocator, dt arrow.DataType, v T) arrow.Array {
	bldr := array.NewBuilder(mem, dt)
	defer bldr.Release()
	bldr.(appender[T]).Append(v)
	return bldr.NewArray()
}
