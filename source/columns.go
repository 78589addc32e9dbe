package source

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// column maps one flat parquet leaf onto an Arrow array
type column struct {
	field  arrow.Field
	index  int // parquet column index
	append func(array.Builder, parquet.Value)
}

func appendAs[B array.Builder](fn func(B, parquet.Value)) func(array.Builder, parquet.Value) {
	return func(b array.Builder, v parquet.Value) {
		fn(b.(B), v)
	}
}

// arrowColumn returns the Arrow mapping of a parquet leaf column, or false
// when its physical and logical type have no flat Arrow counterpart.
func arrowColumn(leaf parquet.LeafColumn) (column, bool) {
	node := leaf.Node
	col := column{index: leaf.ColumnIndex}
	logical := node.Type().LogicalType()

	var dt arrow.DataType
	switch node.Type().Kind() {
	case parquet.Boolean:
		dt = arrow.FixedWidthTypes.Boolean
		col.append = appendAs(func(b *array.BooleanBuilder, v parquet.Value) { b.Append(v.Boolean()) })

	case parquet.Int32:
		dt, col.append = int32Column(logical)

	case parquet.Int64:
		dt, col.append = int64Column(logical)

	case parquet.Float:
		dt = arrow.PrimitiveTypes.Float32
		col.append = appendAs(func(b *array.Float32Builder, v parquet.Value) { b.Append(v.Float()) })

	case parquet.Double:
		dt = arrow.PrimitiveTypes.Float64
		col.append = appendAs(func(b *array.Float64Builder, v parquet.Value) { b.Append(v.Double()) })

	case parquet.ByteArray:
		switch {
		case logical != nil && logical.Decimal != nil:
			dt, col.append = decimalColumn(logical.Decimal)
		case logical != nil && (logical.UTF8 != nil || logical.Enum != nil || logical.Json != nil):
			dt = arrow.BinaryTypes.String
			col.append = appendAs(func(b *array.StringBuilder, v parquet.Value) { b.Append(string(v.ByteArray())) })
		default:
			dt = arrow.BinaryTypes.Binary
			col.append = appendAs(func(b *array.BinaryBuilder, v parquet.Value) { b.Append(v.ByteArray()) })
		}

	case parquet.FixedLenByteArray:
		// Byte order only matches value order for plain bytes and UUIDs
		switch {
		case logical != nil && logical.Decimal != nil:
			if node.Type().Length() <= 16 {
				dt, col.append = decimalColumn(logical.Decimal)
			}
		case logical == nil || logical.UUID != nil:
			dt = arrow.BinaryTypes.Binary
			col.append = appendAs(func(b *array.BinaryBuilder, v parquet.Value) { b.Append(v.ByteArray()) })
		}
	}

	if dt == nil {
		return column{}, false
	}
	col.field = arrow.Field{Name: leaf.Path[len(leaf.Path)-1], Type: dt, Nullable: node.Optional()}
	return col, true
}

func int32Column(logical *format.LogicalType) (arrow.DataType, func(array.Builder, parquet.Value)) {
	switch {
	case logical == nil:
	case logical.Date != nil:
		return arrow.FixedWidthTypes.Date32,
			appendAs(func(b *array.Date32Builder, v parquet.Value) { b.Append(arrow.Date32(v.Int32())) })
	case logical.Time != nil:
		return arrow.FixedWidthTypes.Time32ms,
			appendAs(func(b *array.Time32Builder, v parquet.Value) { b.Append(arrow.Time32(v.Int32())) })
	case logical.Decimal != nil:
		dt := &arrow.Decimal128Type{Precision: logical.Decimal.Precision, Scale: logical.Decimal.Scale}
		return dt, appendAs(func(b *array.Decimal128Builder, v parquet.Value) {
			b.Append(decimal128.FromI64(int64(v.Int32())))
		})
	case logical.Integer != nil:
		return integerColumn(logical.Integer)
	}
	return arrow.PrimitiveTypes.Int32,
		appendAs(func(b *array.Int32Builder, v parquet.Value) { b.Append(v.Int32()) })
}

func integerColumn(it *format.IntType) (arrow.DataType, func(array.Builder, parquet.Value)) {
	switch {
	case it.IsSigned && it.BitWidth == 8:
		return arrow.PrimitiveTypes.Int8,
			appendAs(func(b *array.Int8Builder, v parquet.Value) { b.Append(int8(v.Int32())) })
	case it.IsSigned && it.BitWidth == 16:
		return arrow.PrimitiveTypes.Int16,
			appendAs(func(b *array.Int16Builder, v parquet.Value) { b.Append(int16(v.Int32())) })
	case !it.IsSigned && it.BitWidth == 8:
		return arrow.PrimitiveTypes.Uint8,
			appendAs(func(b *array.Uint8Builder, v parquet.Value) { b.Append(uint8(v.Int32())) })
	case !it.IsSigned && it.BitWidth == 16:
		return arrow.PrimitiveTypes.Uint16,
			appendAs(func(b *array.Uint16Builder, v parquet.Value) { b.Append(uint16(v.Int32())) })
	case !it.IsSigned && it.BitWidth == 32:
		return arrow.PrimitiveTypes.Uint32,
			appendAs(func(b *array.Uint32Builder, v parquet.Value) { b.Append(v.Uint32()) })
	case !it.IsSigned && it.BitWidth == 64:
		return arrow.PrimitiveTypes.Uint64,
			appendAs(func(b *array.Uint64Builder, v parquet.Value) { b.Append(v.Uint64()) })
	case it.BitWidth == 64:
		return arrow.PrimitiveTypes.Int64,
			appendAs(func(b *array.Int64Builder, v parquet.Value) { b.Append(v.Int64()) })
	default:
		return arrow.PrimitiveTypes.Int32,
			appendAs(func(b *array.Int32Builder, v parquet.Value) { b.Append(v.Int32()) })
	}
}

func int64Column(logical *format.LogicalType) (arrow.DataType, func(array.Builder, parquet.Value)) {
	switch {
	case logical == nil:
	case logical.Timestamp != nil:
		dt := &arrow.TimestampType{Unit: timeUnit(logical.Timestamp.Unit)}
		if logical.Timestamp.IsAdjustedToUTC {
			dt.TimeZone = "UTC"
		}
		return dt, appendAs(func(b *array.TimestampBuilder, v parquet.Value) { b.Append(arrow.Timestamp(v.Int64())) })
	case logical.Time != nil:
		dt := &arrow.Time64Type{Unit: timeUnit(logical.Time.Unit)}
		return dt, appendAs(func(b *array.Time64Builder, v parquet.Value) { b.Append(arrow.Time64(v.Int64())) })
	case logical.Decimal != nil:
		dt := &arrow.Decimal128Type{Precision: logical.Decimal.Precision, Scale: logical.Decimal.Scale}
		return dt, appendAs(func(b *array.Decimal128Builder, v parquet.Value) {
			b.Append(decimal128.FromI64(v.Int64()))
		})
	case logical.Integer != nil:
		return integerColumn(logical.Integer)
	}
	return arrow.PrimitiveTypes.Int64,
		appendAs(func(b *array.Int64Builder, v parquet.Value) { b.Append(v.Int64()) })
}

// decimalColumn maps big-endian two's complement decimals. Precisions beyond
// Decimal128 have no mapping.
func decimalColumn(d *format.DecimalType) (arrow.DataType, func(array.Builder, parquet.Value)) {
	if d.Precision > 38 {
		return nil, nil
	}
	dt := &arrow.Decimal128Type{Precision: d.Precision, Scale: d.Scale}
	return dt, appendAs(func(b *array.Decimal128Builder, v parquet.Value) {
		b.Append(decimalFromBigEndian(v.ByteArray()))
	})
}

func decimalFromBigEndian(buf []byte) decimal128.Num {
	var hi int64
	var lo uint64
	if len(buf) > 0 && buf[0]&0x80 != 0 {
		hi, lo = -1, math.MaxUint64
	}
	for _, c := range buf {
		hi = hi<<8 | int64(lo>>56)
		lo = lo<<8 | uint64(c)
	}
	return decimal128.New(hi, lo)
}

func timeUnit(u format.TimeUnit) arrow.TimeUnit {
	switch {
	case u.Millis != nil:
		return arrow.Millisecond
	case u.Nanos != nil:
		return arrow.Nanosecond
	default:
		return arrow.Microsecond
	}
}
