package statistics

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"fragstats/datatypes"
	"fragstats/logging"
)

var testFields = []datatypes.Field{
	{ID: 1, Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{ID: 0, Name: "id", Type: arrow.PrimitiveTypes.Int64},
}

func testRecord(mem memory.Allocator, ids []int64, names []*string) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	idArr := int64Array(mem, ids...)
	defer idArr.Release()
	nameArr := stringArray(mem, names...)
	defer nameArr.Release()
	return array.NewRecord(schema, []arrow.Array{idArr, nameArr}, int64(len(ids)))
}

func TestCollectorAppendRecord(t *testing.T) {
	mem := newCheckedAllocator(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	c := NewCollector(testFields, WithAllocator(mem), WithMetrics(metrics))
	defer c.Release()

	chunk1 := testRecord(mem, []int64{4, 3, 7, 2}, []*string{ptr("foo"), nil, ptr("bar"), ptr("baz")})
	defer chunk1.Release()
	chunk2 := testRecord(mem, []int64{-10, 3, 5}, texts("terrestial planet", "haw", "baz"))
	defer chunk2.Release()

	require.NoError(t, c.AppendRecord(chunk1))
	require.NoError(t, c.AppendRecord(chunk2))
	require.Equal(t, 2, c.NumChunks())

	rec, err := c.Finish()
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	require.Equal(t, 3, int(rec.NumCols()))
	assert.Equal(t, NumValuesColumn, rec.ColumnName(0))
	assert.Equal(t, "0", rec.ColumnName(1), "fields are ordered by id")
	assert.Equal(t, "1", rec.ColumnName(2))
	assert.False(t, rec.Schema().Field(0).Nullable)
	assert.False(t, rec.Schema().Field(1).Nullable)

	assert.Equal(t, []int64{4, 3}, rec.Column(0).(*array.Int64).Int64Values())

	ids := rec.Column(1).(*array.Struct)
	assert.Equal(t, []uint32{0, 0}, ids.Field(0).(*array.Uint32).Uint32Values())
	assert.Equal(t, []int64{2, -10}, ids.Field(1).(*array.Int64).Int64Values())
	assert.Equal(t, []int64{7, 5}, ids.Field(2).(*array.Int64).Int64Values())

	names := rec.Column(2).(*array.Struct)
	assert.Equal(t, []uint32{1, 0}, names.Field(0).(*array.Uint32).Uint32Values())
	assert.Equal(t, "bar", names.Field(1).(*array.String).Value(0))
	assert.Equal(t, "baz", names.Field(1).(*array.String).Value(1))
	assert.Equal(t, "foo", names.Field(2).(*array.String).Value(0))
	assert.Equal(t, "terrestial planf", names.Field(2).(*array.String).Value(1))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Chunks))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.Rows))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.AbsentBounds.WithLabelValues("max")))
}

func TestCollectorMisaligned(t *testing.T) {
	mem := newCheckedAllocator(t)
	c := NewCollector(testFields, WithAllocator(mem))
	defer c.Release()

	ids := int64Array(mem, 1, 2, 3)
	defer ids.Release()

	c.AppendNumRows(3)
	require.NoError(t, c.CollectField(0, []arrow.Array{ids}))

	_, err := c.Finish()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMisaligned)

	var alignment *AlignmentError
	require.True(t, errors.As(err, &alignment))
	assert.Equal(t, int32(1), alignment.FieldID)
	assert.Equal(t, 1, alignment.Expected)
	assert.Equal(t, 0, alignment.Actual)

	assert.Equal(t, 0, c.NumChunks(), "partial results are discarded")
	b, ok := c.Builder(0)
	require.True(t, ok)
	assert.Equal(t, 0, b.Len())
}

func TestCollectorTooManyRows(t *testing.T) {
	mem := newCheckedAllocator(t)
	c := NewCollector(testFields, WithAllocator(mem))
	defer c.Release()

	ids := int64Array(mem, 1, 2, 3)
	defer ids.Release()
	names := stringArray(mem, texts("foo", "bar", "baz")...)
	defer names.Release()

	for i := 0; i < 2; i++ {
		require.NoError(t, c.CollectField(0, []arrow.Array{ids}))
		require.NoError(t, c.CollectField(1, []arrow.Array{names}))
	}
	c.AppendNumRows(3)

	_, err := c.Finish()
	require.ErrorIs(t, err, ErrMisaligned)

	var alignment *AlignmentError
	require.True(t, errors.As(err, &alignment))
	assert.Equal(t, int32(0), alignment.FieldID)
	assert.Equal(t, 1, alignment.Expected)
	assert.Equal(t, 2, alignment.Actual)

	assert.Equal(t, 0, c.NumChunks(), "partial results are discarded")
	for _, f := range testFields {
		b, ok := c.Builder(f.ID)
		require.True(t, ok)
		assert.Equal(t, 0, b.Len(), "field %d", f.ID)
	}

	// The collector starts over after a failed Finish
	c.AppendNumRows(3)
	require.NoError(t, c.CollectField(0, []arrow.Array{ids}))
	require.NoError(t, c.CollectField(1, []arrow.Array{names}))
	rec, err := c.Finish()
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(1), rec.NumRows())
}

func TestCollectorCollectField(t *testing.T) {
	mem := newCheckedAllocator(t)
	c := NewCollector(testFields, WithAllocator(mem))
	defer c.Release()

	ids := int64Array(mem, 9)
	defer ids.Release()
	names := stringArray(mem, texts("x")...)
	defer names.Release()

	t.Run("UnknownField", func(t *testing.T) {
		err := c.CollectField(42, []arrow.Array{ids})
		require.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("WrongType", func(t *testing.T) {
		err := c.CollectField(0, []arrow.Array{names})
		require.ErrorIs(t, err, ErrMismatchedTypes)
		b, _ := c.Builder(0)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("Aligned", func(t *testing.T) {
		c.AppendNumRows(1)
		require.NoError(t, c.CollectField(0, []arrow.Array{ids}))
		require.NoError(t, c.CollectField(1, []arrow.Array{names}))

		rec, err := c.Finish()
		require.NoError(t, err)
		defer rec.Release()
		assert.Equal(t, int64(1), rec.NumRows())
	})
}

func TestCollectorMissingField(t *testing.T) {
	mem := newCheckedAllocator(t)
	fields := append([]datatypes.Field{{ID: 7, Name: "added_later", Type: arrow.PrimitiveTypes.Float64, Nullable: true}}, testFields...)
	c := NewCollector(fields, WithAllocator(mem))
	defer c.Release()

	chunk := testRecord(mem, []int64{1, 2}, texts("a", "b"))
	defer chunk.Release()
	require.NoError(t, c.AppendRecord(chunk))

	rec, err := c.Finish()
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, "7", rec.ColumnName(3))
	added := rec.Column(3).(*array.Struct)
	assert.Equal(t, []uint32{2}, added.Field(0).(*array.Uint32).Uint32Values())
	assert.True(t, added.Field(1).IsNull(0))
	assert.True(t, added.Field(2).IsNull(0))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, added.Field(1).DataType()))
}

func TestCollectorAppendRecordAtomic(t *testing.T) {
	mem := newCheckedAllocator(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	fields := []datatypes.Field{
		{ID: 0, Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{ID: 1, Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
	}
	c := NewCollector(fields, WithAllocator(mem), WithMetrics(metrics))
	defer c.Release()

	ids := int64Array(mem, 1, 2)
	defer ids.Release()
	tags := array.MakeArrayOfNull(mem, arrow.ListOf(arrow.BinaryTypes.String), 2)
	defer tags.Release()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	}, nil)
	rec := array.NewRecord(schema, []arrow.Array{ids, tags}, 2)
	defer rec.Release()

	err := c.AppendRecord(rec)
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, 0, c.NumChunks())
	b, _ := c.Builder(0)
	assert.Equal(t, 0, b.Len(), "no field is appended when one fails")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UnsupportedTypes.WithLabelValues("list")))
}

func TestCollectorDuplicateFieldID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := logging.NewTracer(zap.New(core))
	tracer.SetLevel(logging.TraceLevelWarn)
	tracer.EnableComponent(logging.TraceComponentCollector)

	mem := newCheckedAllocator(t)
	c := NewCollector([]datatypes.Field{
		{ID: 3, Name: "first", Type: arrow.PrimitiveTypes.Int32},
		{ID: 3, Name: "second", Type: arrow.BinaryTypes.String},
	}, WithAllocator(mem), WithTracer(tracer))
	defer c.Release()

	require.Len(t, c.Fields(), 1)
	assert.Equal(t, "first", c.Fields()[0].Name)
	b, ok := c.Builder(3)
	require.True(t, ok)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int32, b.DataType()))

	entries := logs.FilterMessage("Duplicate field id ignored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].ContextMap()["field"])
}

func TestCollectorEmpty(t *testing.T) {
	mem := newCheckedAllocator(t)
	c := NewCollector(testFields, WithAllocator(mem))
	defer c.Release()

	rec, err := c.Finish()
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(0), rec.NumRows())
	assert.Equal(t, 3, int(rec.NumCols()))
}
