package statistics

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func newCheckedAllocator(t *testing.T) *memory.CheckedAllocator {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}

// valid marks every nil entry of vals as null
func valid[T any](vals []*T) ([]T, []bool) {
	out := make([]T, len(vals))
	ok := make([]bool, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = *v
			ok[i] = true
		}
	}
	return out, ok
}

func ptr[T any](v T) *T {
	return &v
}

func int64Array(mem memory.Allocator, vals ...int64) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

func int64ArrayNulls(mem memory.Allocator, vals ...*int64) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(valid(vals))
	return b.NewArray()
}

func float64Array(mem memory.Allocator, vals ...float64) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

func stringArray(mem memory.Allocator, vals ...*string) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(valid(vals))
	return b.NewArray()
}

func texts(vals ...string) []*string {
	out := make([]*string, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out
}

func binaryArray(mem memory.Allocator, vals ...[]byte) arrow.Array {
	b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return b.NewArray()
}

func releaseAll(arrays []arrow.Array) {
	for _, arr := range arrays {
		arr.Release()
	}
}
