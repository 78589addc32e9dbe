package statistics

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"golang.org/x/exp/constraints"
)

// sequence is a read-only view of the values of one array. Arrow's typed
// arrays (*array.Int64, *array.String, ...) satisfy it directly.
type sequence[T any] interface {
	Len() int
	IsNull(i int) bool
	Value(i int) T
	NullN() int
}

type number interface {
	constraints.Integer | constraints.Float
}

// bounds is the running result of a reduction. ok is false until the first
// comparable value has been seen.
type bounds[T any] struct {
	min   T
	max   T
	nulls int64
	ok    bool
}

// reduce scans every non-null value of every sequence. Values for which skip
// returns true are neither bounds nor nulls.
func reduce[T any](seqs []sequence[T], less func(a, b T) bool, skip func(T) bool) bounds[T] {
	var b bounds[T]
	for _, seq := range seqs {
		b.nulls += int64(seq.NullN())
		for i := 0; i < seq.Len(); i++ {
			if seq.IsNull(i) {
				continue
			}
			v := seq.Value(i)
			if skip != nil && skip(v) {
				continue
			}
			if !b.ok {
				b.min, b.max, b.ok = v, v, true
				continue
			}
			if less(v, b.min) {
				b.min = v
			}
			if less(b.max, v) {
				b.max = v
			}
		}
	}
	return b
}

// reduceOrdered reduces integers and floats. NaN is skipped and a zero bound
// is reported as positive zero.
func reduceOrdered[T number](seqs []sequence[T]) bounds[T] {
	b := reduce(seqs, func(a, b T) bool { return a < b }, isNaN[T])
	if b.ok {
		var zero T
		// -0.0 == 0, so this only clears the sign bit
		if b.min == zero {
			b.min = zero
		}
		if b.max == zero {
			b.max = zero
		}
	}
	return b
}

// reduceFloat16 applies the float rules to half-precision values
func reduceFloat16(seqs []sequence[float16.Num]) bounds[float16.Num] {
	b := reduce(seqs, float16.Num.Less, float16.Num.IsNaN)
	if b.ok {
		if b.min.IsZero() {
			b.min = float16.New(0)
		}
		if b.max.IsZero() {
			b.max = float16.New(0)
		}
	}
	return b
}

func isNaN[T number](v T) bool {
	return v != v
}

func lessBool(a, b bool) bool {
	return !a && b
}

// dictionarySequence exposes the dictionary values referenced by a dictionary
// array. Each referenced value appears once; rows whose index or value is null
// are counted as nulls.
type dictionarySequence[T any] struct {
	values sequence[T]
	refs   []uint32
	nulls  int
}

func newDictionarySequence[T any](dict *array.Dictionary, values sequence[T]) *dictionarySequence[T] {
	refs := roaring.New()
	nulls := 0
	for i := 0; i < dict.Len(); i++ {
		if dict.IsNull(i) {
			nulls++
			continue
		}
		idx := dict.GetValueIndex(i)
		if values.IsNull(idx) {
			nulls++
			continue
		}
		refs.Add(uint32(idx))
	}
	return &dictionarySequence[T]{
		values: values,
		refs:   refs.ToArray(),
		nulls:  nulls,
	}
}

func (d *dictionarySequence[T]) Len() int        { return len(d.refs) }
func (d *dictionarySequence[T]) IsNull(int) bool { return false }
func (d *dictionarySequence[T]) Value(i int) T   { return d.values.Value(int(d.refs[i])) }
func (d *dictionarySequence[T]) NullN() int      { return d.nulls }
