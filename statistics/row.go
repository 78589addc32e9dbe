package statistics

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
)

// Row holds the statistics of one field over one chunk.
//
// MinValue and MaxValue are single-element arrays of the field's bound type.
// A nil bound means no bound could be represented, which is different from a
// null value.
type Row struct {
	NullCount uint32
	MinValue  arrow.Array
	MaxValue  arrow.Array
}

// HasMin reports whether the row carries a minimum
func (r Row) HasMin() bool {
	return r.MinValue != nil
}

// HasMax reports whether the row carries a maximum
func (r Row) HasMax() bool {
	return r.MaxValue != nil
}

// Release releases the bound arrays held by the row
func (r *Row) Release() {
	if r.MinValue != nil {
		r.MinValue.Release()
		r.MinValue = nil
	}
	if r.MaxValue != nil {
		r.MaxValue.Release()
		r.MaxValue = nil
	}
}

// nullCount saturates at the largest uint32
func nullCount(n int64) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}
