package statistics

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Errors
var (
	ErrUnsupportedType = errors.New("unsupported type for statistics")
	ErrMisaligned      = errors.New("statistics are misaligned with row counts")
	ErrNoArrays        = errors.New("no arrays to collect statistics from")
	ErrMismatchedTypes = errors.New("arrays have different data types")
	ErrUnknownField    = errors.New("unknown field")
)

// UnsupportedTypeError is returned by the dispatcher for element types it has
// no reducer for.
type UnsupportedTypeError struct {
	Type arrow.DataType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type for statistics: %s", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// AlignmentError is returned by Collector.Finish when a field has a different
// number of statistics rows than there are row counts.
type AlignmentError struct {
	FieldID  int32
	Expected int
	Actual   int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("field %d has %d statistics rows, expected %d", e.FieldID, e.Actual, e.Expected)
}

func (e *AlignmentError) Is(target error) bool {
	return target == ErrMisaligned
}
