// Package statsfile persists statistics records as Arrow IPC files.
package statsfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fragstats/logging"
	"fragstats/statistics"
)

// Extension is the suffix of statistics file names
const Extension = ".arrow"

// Compression selects the IPC body compression
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

var (
	ErrInvalidStatistics = errors.New("not a statistics record")
	ErrFieldNotFound     = errors.New("field has no statistics column")
)

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported statistics compression: %s", s)
	}
}

// NewPath returns a fresh statistics file path under dir
func NewPath(dir string) string {
	return filepath.Join(dir, uuid.New().String()+Extension)
}

// Write stores rec at path as a single-batch IPC file. The file is written
// next to path and renamed into place once complete.
func Write(path string, rec arrow.Record, compression Compression, mem memory.Allocator) error {
	if err := Validate(rec.Schema()); err != nil {
		return err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	opts := []ipc.Option{ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem)}
	switch compression {
	case CompressionZstd:
		opts = append(opts, ipc.WithZstd())
	case CompressionLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CompressionNone, "":
	default:
		return fmt.Errorf("unsupported statistics compression: %s", compression)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create statistics file: %w", err)
	}

	w, err := ipc.NewFileWriter(file, opts...)
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to create IPC writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write statistics record: %w", err)
	}
	if err := w.Close(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to finish statistics file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to move statistics file into place: %w", err)
	}

	logging.GetTracer().Debug(logging.TraceComponentStatsFile, "Statistics file written",
		zap.String("path", path),
		zap.String("compression", string(compression)),
		zap.Int64("chunks", rec.NumRows()),
		zap.Int64("columns", rec.NumCols()))
	return nil
}

// Read loads the statistics record stored at path. The caller releases it.
func Read(path string, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statistics file: %w", err)
	}
	defer file.Close()

	r, err := ipc.NewFileReader(file, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC reader: %w", err)
	}
	defer r.Close()

	if err := Validate(r.Schema()); err != nil {
		return nil, err
	}

	switch r.NumRecords() {
	case 0:
		return emptyRecord(mem, r.Schema()), nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d record batches", ErrInvalidStatistics, r.NumRecords())
	}

	rec, err := r.Record(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics record: %w", err)
	}
	rec.Retain()
	return rec, nil
}

func emptyRecord(mem memory.Allocator, schema *arrow.Schema) arrow.Record {
	columns := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = array.MakeArrayOfNull(mem, f.Type, 0)
		defer columns[i].Release()
	}
	return array.NewRecord(schema, columns, 0)
}

// Validate checks that schema has the shape produced by statistics.Collector
func Validate(schema *arrow.Schema) error {
	if schema.NumFields() == 0 || schema.Field(0).Name != statistics.NumValuesColumn ||
		!arrow.TypeEqual(schema.Field(0).Type, arrow.PrimitiveTypes.Int64) {
		return fmt.Errorf("%w: first column must be %s int64", ErrInvalidStatistics, statistics.NumValuesColumn)
	}

	for _, f := range schema.Fields()[1:] {
		if _, err := strconv.ParseInt(f.Name, 10, 32); err != nil {
			return fmt.Errorf("%w: column %q is not a field id", ErrInvalidStatistics, f.Name)
		}
		st, ok := f.Type.(*arrow.StructType)
		if !ok || st.NumFields() != 3 {
			return fmt.Errorf("%w: column %s is not a statistics struct", ErrInvalidStatistics, f.Name)
		}
		if st.Field(0).Name != statistics.NullCountColumn ||
			st.Field(1).Name != statistics.MinValueColumn ||
			st.Field(2).Name != statistics.MaxValueColumn {
			return fmt.Errorf("%w: column %s has unexpected children", ErrInvalidStatistics, f.Name)
		}
	}
	return nil
}

// FieldStatistics returns the statistics struct of a field
func FieldStatistics(rec arrow.Record, fieldID int32) (*array.Struct, error) {
	indices := rec.Schema().FieldIndices(strconv.FormatInt(int64(fieldID), 10))
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrFieldNotFound, fieldID)
	}
	st, ok := rec.Column(indices[0]).(*array.Struct)
	if !ok {
		return nil, fmt.Errorf("%w: column %d is not a struct", ErrInvalidStatistics, fieldID)
	}
	return st, nil
}
