package source

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"fragstats/logging"
	"fragstats/statistics"
)

// Chunker yields the chunks of one data file
type Chunker interface {
	NumChunks() int
	ReadChunk(i int) (arrow.Record, error)
}

// Scan appends every chunk of src to collector and returns the number of rows
// scanned. Cancellation is checked between chunks.
func Scan(ctx context.Context, src Chunker, collector *statistics.Collector) (int64, error) {
	tracer := logging.GetTracer()
	var rows int64

	for i := 0; i < src.NumChunks(); i++ {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		rec, err := src.ReadChunk(i)
		if err != nil {
			return rows, err
		}
		err = collector.AppendRecord(rec)
		n := rec.NumRows()
		rec.Release()
		if err != nil {
			return rows, fmt.Errorf("failed to collect chunk %d: %w", i, err)
		}
		rows += n
	}

	tracer.Debug(logging.TraceComponentSource, "Scan complete",
		zap.Int("chunks", src.NumChunks()), zap.Int64("rows", rows))
	return rows, nil
}
