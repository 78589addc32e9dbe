package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a collector. A nil *Metrics records
// nothing.
type Metrics struct {
	Chunks           prometheus.Counter
	Rows             prometheus.Counter
	UnsupportedTypes *prometheus.CounterVec
	AbsentBounds     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	chunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fragstats_chunks_total",
		Help: "Total chunks whose row count was recorded",
	})

	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fragstats_rows_total",
		Help: "Total rows across recorded chunks",
	})

	unsupported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fragstats_unsupported_type_total",
		Help: "Statistics requests rejected because of the column type",
	}, []string{"type"})

	absent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fragstats_absent_bounds_total",
		Help: "Statistics rows appended without a min or max bound",
	}, []string{"bound"})

	reg.MustRegister(chunks, rows, unsupported, absent)

	return &Metrics{
		Chunks:           chunks,
		Rows:             rows,
		UnsupportedTypes: unsupported,
		AbsentBounds:     absent,
	}
}

func (m *Metrics) observeChunk(rows int64) {
	if m == nil {
		return
	}
	m.Chunks.Inc()
	m.Rows.Add(float64(rows))
}

func (m *Metrics) observeRow(row Row) {
	if m == nil {
		return
	}
	if !row.HasMin() {
		m.AbsentBounds.WithLabelValues("min").Inc()
	}
	if !row.HasMax() {
		m.AbsentBounds.WithLabelValues("max").Inc()
	}
}

func (m *Metrics) observeUnsupported(err *UnsupportedTypeError) {
	if m == nil {
		return
	}
	m.UnsupportedTypes.WithLabelValues(err.Type.Name()).Inc()
}
