// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driverbase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReaderMetrics counts what every reader sharing it has fetched. A nil
// *ReaderMetrics records nothing.
type ReaderMetrics struct {
	batches      prometheus.Counter
	rows         prometheus.Counter
	errors       *prometheus.CounterVec
	fillDuration prometheus.Histogram
	bufferBytes  prometheus.Gauge
}

// NewReaderMetrics creates the reader metrics and registers them with reg.
func NewReaderMetrics(reg prometheus.Registerer) (*ReaderMetrics, error) {
	m := &ReaderMetrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arrow_odbc",
			Subsystem: "reader",
			Name:      "batches_total",
			Help:      "Number of record batches fetched",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arrow_odbc",
			Subsystem: "reader",
			Name:      "rows_total",
			Help:      "Number of rows fetched",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arrow_odbc",
			Subsystem: "reader",
			Name:      "errors_total",
			Help:      "Number of failed batches by stage",
		}, []string{"stage"}),
		fillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arrow_odbc",
			Subsystem: "reader",
			Name:      "fill_duration_seconds",
			Help:      "Time spent converting transit buffers into Arrow arrays per batch",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		bufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arrow_odbc",
			Subsystem: "reader",
			Name:      "transit_buffer_bytes",
			Help:      "Bytes currently held in transit buffers by open readers",
		}),
	}
	for _, c := range []prometheus.Collector{m.batches, m.rows, m.errors, m.fillDuration, m.bufferBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ReaderMetrics) batchFetched(rows int, fill time.Duration) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.rows.Add(float64(rows))
	m.fillDuration.Observe(fill.Seconds())
}

func (m *ReaderMetrics) failed(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

func (m *ReaderMetrics) buffersAllocated(bytes int) {
	if m == nil {
		return
	}
	m.bufferBytes.Add(float64(bytes))
}

func (m *ReaderMetrics) buffersReleased(bytes int) {
	if m == nil {
		return
	}
	m.bufferBytes.Sub(float64(bytes))
}
