// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsql

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "docmap"
	subsystem = "sqldb"
)

// metrics exposes connection pool state and query statistics.
type metrics struct {
	stats   func() sql.DBStats
	labels  prometheus.Labels
	queries *prometheus.HistogramVec

	open    *prometheus.Desc
	inUse   *prometheus.Desc
	waitCnt *prometheus.Desc
}

// newMetrics creates metrics for the database with the given name.
func newMetrics(name string, stats func() sql.DBStats) *metrics {
	labels := prometheus.Labels{"name": name}

	desc := func(n, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, n), help, nil, labels)
	}

	return &metrics{
		stats:  stats,
		labels: labels,
		queries: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "query_seconds",
				Help:        "Query durations.",
				ConstLabels: labels,
				Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"result"},
		),
		open:    desc("open", "The number of established connections both in use and idle."),
		inUse:   desc("in_use", "The number of connections currently in use."),
		waitCnt: desc("wait_count", "The total number of connections waited for."),
	}
}

// observe records a query duration.
func (m *metrics) observe(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.queries.WithLabelValues(result).Observe(d.Seconds())
}

// Describe implements prometheus.Collector.
func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.open
	ch <- m.inUse
	ch <- m.waitCnt
	m.queries.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	stats := m.stats()

	ch <- prometheus.MustNewConstMetric(m.open, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(m.inUse, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(m.waitCnt, prometheus.CounterValue, float64(stats.WaitCount))
	m.queries.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*metrics)(nil)
)
