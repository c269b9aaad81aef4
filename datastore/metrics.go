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

package datastore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "docmap"
	subsystem = "datastore"
)

// metrics represents datastore metrics.
type metrics struct {
	aggregations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	returned     *prometheus.CounterVec
	inserted     *prometheus.CounterVec
}

// newMetrics creates new datastore metrics.
func newMetrics() *metrics {
	return &metrics{
		aggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "aggregations_total",
				Help:      "The total number of submitted aggregations.",
			},
			[]string{"collection", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "aggregation_start_seconds",
				Help:      "Time until the backend returned a cursor.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),
		returned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "documents_returned_total",
				Help:      "The total number of documents returned by aggregations.",
			},
			[]string{"collection"},
		),
		inserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "documents_inserted_total",
				Help:      "The total number of inserted documents.",
			},
			[]string{"collection"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	m.aggregations.Describe(ch)
	m.duration.Describe(ch)
	m.returned.Describe(ch)
	m.inserted.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	m.aggregations.Collect(ch)
	m.duration.Collect(ch)
	m.returned.Collect(ch)
	m.inserted.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*metrics)(nil)
)
