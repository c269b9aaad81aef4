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

package debug

import (
	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// sum returns the sum of all counter, gauge and untyped values of the metric family.
// Histograms contribute their sample counts.
func sum(g prometheus.Gatherer, name string) float64 {
	mfs, _ := g.Gather()

	var res float64

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			switch mf.GetType() { //nolint:exhaustive // summaries are not used
			case dto.MetricType_COUNTER:
				res += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				res += m.GetGauge().GetValue()
			case dto.MetricType_UNTYPED:
				res += m.GetUntyped().GetValue()
			case dto.MetricType_HISTOGRAM:
				res += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	return res
}

// plotSpec describes a single statsviz plot of summed metric families.
type plotSpec struct {
	name   string
	title  string
	info   string
	yTitle string
	series map[string]string // series name -> metric family name
	order  []string
}

// datastorePlots returns statsviz plots for docmap metrics.
func datastorePlots(g prometheus.Gatherer) ([]statsviz.TimeSeriesPlot, error) {
	specs := []plotSpec{{
		name:   "docmap_aggregations",
		title:  "Aggregations",
		info:   "Total number of submitted aggregations.",
		yTitle: "Aggregations",
		series: map[string]string{
			"submitted": "docmap_datastore_aggregations_total",
		},
		order: []string{"submitted"},
	}, {
		name:   "docmap_documents",
		title:  "Documents",
		info:   "Total number of inserted and returned documents.",
		yTitle: "Documents",
		series: map[string]string{
			"inserted": "docmap_datastore_documents_inserted_total",
			"returned": "docmap_datastore_documents_returned_total",
		},
		order: []string{"inserted", "returned"},
	}, {
		name:   "docmap_mongodb_commands",
		title:  "MongoDB commands",
		info:   "Total number of commands sent to MongoDB.",
		yTitle: "Commands",
		series: map[string]string{
			"commands": "docmap_mongodb_commands_total",
		},
		order: []string{"commands"},
	}}

	res := make([]statsviz.TimeSeriesPlot, 0, len(specs))

	for _, s := range specs {
		series := make([]statsviz.TimeSeries, 0, len(s.order))

		for _, name := range s.order {
			family := s.series[name]

			series = append(series, statsviz.TimeSeries{
				Name:    name,
				Unitfmt: "%{y:.4s}",
				GetValue: func() float64 {
					return sum(g, family)
				},
			})
		}

		plot, err := statsviz.TimeSeriesPlotConfig{
			Name:       s.name,
			Title:      s.title,
			Type:       statsviz.Scatter,
			InfoText:   s.info,
			YAxisTitle: s.yTitle,
			Series:     series,
		}.Build()
		if err != nil {
			return nil, err
		}

		res = append(res, plot)
	}

	return res, nil
}
