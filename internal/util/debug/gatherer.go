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
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// gatherTTL is how long a snapshot is served before gathering again.
const gatherTTL = time.Second

// snapshot is a set of gathered metric families.
type snapshot struct {
	at  time.Time
	mfs []*dto.MetricFamily
}

// gatherer serves recent snapshots of another gatherer.
//
// statsviz plots query it once per series on every tick.
type gatherer struct {
	g prometheus.Gatherer
	l *zap.Logger

	m    sync.Mutex // serializes refreshes
	last atomic.Pointer[snapshot]
}

// newGatherer returns a new gatherer; nil g means prometheus.DefaultGatherer.
func newGatherer(g prometheus.Gatherer, l *zap.Logger) *gatherer {
	if g == nil {
		g = prometheus.DefaultGatherer
	}

	return &gatherer{g: g, l: l}
}

// fresh returns the last snapshot if it is not older than gatherTTL.
func (g *gatherer) fresh() *snapshot {
	if s := g.last.Load(); s != nil && time.Since(s.at) < gatherTTL {
		return s
	}

	return nil
}

// Gather implements prometheus.Gatherer.
//
// Gathering errors are logged; partial results are still returned.
func (g *gatherer) Gather() ([]*dto.MetricFamily, error) {
	if s := g.fresh(); s != nil {
		return s.mfs, nil
	}

	g.m.Lock()
	defer g.m.Unlock()

	if s := g.fresh(); s != nil {
		return s.mfs, nil
	}

	mfs, err := g.g.Gather()
	if err != nil {
		g.l.Warn("Failed to gather metrics", zap.Error(err), zap.Int("families", len(mfs)))
	}

	g.last.Store(&snapshot{at: time.Now(), mfs: mfs})

	return mfs, nil
}

// check interfaces
var (
	_ prometheus.Gatherer = (*gatherer)(nil)
)
