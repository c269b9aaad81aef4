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

// Package debug provides the debug HTTP handler with metrics, graphs and profiles.
package debug

import (
	"bytes"
	"context"
	"errors"
	_ "expvar" // for /debug/vars
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // for /debug/pprof
	"slices"
	"text/template"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/FerretDB/docmap/internal/util/lazyerrors"
	"github.com/FerretDB/docmap/internal/util/must"
)

// Handler represents the debug handler.
type Handler struct {
	lis net.Listener
	srv *http.Server
	l   *zap.Logger

	handlers map[string]string
}

// ListenOpts represents [Listen] options.
type ListenOpts struct {
	TCPAddr string
	L       *zap.Logger
	R       prometheus.Registerer
	G       prometheus.Gatherer
}

// Listen creates a new debug handler and starts listening on the given address.
//
// All handlers are registered on http.DefaultServeMux, so Listen should be called once.
func Listen(opts *ListenOpts) (*Handler, error) {
	stdL := must.NotFail(zap.NewStdLogAt(opts.L, zap.WarnLevel))

	g := newGatherer(opts.G, opts.L.Named("gatherer"))

	http.Handle("/debug/metrics", promhttp.InstrumentMetricHandler(
		opts.R, promhttp.HandlerFor(g, promhttp.HandlerOpts{
			ErrorLog:          stdL,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          opts.R,
			EnableOpenMetrics: true,
		}),
	))

	plots, err := datastorePlots(g)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	svOpts := []statsviz.Option{statsviz.Root("/debug/graphs")}
	for _, p := range plots {
		svOpts = append(svOpts, statsviz.TimeseriesPlot(p))
	}

	if err = statsviz.Register(http.DefaultServeMux, svOpts...); err != nil {
		return nil, lazyerrors.Error(err)
	}

	http.HandleFunc("/debug/archive", archiveHandler(opts.L.Named("archive")))

	handlers := map[string]string{
		// custom handlers registered above
		"/debug/archive": "Zip archive with metrics and profiles",
		"/debug/graphs":  "Visualize metrics",
		"/debug/metrics": "Metrics in Prometheus format",

		// stdlib handlers
		"/debug/vars":  "Expvar package metrics",
		"/debug/pprof": "Runtime profiling data for pprof",
	}

	var page bytes.Buffer
	must.NoError(template.Must(template.New("debug").Parse(`
	<html>
	<body>
	<ul>
	{{range $path, $desc := .}}
		<li><a href="{{$path}}">{{$path}}</a>: {{$desc}}</li>
	{{end}}
	</ul>
	</body>
	</html>
	`)).Execute(&page, handlers))

	http.HandleFunc("/debug", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(page.Bytes())
	})

	http.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		http.Redirect(rw, req, "/debug", http.StatusSeeOther)
	})

	lis, err := net.Listen("tcp", opts.TCPAddr)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &Handler{
		lis: lis,
		srv: &http.Server{
			ErrorLog:          stdL,
			ReadHeaderTimeout: 5 * time.Second,
		},
		l:        opts.L,
		handlers: handlers,
	}, nil
}

// Addr returns the listener address.
func (h *Handler) Addr() net.Addr {
	return h.lis.Addr()
}

// Serve runs the handler until ctx is canceled.
func (h *Handler) Serve(ctx context.Context) {
	h.srv.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	root := fmt.Sprintf("http://%s", h.lis.Addr())
	h.l.Sugar().Infof("Starting debug server on %s ...", root)

	paths := maps.Keys(h.handlers)
	slices.Sort(paths)

	for _, path := range paths {
		h.l.Sugar().Infof("%s%s - %s", root, path, h.handlers[path])
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := h.srv.Serve(h.lis); !errors.Is(err, http.ErrServerClosed) {
			h.l.DPanic("Debug server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// use new context for shutdown
	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer stopCancel()

	_ = h.srv.Shutdown(stopCtx)
	_ = h.srv.Close()

	<-done

	h.l.Sugar().Info("Debug server stopped.")
}
