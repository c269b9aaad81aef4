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

// Command docmap imports documents and runs aggregation pipelines on docmap datastores.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FerretDB/docmap/datastore"
	"github.com/FerretDB/docmap/internal/util/debug"
	"github.com/FerretDB/docmap/internal/util/debugbuild"
	"github.com/FerretDB/docmap/internal/util/logging"
	"github.com/FerretDB/docmap/internal/util/observability"
	"github.com/FerretDB/docmap/internal/util/version"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
//nolint:lll // some tags are long
type cli struct {
	Version kong.VersionFlag `help:"Print version to stdout and exit." env:"-"`

	Backend       string `default:"sqlite"                           help:"${help_backend}" enum:"${enum_backend}"`
	SQLiteURI     string `default:"file:docmap.sqlite"               help:"SQLite URI for 'sqlite' backend."         name:"sqlite-uri"`
	PostgreSQLURL string `default:"postgres://127.0.0.1:5432/docmap" help:"PostgreSQL URL for 'postgresql' backend." name:"postgresql-url"`
	MongoDBURI    string `default:"mongodb://127.0.0.1:27017/docmap" help:"MongoDB URI for 'mongodb' backend."       name:"mongodb-uri"`
	BatchSize     int32  `default:"0"                                help:"MongoDB cursor batch size; 0 for server's default."`

	Log struct {
		Level  string `default:"${default_log_level}" help:"${help_log_level}"`
		Format string `default:"console"              help:"${help_log_format}" enum:"${enum_log_format}"`
	} `embed:"" prefix:"log-"`

	OTLPEndpoint string `default:""  help:"OTLP/HTTP endpoint for traces; empty disables tracing." name:"otlp-endpoint"`
	DebugAddr    string `default:"-" help:"Listen address for HTTP handlers for metrics, pprof, etc."`
	DumpMetrics  bool   `default:"false" help:"Dump all metrics to stderr before exit."`

	Import      importCmd      `cmd:"" help:"Import Extended JSON lines into a collection."`
	Aggregate   aggregateCmd   `cmd:"" help:"Run an aggregation pipeline and print results as Extended JSON lines."`
	Collections collectionsCmd `cmd:"" help:"List collections."`
	Drop        dropCmd        `cmd:"" help:"Drop a collection."`
}

// Additional variables for the kong parsers.
var (
	backends = []string{"sqlite", "postgresql", "mongodb"}

	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	logFormats = []string{"console", "json"}
)

// kongOptions returns options for the kong parser.
func kongOptions(stdout io.Writer, exit func(int)) []kong.Option {
	return []kong.Option{
		kong.Name("docmap"),
		kong.Description("Map Go structs to documents and aggregate them."),
		kong.Vars{
			"version":           version.Get().Version,
			"default_log_level": defaultLogLevel().String(),

			"enum_backend":    strings.Join(backends, ","),
			"enum_log_format": strings.Join(logFormats, ","),

			"help_backend":    fmt.Sprintf("Backend: '%s'.", strings.Join(backends, "', '")),
			"help_log_format": fmt.Sprintf("Log format: '%s'.", strings.Join(logFormats, "', '")),
			"help_log_level":  fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),
		},
		kong.DefaultEnvars("DOCMAP"),
		kong.Writers(stdout, os.Stderr),
		kong.Exit(exit),
	}
}

// defaultLogLevel returns the default log level.
func defaultLogLevel() zapcore.Level {
	if version.Get().DebugBuild {
		return zap.DebugLevel
	}

	return zap.WarnLevel
}

// globals are bound to all commands' Run methods.
type globals struct {
	ctx    context.Context
	ds     *datastore.Datastore
	l      *zap.Logger
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		stop()
		log.Fatal(err)
	}
}

// run parses arguments and runs the selected command.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	// to increase a chance of resource finalizers to spot problems
	if debugbuild.Enabled {
		defer func() {
			runtime.GC()
			runtime.GC()
		}()
	}

	var flags cli

	parser, err := kong.New(&flags, kongOptions(stdout, os.Exit)...)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	l, err := setupLogger(&flags)
	if err != nil {
		return err
	}

	if _, err = maxprocs.Set(maxprocs.Logger(l.Sugar().Debugf)); err != nil {
		l.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	shutdown, err := observability.SetupOtel(&observability.OtelOpts{
		Service:  "docmap",
		Version:  version.Get().Version,
		Endpoint: flags.OTLPEndpoint,
		L:        l,
	})
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry: %w", err)
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := shutdown(sctx); err != nil {
			l.Warn("Failed to shut down OpenTelemetry", zap.Error(err))
		}
	}()

	ds, err := openDatastore(&flags, l)
	if err != nil {
		return err
	}

	defer ds.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(ds)

	// https://github.com/alecthomas/kong/issues/389
	if flags.DebugAddr != "" && flags.DebugAddr != "-" {
		h, err := debug.Listen(&debug.ListenOpts{
			TCPAddr: flags.DebugAddr,
			L:       l.Named("debug"),
			R:       reg,
			G:       reg,
		})
		if err != nil {
			return err
		}

		dctx, dcancel := context.WithCancel(ctx)

		var wg sync.WaitGroup
		wg.Add(1)

		go func() {
			defer wg.Done()
			h.Serve(dctx)
		}()

		defer func() {
			dcancel()
			wg.Wait()
		}()
	}

	if flags.DumpMetrics {
		defer dumpMetrics(reg, os.Stderr, l)
	}

	return kctx.Run(&globals{
		ctx:    ctx,
		ds:     ds,
		l:      l,
		stdin:  stdin,
		stdout: stdout,
	})
}

// setupLogger setups zap logger.
func setupLogger(flags *cli) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(flags.Log.Level)
	if err != nil {
		return nil, err
	}

	l, err := logging.Setup(level, flags.Log.Format)
	if err != nil {
		return nil, err
	}

	info := version.Get()
	l.Debug(
		"Starting docmap "+info.Version+"...",
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.Bool("dirty", info.Dirty),
		zap.String("package", info.Package),
		zap.Bool("debugBuild", info.DebugBuild),
		zap.Any("buildEnvironment", info.BuildEnvironment),
	)

	if debugbuild.Enabled {
		l.Info("This is debug build. The performance will be affected.")
	}

	return l, nil
}

// openDatastore opens the datastore selected by flags.
func openDatastore(flags *cli, l *zap.Logger) (*datastore.Datastore, error) {
	opts := &datastore.Opts{
		Logger:    l,
		BatchSize: flags.BatchSize,
	}

	switch flags.Backend {
	case "sqlite":
		return datastore.OpenSQLite(flags.SQLiteURI, opts)
	case "postgresql":
		return datastore.OpenPostgreSQL(flags.PostgreSQLURL, opts)
	case "mongodb":
		return datastore.OpenMongoDB(flags.MongoDBURI, opts)
	default:
		return nil, fmt.Errorf("unknown backend %q", flags.Backend)
	}
}

// dumpMetrics dumps all gathered metrics in text format.
func dumpMetrics(g prometheus.Gatherer, w io.Writer, l *zap.Logger) {
	mfs, err := g.Gather()
	if err != nil {
		l.Warn("Failed to gather metrics", zap.Error(err))
	}

	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			l.Warn("Failed to dump metrics", zap.Error(err))
			return
		}
	}
}
