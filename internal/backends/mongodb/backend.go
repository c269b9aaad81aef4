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

package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// Parts of Prometheus metric names.
const (
	namespace = "docmap"
	subsystem = "mongodb"
)

// backend implements backends.Backend interface.
type backend struct {
	db *mongo.Database
	l  *zap.Logger

	// disconnect is nil for databases that are owned by the caller
	disconnect func(context.Context) error

	commands *prometheus.CounterVec
}

// NewBackendParams represents the parameters of NewBackend function.
//
// Either URI with database name or DB should be set.
//
//nolint:vet // for readability
type NewBackendParams struct {
	URI string
	DB  *mongo.Database
	L   *zap.Logger

	_ struct{} // prevent unkeyed literals
}

// NewBackend creates a new MongoDB backend.
//
// If DB is given, the backend does not disconnect its client on Close.
func NewBackend(params *NewBackendParams) (backends.Backend, error) {
	b := &backend{
		db: params.DB,
		l:  params.L,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_total",
				Help:      "The total number of MongoDB commands sent by the backend.",
			},
			[]string{"command", "result"},
		),
	}

	if b.db != nil {
		return backends.BackendContract(b), nil
	}

	cs, err := connstring.ParseAndValidate(params.URI)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if cs.Database == "" {
		return nil, lazyerrors.Errorf("no database name in MongoDB URI %q", params.URI)
	}

	opts := options.Client().ApplyURI(params.URI).SetMonitor(b.monitor())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, lazyerrors.Error(err)
	}

	b.db = client.Database(cs.Database)
	b.disconnect = client.Disconnect

	return backends.BackendContract(b), nil
}

// monitor returns command monitor that logs commands and counts them.
func (b *backend) monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(ctx context.Context, e *event.CommandStartedEvent) {
			if ce := b.l.Check(zap.DebugLevel, "Command started"); ce != nil {
				ce.Write(
					zap.String("command", e.CommandName),
					zap.Int64("request_id", e.RequestID),
					zap.Stringer("body", e.Command),
				)
			}
		},
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			b.commands.WithLabelValues(e.CommandName, "ok").Inc()
			b.l.Debug(
				"Command succeeded",
				zap.String("command", e.CommandName),
				zap.Int64("request_id", e.RequestID),
				zap.Duration("duration", e.Duration),
			)
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			b.commands.WithLabelValues(e.CommandName, "error").Inc()
			b.l.Debug(
				"Command failed",
				zap.String("command", e.CommandName),
				zap.Int64("request_id", e.RequestID),
				zap.Duration("duration", e.Duration),
				zap.String("failure", e.Failure),
			)
		},
	}
}

// Close implements backends.Backend interface.
func (b *backend) Close() {
	if b.disconnect == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.disconnect(ctx); err != nil {
		b.l.Error("Failed to disconnect", zap.Error(err))
	}
}

// Aggregate implements backends.Backend interface.
func (b *backend) Aggregate(ctx context.Context, params *backends.AggregateParams) (*backends.AggregateResult, error) {
	opts := new(options.AggregateOptions)
	if params.BatchSize > 0 {
		opts.BatchSize = pointer.ToInt32(params.BatchSize)
	}

	pipeline := params.Pipeline
	if pipeline == nil {
		pipeline = []bson.D{}
	}

	cursor, err := b.db.Collection(params.Collection).Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &backends.AggregateResult{
		Iter: backends.NewSourceIterator(ctx, &cursorSource{cursor: cursor}),
	}, nil
}

// InsertAll implements backends.Backend interface.
func (b *backend) InsertAll(ctx context.Context, params *backends.InsertAllParams) (*backends.InsertAllResult, error) {
	res := &backends.InsertAllResult{
		IDs: make([]any, len(params.Docs)),
	}

	if len(params.Docs) == 0 {
		return res, nil
	}

	docs := make([]any, len(params.Docs))

	for i, doc := range params.Docs {
		id, ok := types.Get(doc, "_id")
		if !ok {
			id = primitive.NewObjectID()
			doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
		}

		res.IDs[i] = id
		docs[i] = doc
	}

	_, err := b.db.Collection(params.Collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, backends.NewError(backends.ErrorCodeInsertDuplicateID, err)
		}

		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// ListCollections implements backends.Backend interface.
func (b *backend) ListCollections(ctx context.Context, params *backends.ListCollectionsParams) (*backends.ListCollectionsResult, error) {
	names, err := b.db.ListCollectionNames(ctx, bson.D{{Key: "type", Value: "collection"}})
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	slices.Sort(names)

	res := &backends.ListCollectionsResult{
		Collections: make([]backends.CollectionInfo, 0, len(names)),
	}

	for _, name := range names {
		res.Collections = append(res.Collections, backends.CollectionInfo{Name: name})
	}

	return res, nil
}

// DropCollection implements backends.Backend interface.
func (b *backend) DropCollection(ctx context.Context, params *backends.DropCollectionParams) error {
	names, err := b.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: params.Name}})
	if err != nil {
		return lazyerrors.Error(err)
	}

	if len(names) == 0 {
		return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, nil)
	}

	if err = b.db.Collection(params.Name).Drop(ctx); err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) && ce.Name == "NamespaceNotFound" {
			return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, err)
		}

		return lazyerrors.Error(err)
	}

	return nil
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	b.commands.Describe(ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	b.commands.Collect(ch)
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
