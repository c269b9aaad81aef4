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

// Package datastore binds Go structs to collections of a document database.
//
// A Datastore wraps one of the supported backends:
// SQLite and PostgreSQL (documents are stored as BSON, pipelines are evaluated in-process)
// or MongoDB (pipelines are executed by the server).
package datastore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/aggregation"
	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/backends/mongodb"
	"github.com/FerretDB/docmap/internal/backends/postgresql"
	"github.com/FerretDB/docmap/internal/backends/sqlite"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
	"github.com/FerretDB/docmap/mapping"
)

var (
	// ErrDuplicateID is returned when a document with the same identifier already exists.
	ErrDuplicateID = errors.New("datastore: duplicate identifier")

	// ErrNotFound is returned by Query.First when no document matches the filter.
	ErrNotFound = errors.New("datastore: not found")

	// ErrInvalidCollectionName is returned for collection names that backends can't store.
	ErrInvalidCollectionName = errors.New("datastore: invalid collection name")

	// ErrCollectionDoesNotExist is returned by Drop for missing collections.
	ErrCollectionDoesNotExist = errors.New("datastore: collection does not exist")
)

// Opts represents Datastore options.
type Opts struct {
	// Logger is used for all logging; nil disables logging.
	Logger *zap.Logger

	// Mapper describes Go types; nil means mapping.DefaultMapper.
	Mapper *mapping.Mapper

	// BatchSize is the number of documents fetched from MongoDB at once; 0 means server's default.
	BatchSize int32

	// to prevent unkeyed literals
	_ struct{}
}

// Datastore stores Go structs in collections and runs aggregations over them.
//
// It is safe for concurrent use.
type Datastore struct {
	b         backends.Backend
	mapper    *mapping.Mapper
	l         *zap.Logger
	m         *metrics
	batchSize int32
}

// OpenSQLite opens a datastore backed by SQLite database file,
// for example "file:/var/lib/docmap/data.sqlite" or "file:test?mode=memory".
func OpenSQLite(uri string, opts *Opts) (*Datastore, error) {
	opts = defaults(opts)

	b, err := sqlite.NewBackend(&sqlite.NewBackendParams{
		URI: uri,
		L:   opts.Logger.Named("backend.sqlite"),
	})
	if err != nil {
		return nil, err
	}

	return newDatastore(b, opts), nil
}

// OpenPostgreSQL opens a datastore backed by PostgreSQL database.
func OpenPostgreSQL(url string, opts *Opts) (*Datastore, error) {
	opts = defaults(opts)

	b, err := postgresql.NewBackend(&postgresql.NewBackendParams{
		URI: url,
		L:   opts.Logger.Named("backend.postgresql"),
	})
	if err != nil {
		return nil, err
	}

	return newDatastore(b, opts), nil
}

// OpenMongoDB connects to MongoDB; the URI must contain the database name.
func OpenMongoDB(uri string, opts *Opts) (*Datastore, error) {
	opts = defaults(opts)

	b, err := mongodb.NewBackend(&mongodb.NewBackendParams{
		URI: uri,
		L:   opts.Logger.Named("backend.mongodb"),
	})
	if err != nil {
		return nil, err
	}

	return newDatastore(b, opts), nil
}

// WrapMongoDB returns a datastore that uses the given MongoDB database.
// Closing the datastore does not disconnect the database's client.
func WrapMongoDB(db *mongo.Database, opts *Opts) (*Datastore, error) {
	if db == nil {
		return nil, errors.New("datastore: database is nil")
	}

	opts = defaults(opts)

	b, err := mongodb.NewBackend(&mongodb.NewBackendParams{
		DB: db,
		L:  opts.Logger.Named("backend.mongodb"),
	})
	if err != nil {
		return nil, err
	}

	return newDatastore(b, opts), nil
}

// defaults returns options with default values set.
func defaults(opts *Opts) *Opts {
	var res Opts
	if opts != nil {
		res = *opts
	}

	if res.Logger == nil {
		res.Logger = zap.NewNop()
	}

	if res.Mapper == nil {
		res.Mapper = mapping.DefaultMapper
	}

	return &res
}

// newDatastore creates a new Datastore for the backend.
func newDatastore(b backends.Backend, opts *Opts) *Datastore {
	return &Datastore{
		b:         b,
		mapper:    opts.Mapper,
		l:         opts.Logger.Named("datastore"),
		m:         newMetrics(),
		batchSize: opts.BatchSize,
	}
}

// Close closes all connections of the backend.
func (ds *Datastore) Close() {
	ds.b.Close()
}

// Mapper returns the mapper used by the datastore.
func (ds *Datastore) Mapper() *mapping.Mapper {
	return ds.mapper
}

// CreateAggregation starts a new aggregation of the collection.
func (ds *Datastore) CreateAggregation(collection string) *aggregation.Aggregation {
	return aggregation.New(&executor{ds: ds}, collection, &aggregation.Opts{
		Logger: ds.l,
		Mapper: ds.mapper,
	})
}

// Save inserts the entity (a pointer to a struct) into its collection.
//
// If the identifier field is a zero primitive.ObjectID, a new one is generated and stored into the entity.
func (ds *Datastore) Save(ctx context.Context, entity any) error {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("datastore: Save needs a non-nil pointer to struct, got %T", entity)
	}

	desc, err := ds.mapper.Descriptor(rv.Type())
	if err != nil {
		return err
	}

	id := desc.ID()
	if id == nil {
		return fmt.Errorf("datastore: %s has no identifier field", desc.Type)
	}

	idValue := rv.Elem().FieldByIndex(id.Index)
	if idValue.Type() == reflect.TypeOf(primitive.ObjectID{}) && idValue.IsZero() {
		idValue.Set(reflect.ValueOf(primitive.NewObjectID()))
	}

	doc, err := ds.mapper.Encode(entity)
	if err != nil {
		return err
	}

	_, err = ds.Insert(ctx, desc.Collection, doc)

	return err
}

// Insert inserts documents into the collection and returns their identifiers.
//
// Documents without _id field get a new primitive.ObjectID.
func (ds *Datastore) Insert(ctx context.Context, collection string, docs ...bson.D) ([]any, error) {
	res, err := ds.b.InsertAll(ctx, &backends.InsertAllParams{
		Collection: collection,
		Docs:       docs,
	})

	switch {
	case err == nil:
		ds.m.inserted.WithLabelValues(collection).Add(float64(len(docs)))
		ds.l.Debug("Inserted documents", zap.String("collection", collection), zap.Int("count", len(docs)))

		return res.IDs, nil

	case backends.ErrorCodeIs(err, backends.ErrorCodeInsertDuplicateID):
		return nil, ErrDuplicateID

	case backends.ErrorCodeIs(err, backends.ErrorCodeCollectionNameIsInvalid):
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)

	default:
		return nil, lazyerrors.Error(err)
	}
}

// Collections returns names of all collections, sorted.
func (ds *Datastore) Collections(ctx context.Context) ([]string, error) {
	res, err := ds.b.ListCollections(ctx, new(backends.ListCollectionsParams))
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	names := make([]string, len(res.Collections))
	for i, c := range res.Collections {
		names[i] = c.Name
	}

	return names, nil
}

// Drop drops the collection with all its documents.
func (ds *Datastore) Drop(ctx context.Context, collection string) error {
	err := ds.b.DropCollection(ctx, &backends.DropCollectionParams{Name: collection})

	switch {
	case err == nil:
		return nil
	case backends.ErrorCodeIs(err, backends.ErrorCodeCollectionDoesNotExist):
		return fmt.Errorf("%w: %q", ErrCollectionDoesNotExist, collection)
	case backends.ErrorCodeIs(err, backends.ErrorCodeCollectionNameIsInvalid):
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)
	default:
		return lazyerrors.Error(err)
	}
}

// executor runs aggregations on the datastore's backend.
type executor struct {
	ds *Datastore
}

// Aggregate implements aggregation.Executor.
func (e *executor) Aggregate(ctx context.Context, collection string, pipeline []bson.D) (aggregation.Cursor, error) {
	ds := e.ds
	run := uuid.New()
	l := ds.l.With(zap.Stringer("run", run), zap.String("collection", collection))

	start := time.Now()

	res, err := ds.b.Aggregate(ctx, &backends.AggregateParams{
		Collection: collection,
		Pipeline:   pipeline,
		BatchSize:  ds.batchSize,
	})

	ds.m.duration.WithLabelValues(collection).Observe(time.Since(start).Seconds())

	if err != nil {
		ds.m.aggregations.WithLabelValues(collection, "error").Inc()
		l.Warn("Aggregation failed", zap.Error(err))

		if backends.ErrorCodeIs(err, backends.ErrorCodeCollectionNameIsInvalid) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)
		}

		return nil, err
	}

	ds.m.aggregations.WithLabelValues(collection, "ok").Inc()
	l.Debug("Aggregation started", zap.Int("stages", len(pipeline)))

	return &countingIterator{
		iter: res.Iter,
		done: func(n int, err error) {
			ds.m.returned.WithLabelValues(collection).Add(float64(n))
			l.Debug("Aggregation finished", zap.Int("documents", n), zap.Error(err))
		},
	}, nil
}

// countingIterator counts documents returned by the wrapped iterator.
type countingIterator struct {
	iter types.DocumentsIterator
	done func(n int, err error)
	n    int
}

// Next implements iterator.Interface.
func (iter *countingIterator) Next() (struct{}, bson.D, error) {
	k, doc, err := iter.iter.Next()
	if err != nil {
		iter.finish(err)
		return k, nil, err
	}

	iter.n++

	return k, doc, nil
}

// Close implements iterator.Interface.
func (iter *countingIterator) Close() {
	iter.finish(nil)
	iter.iter.Close()
}

// finish calls done once.
func (iter *countingIterator) finish(err error) {
	if iter.done == nil {
		return
	}

	if errors.Is(err, iterator.ErrIteratorDone) {
		err = nil
	}

	iter.done(iter.n, err)
	iter.done = nil
}

// Describe implements prometheus.Collector.
func (ds *Datastore) Describe(ch chan<- *prometheus.Desc) {
	ds.m.Describe(ch)
	ds.b.Describe(ch)
}

// Collect implements prometheus.Collector.
func (ds *Datastore) Collect(ch chan<- prometheus.Metric) {
	ds.m.Collect(ch)
	ds.b.Collect(ch)
}

// check interfaces
var (
	_ aggregation.Executor    = (*executor)(nil)
	_ types.DocumentsIterator = (*countingIterator)(nil)
	_ prometheus.Collector    = (*Datastore)(nil)
)
