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

package backends

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/observability"
	"github.com/FerretDB/docmap/internal/util/resource"
)

// Backend is a generic interface for all backends for accessing them.
//
// Backend object is expected to be stateful and wrap database connection(s).
//
// Backend(s) methods can be called by multiple aggregations concurrently.
// They should be thread-safe.
//
// See backendContract and its methods for additional details.
type Backend interface {
	Close()

	Aggregate(context.Context, *AggregateParams) (*AggregateResult, error)
	InsertAll(context.Context, *InsertAllParams) (*InsertAllResult, error)
	ListCollections(context.Context, *ListCollectionsParams) (*ListCollectionsResult, error)
	DropCollection(context.Context, *DropCollectionParams) error

	prometheus.Collector

	// There is no interface method to create a collection; see package documentation.
}

// backendContract implements Backend interface.
type backendContract struct {
	b     Backend
	token *resource.Token
}

// BackendContract wraps Backend and enforces its contract.
//
// All backend implementations should use that function when they create new Backend instances.
// The datastore should not use that function.
//
// See backendContract and its methods for additional details.
func BackendContract(b Backend) Backend {
	bc := &backendContract{
		b:     b,
		token: resource.NewToken(),
	}
	resource.Track(bc, bc.token)

	return bc
}

// Close closes all database connections and frees all resources associated with the backend.
func (bc *backendContract) Close() {
	bc.b.Close()

	resource.Untrack(bc, bc.token)
}

// AggregateParams represents the parameters of Backend.Aggregate method.
type AggregateParams struct {
	Collection string
	Pipeline   []bson.D

	// BatchSize is the number of documents fetched from the database at once; 0 means backend's default.
	BatchSize int32
}

// AggregateResult represents the results of Backend.Aggregate method.
type AggregateResult struct {
	Iter types.DocumentsIterator
}

// Aggregate runs the pipeline on the collection.
//
// The collection does not need to exist; the pipeline then runs over no documents.
// The returned iterator must be closed.
func (bc *backendContract) Aggregate(ctx context.Context, params *AggregateParams) (*AggregateResult, error) {
	defer observability.FuncCall(ctx)()

	var res *AggregateResult
	err := validateCollectionName(params.Collection)
	if err == nil {
		res, err = bc.b.Aggregate(ctx, params)
	}

	checkError(err, ErrorCodeCollectionNameIsInvalid, ErrorCodePipelineIsInvalid)

	return res, err
}

// InsertAllParams represents the parameters of Backend.InsertAll method.
type InsertAllParams struct {
	Collection string

	// Docs without _id field get a new ObjectID.
	Docs []bson.D
}

// InsertAllResult represents the results of Backend.InsertAll method.
type InsertAllResult struct {
	// IDs of inserted documents, in the order of Docs.
	IDs []any
}

// InsertAll inserts all documents into the collection, creating it if needed.
//
// Backends with transactions insert either all documents or none;
// others stop at the first failed document.
func (bc *backendContract) InsertAll(ctx context.Context, params *InsertAllParams) (*InsertAllResult, error) {
	defer observability.FuncCall(ctx)()

	var res *InsertAllResult
	err := validateCollectionName(params.Collection)
	if err == nil {
		res, err = bc.b.InsertAll(ctx, params)
	}

	checkError(err, ErrorCodeCollectionNameIsInvalid, ErrorCodeInsertDuplicateID)

	return res, err
}

// ListCollectionsParams represents the parameters of Backend.ListCollections method.
type ListCollectionsParams struct{}

// ListCollectionsResult represents the results of Backend.ListCollections method.
type ListCollectionsResult struct {
	// Collections are sorted by name.
	Collections []CollectionInfo
}

// CollectionInfo represents information about a single collection.
type CollectionInfo struct {
	Name string
}

// ListCollections returns information about existing collections.
func (bc *backendContract) ListCollections(ctx context.Context, params *ListCollectionsParams) (*ListCollectionsResult, error) {
	defer observability.FuncCall(ctx)()

	res, err := bc.b.ListCollections(ctx, params)
	checkError(err)

	return res, err
}

// DropCollectionParams represents the parameters of Backend.DropCollection method.
type DropCollectionParams struct {
	Name string
}

// DropCollection drops existing collection with all its documents.
func (bc *backendContract) DropCollection(ctx context.Context, params *DropCollectionParams) error {
	defer observability.FuncCall(ctx)()

	err := validateCollectionName(params.Name)
	if err == nil {
		err = bc.b.DropCollection(ctx, params)
	}

	checkError(err, ErrorCodeCollectionNameIsInvalid, ErrorCodeCollectionDoesNotExist)

	return err
}

// Describe implements prometheus.Collector.
func (bc *backendContract) Describe(ch chan<- *prometheus.Desc) {
	bc.b.Describe(ch)
}

// Collect implements prometheus.Collector.
func (bc *backendContract) Collect(ch chan<- prometheus.Metric) {
	bc.b.Collect(ch)
}

// check interfaces
var (
	_ Backend = (*backendContract)(nil)
)
