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
	"context"
	"errors"
	"reflect"

	"github.com/FerretDB/docmap/aggregation"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/query"
)

// Query finds entities of type T in their collection.
//
// Query is built on the aggregation engine: $match, then $sort, $skip and $limit if set.
type Query[T any] struct {
	ds     *Datastore
	filter query.Filter
	sort   []aggregation.SortKey
	skip   int64
	limit  int64
}

// Find returns a query for entities of type T matching the filter.
func Find[T any](ds *Datastore, filter query.Filter) *Query[T] {
	return &Query[T]{
		ds:     ds,
		filter: filter,
	}
}

// Sort sets the sort order.
func (q *Query[T]) Sort(keys ...aggregation.SortKey) *Query[T] {
	q.sort = keys
	return q
}

// Skip skips the first n matching entities.
func (q *Query[T]) Skip(n int64) *Query[T] {
	q.skip = n
	return q
}

// Limit limits the number of returned entities; 0 means no limit.
func (q *Query[T]) Limit(n int64) *Query[T] {
	q.limit = n
	return q
}

// aggregation builds an aggregation for the query.
func (q *Query[T]) aggregation(limit int64) (*aggregation.Aggregation, error) {
	desc, err := q.ds.mapper.Descriptor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}

	a := q.ds.CreateAggregation(desc.Collection).Match(q.filter)

	if len(q.sort) > 0 {
		a.Sort(q.sort...)
	}

	if q.skip > 0 {
		a.Skip(q.skip)
	}

	if limit > 0 {
		a.Limit(limit)
	}

	return a, nil
}

// Iter runs the query and returns its results.
// The caller must close them.
func (q *Query[T]) Iter(ctx context.Context) (*aggregation.Results[T], error) {
	a, err := q.aggregation(q.limit)
	if err != nil {
		return nil, err
	}

	return aggregation.Aggregate[T](ctx, a)
}

// All runs the query and returns all matching entities.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	res, err := q.Iter(ctx)
	if err != nil {
		return nil, err
	}

	return res.All()
}

// First returns the first matching entity, or ErrNotFound.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	a, err := q.aggregation(1)
	if err != nil {
		return nil, err
	}

	res, err := aggregation.Aggregate[T](ctx, a)
	if err != nil {
		return nil, err
	}

	defer res.Close()

	_, v, err := res.Next()
	if errors.Is(err, iterator.ErrIteratorDone) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return v, nil
}

// Count returns the number of matching entities, ignoring sort and limit.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	desc, err := q.ds.mapper.Descriptor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return 0, err
	}

	a := q.ds.CreateAggregation(desc.Collection).Match(q.filter).Count("n")

	res, err := aggregation.Aggregate[countResult](ctx, a)
	if err != nil {
		return 0, err
	}

	defer res.Close()

	_, v, err := res.Next()
	switch {
	case errors.Is(err, iterator.ErrIteratorDone):
		// $count returns no documents for empty input
		return 0, nil
	case err != nil:
		return 0, err
	default:
		return v.N, nil
	}
}

// countResult is the output of the $count stage.
type countResult struct {
	N int64 `docmap:"n"`
}
