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

package aggregation

import (
	"context"
	"errors"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/observability"
	"github.com/FerretDB/docmap/mapping"
)

// Aggregate freezes the aggregation pipeline, submits it to the executor,
// and returns results decoded into values of type T.
//
// T is a struct type described by the aggregation's Mapper, bson.D, or bson.M.
// Construction errors are returned before anything is submitted.
// An empty pipeline fails with ErrEmptyPipeline and leaves the aggregation open for stages.
// Executor errors are returned as *ExecutionError.
func Aggregate[T any](ctx context.Context, a *Aggregation) (*Results[T], error) {
	if a.err != nil {
		return nil, a.err
	}

	// nothing is frozen until the pipeline can be submitted
	if len(a.stages) == 0 {
		return nil, ErrEmptyPipeline
	}

	if t := reflect.TypeOf((*T)(nil)).Elem(); t.Kind() == reflect.Struct {
		if _, err := a.mapper.Descriptor(t); err != nil {
			return nil, err
		}
	}

	p := a.freeze()

	ctx, span := observability.Tracer().Start(ctx, "aggregate")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.collection", a.collection),
		attribute.Int("db.pipeline.stages", p.Len()),
	)

	if ce := a.l.Check(zap.DebugLevel, "Aggregating"); ce != nil {
		ce.Write(zap.String("collection", a.collection), zap.Stringer("pipeline", p))
	}

	cursor, err := a.executor.Aggregate(ctx, a.collection, p.Documents())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		a.l.Debug("Aggregation failed", zap.String("collection", a.collection), zap.Error(err))

		return nil, &ExecutionError{Collection: a.collection, Err: err}
	}

	return &Results[T]{
		cursor:     cursor,
		mapper:     a.mapper,
		l:          a.l,
		collection: a.collection,
	}, nil
}

// Results is a lazy sequence of decoded aggregation results.
//
// Next returns the result number and a freshly decoded value.
// After the last result, or after Close, Next returns ErrIteratorDone.
// After a failure, Next returns the same error.
// It is not safe for concurrent use.
type Results[T any] struct {
	cursor     Cursor
	mapper     Mapper
	l          *zap.Logger
	err        error
	collection string
	n          int
}

// Next implements iterator.Interface.
func (r *Results[T]) Next() (int, *T, error) {
	if r.err != nil {
		return 0, nil, r.err
	}

	_, doc, err := r.cursor.Next()
	if err != nil {
		if errors.Is(err, iterator.ErrIteratorDone) {
			r.fail(iterator.ErrIteratorDone)
			return 0, nil, r.err
		}

		r.fail(&ExecutionError{Collection: r.collection, Err: err})

		return 0, nil, r.err
	}

	v := new(T)
	if err = mapping.Decode(r.mapper, doc, v); err != nil {
		r.l.Debug("Failed to decode result", zap.Int("n", r.n), zap.Error(err))
		r.fail(err)

		return 0, nil, r.err
	}

	n := r.n
	r.n++

	return n, v, nil
}

// All reads all remaining results and closes the results.
func (r *Results[T]) All() ([]*T, error) {
	defer r.Close()

	var res []*T

	for {
		_, v, err := r.Next()
		if err != nil {
			if errors.Is(err, iterator.ErrIteratorDone) {
				return res, nil
			}

			return nil, err
		}

		res = append(res, v)
	}
}

// Close implements iterator.Interface.
func (r *Results[T]) Close() {
	r.fail(iterator.ErrIteratorDone)
}

// fail sets the terminal error (unless already set) and closes the cursor.
func (r *Results[T]) fail(err error) {
	if r.err != nil {
		return
	}

	r.err = err
	r.cursor.Close()
}

// check interfaces
var (
	_ iterator.Interface[int, *struct{}] = (*Results[struct{}])(nil)
)
