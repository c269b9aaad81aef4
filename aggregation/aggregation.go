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
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/mapping"
	"github.com/FerretDB/docmap/query"
)

// Cursor is a lazy sequence of result documents returned by the Executor.
//
// Next returns ErrIteratorDone when there are no more documents.
type Cursor = iterator.Interface[struct{}, bson.D]

// ErrIteratorDone is returned by cursors and results when they are read to the end or closed.
var ErrIteratorDone = iterator.ErrIteratorDone

// Executor runs aggregation pipelines.
//
// Implementations should be safe for concurrent use.
type Executor interface {
	// Aggregate runs the pipeline on the collection and returns a cursor over result documents.
	Aggregate(ctx context.Context, collection string, pipeline []bson.D) (Cursor, error)
}

// Mapper returns descriptors of Go types used to decode results.
type Mapper interface {
	Descriptor(t reflect.Type) (*mapping.Descriptor, error)
}

// Opts represents aggregation options.
type Opts struct {
	// Logger is used for debug logging; nil disables logging.
	Logger *zap.Logger

	// Mapper is used to decode results; nil means mapping.DefaultMapper.
	Mapper Mapper

	// to prevent unkeyed literals
	_ struct{}
}

// Aggregation builds an aggregation pipeline for a single collection.
//
// Methods append stages in call order and return the same Aggregation for chaining.
// The first error is retained and returned by Err and Aggregate.
// It is not safe for concurrent use.
type Aggregation struct {
	executor   Executor
	mapper     Mapper
	l          *zap.Logger
	err        error
	collection string
	stages     []Stage
	frozen     bool
}

// New creates a new aggregation of documents in the given collection.
func New(executor Executor, collection string, opts *Opts) *Aggregation {
	if opts == nil {
		opts = new(Opts)
	}

	a := &Aggregation{
		executor:   executor,
		collection: collection,
		mapper:     opts.Mapper,
		l:          opts.Logger,
	}

	if a.mapper == nil {
		a.mapper = mapping.DefaultMapper
	}

	if a.l == nil {
		a.l = zap.NewNop()
	}

	a.l = a.l.Named("aggregation")

	switch {
	case executor == nil:
		a.err = errors.New("aggregation: executor is nil")
	case collection == "":
		a.err = errors.New("aggregation: collection name is empty")
	case strings.Contains(collection, "$"):
		a.err = errors.New("aggregation: collection name must not contain '$'")
	}

	return a
}

// Collection returns the aggregated collection.
func (a *Aggregation) Collection() string {
	return a.collection
}

// Err returns the first error of the pipeline construction, if any.
func (a *Aggregation) Err() error {
	return a.err
}

// Pipeline returns the current or frozen pipeline.
func (a *Aggregation) Pipeline() Pipeline {
	stages := make([]Stage, len(a.stages))
	copy(stages, a.stages)

	return Pipeline{stages: stages}
}

// Append appends the stage to the pipeline.
func (a *Aggregation) Append(stage Stage) *Aggregation {
	return a.add(stage, nil)
}

// Group appends a $group stage. See NewGroup.
func (a *Aggregation) Group(key GroupKey, accs ...Accumulation) *Aggregation {
	s, err := NewGroup(key, accs...)
	return a.add(s, err)
}

// Project appends a $project stage. See NewProject.
func (a *Aggregation) Project(specs ...Projection) *Aggregation {
	s, err := NewProject(specs...)
	return a.add(s, err)
}

// Match appends a $match stage.
func (a *Aggregation) Match(filter query.Filter) *Aggregation {
	return a.add(NewMatch(filter), nil)
}

// Sort appends a $sort stage.
func (a *Aggregation) Sort(keys ...SortKey) *Aggregation {
	s, err := NewSort(keys...)
	return a.add(s, err)
}

// Limit appends a $limit stage.
func (a *Aggregation) Limit(n int64) *Aggregation {
	s, err := NewLimit(n)
	return a.add(s, err)
}

// Skip appends a $skip stage.
func (a *Aggregation) Skip(n int64) *Aggregation {
	s, err := NewSkip(n)
	return a.add(s, err)
}

// Unwind appends an $unwind stage; opts may be nil.
func (a *Aggregation) Unwind(field string, opts *UnwindOpts) *Aggregation {
	s, err := NewUnwind(field, opts)
	return a.add(s, err)
}

// Count appends a $count stage.
func (a *Aggregation) Count(field string) *Aggregation {
	s, err := NewCount(field)
	return a.add(s, err)
}

// add appends the stage if there are no errors.
func (a *Aggregation) add(stage Stage, err error) *Aggregation {
	if a.err != nil {
		return a
	}

	switch {
	case a.frozen:
		a.err = ErrFrozen
	case err != nil:
		a.err = err
	case stage == nil || reflect.ValueOf(stage).IsNil():
		a.err = newInvalidExpressionError("", "stage is nil")
	default:
		a.stages = append(a.stages, stage)
	}

	return a
}

// freeze prevents further modifications and returns the pipeline.
func (a *Aggregation) freeze() Pipeline {
	a.frozen = true
	return Pipeline{stages: a.stages}
}

// Pipeline is an ordered sequence of stages.
type Pipeline struct {
	stages []Stage
}

// Len returns the number of stages.
func (p Pipeline) Len() int {
	return len(p.stages)
}

// Stages returns a copy of the stage list.
func (p Pipeline) Stages() []Stage {
	res := make([]Stage, len(p.stages))
	copy(res, p.stages)

	return res
}

// Documents returns the native encoding of the pipeline.
func (p Pipeline) Documents() []bson.D {
	res := make([]bson.D, len(p.stages))
	for i, s := range p.stages {
		res[i] = s.Document()
	}

	return res
}

// String returns the pipeline as a canonical Extended JSON array for logging.
func (p Pipeline) String() string {
	var sb strings.Builder

	sb.WriteString("[")

	for i, s := range p.stages {
		if i > 0 {
			sb.WriteString(",")
		}

		b, err := bson.MarshalExtJSON(s.Document(), true, false)
		if err != nil {
			sb.WriteString(`{"` + s.Name() + `":"<` + err.Error() + `>"}`)
			continue
		}

		sb.Write(b)
	}

	sb.WriteString("]")

	return sb.String()
}
