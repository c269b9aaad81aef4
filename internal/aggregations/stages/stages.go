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

// Package stages provides aggregation stages.
package stages

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// newStageFunc is a type for a function that creates a new aggregation stage.
type newStageFunc func(stage bson.D) (Stage, error)

// Stage is a common interface for all aggregation stages.
type Stage interface {
	// Process applies an aggregate stage on documents from iterator.
	//
	// Returned iterator owns the input one: closing it closes the input.
	Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error)
}

// stages maps all supported aggregation stages.
var stages = map[string]newStageFunc{
	// sorted alphabetically
	"$addFields": newAddFields,
	"$count":     newCount,
	"$group":     newGroup,
	"$limit":     newLimit,
	"$match":     newMatch,
	"$project":   newProject,
	"$set":       newAddFields,
	"$skip":      newSkip,
	"$sort":      newSort,
	"$unwind":    newUnwind,
	// please keep sorted alphabetically
}

// unsupportedStages maps all unsupported yet stages.
var unsupportedStages = map[string]struct{}{
	"$bucket":          {},
	"$bucketAuto":      {},
	"$collStats":       {},
	"$densify":         {},
	"$facet":           {},
	"$fill":            {},
	"$geoNear":         {},
	"$graphLookup":     {},
	"$lookup":          {},
	"$merge":           {},
	"$out":             {},
	"$redact":          {},
	"$replaceRoot":     {},
	"$replaceWith":     {},
	"$sample":          {},
	"$setWindowFields": {},
	"$sortByCount":     {},
	"$unionWith":       {},
	"$unset":           {},
}

// NewStage creates a new aggregation stage.
func NewStage(stage bson.D) (Stage, error) {
	if len(stage) != 1 {
		return nil, aggregations.NewError(
			aggregations.ErrStageInvalid,
			"A pipeline stage specification object must contain exactly one field.",
			"aggregate",
		)
	}

	name := stage[0].Key

	f, ok := stages[name]
	if !ok {
		if _, ok := unsupportedStages[name]; ok {
			return nil, aggregations.NewError(
				aggregations.ErrNotImplemented,
				fmt.Sprintf("`aggregate` stage %q is not implemented yet", name),
				name+" (stage)",
			)
		}

		return nil, aggregations.NewError(
			aggregations.ErrStageUnrecognized,
			fmt.Sprintf("Unrecognized pipeline stage name: %q", name),
			name+" (stage)",
		)
	}

	return f(stage)
}

// Pipeline is a compiled sequence of stages.
type Pipeline struct {
	stages []Stage
}

// NewPipeline compiles all pipeline stages.
//
// Stage documents are normalized first, so Go values like int or time.Time
// are handled the same way as values decoded from BSON.
func NewPipeline(pipeline []bson.D) (*Pipeline, error) {
	res := &Pipeline{
		stages: make([]Stage, 0, len(pipeline)),
	}

	for _, d := range pipeline {
		normalized, err := types.Normalize(d)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		s, err := NewStage(normalized)
		if err != nil {
			return nil, err
		}

		res.stages = append(res.stages, s)
	}

	return res, nil
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Process applies all stages to documents from iterator.
func (p *Pipeline) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	var err error

	for _, s := range p.stages {
		if iter, err = s.Process(ctx, iter); err != nil {
			return nil, err
		}
	}

	return iter, nil
}

// consume reads all documents from the iterator and closes it.
func consume(ctx context.Context, iter types.DocumentsIterator) ([]bson.D, error) {
	defer iter.Close()

	var res []bson.D

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, doc, err := iter.Next()
		if errors.Is(err, iterator.ErrIteratorDone) {
			return res, nil
		}

		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		res = append(res, doc)
	}
}
