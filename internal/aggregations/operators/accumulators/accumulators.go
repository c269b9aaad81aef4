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

// Package accumulators provides aggregation accumulator operators.
// Accumulators are different from other operators as they perform operations
// on a group of documents rather than a single document.
// They are used only in the `$group` stage.
//
// Accumulators that can be used outside of accumulation with different behaviour (like `$sum`),
// are stored in both operators and accumulators packages.
package accumulators

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/aggregations/operators"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// newAccumulatorFunc is a type for a function that creates an accumulation operator.
type newAccumulatorFunc func(name string, args any) (Accumulator, error)

// Accumulator is a common interface for aggregation accumulation operators.
type Accumulator interface {
	// Accumulate documents and returns the result of applying operator.
	// It should always close iterator.
	Accumulate(iter types.DocumentsIterator) (any, error)
}

// NewAccumulator returns accumulator for provided value.
func NewAccumulator(stage, key string, value any) (Accumulator, error) {
	accumulation, ok := value.(bson.D)
	if !ok || len(accumulation) == 0 {
		return nil, aggregations.NewError(
			aggregations.ErrStageGroupInvalidAccum,
			fmt.Sprintf("The field '%s' must be an accumulator object", key),
			stage+" (stage)",
		)
	}

	// accumulation document contains only one field.
	if len(accumulation) > 1 {
		return nil, aggregations.NewError(
			aggregations.ErrStageGroupMultipleAccum,
			fmt.Sprintf("The field '%s' must specify one accumulator", key),
			stage+" (stage)",
		)
	}

	operator := accumulation[0].Key

	newAccumulator, ok := Accumulators[operator]
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrInvalidPipelineOperator,
			fmt.Sprintf("Unknown group operator '%s'", operator),
			operator+" (accumulator)",
		)
	}

	return newAccumulator(operator, accumulation[0].Value)
}

// Accumulators maps all aggregation accumulators.
var Accumulators = map[string]newAccumulatorFunc{
	// sorted alphabetically
	"$addToSet": newPush,
	"$avg":      newAvg,
	"$count":    newCount,
	"$first":    newFirstLast,
	"$last":     newFirstLast,
	"$max":      newMinMax,
	"$min":      newMinMax,
	"$push":     newPush,
	"$sum":      newSum,
	// please keep sorted alphabetically
}

// newUnaryExpression compiles the single expression argument of an accumulator.
func newUnaryExpression(name string, args any) (operators.Operator, error) {
	if _, ok := args.(bson.A); ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageGroupUnaryOperator,
			fmt.Sprintf("The %s accumulator is a unary operator", name),
			name+" (accumulator)",
		)
	}

	return operators.NewExpression(args)
}

// evaluateAll processes the expression for every document and closes the iterator.
func evaluateAll(iter types.DocumentsIterator, expr operators.Operator) ([]any, error) {
	defer iter.Close()

	var res []any

	for {
		_, doc, err := iter.Next()
		if errors.Is(err, iterator.ErrIteratorDone) {
			return res, nil
		}

		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		v, err := expr.Process(doc)
		if err != nil {
			return nil, err
		}

		res = append(res, v)
	}
}
