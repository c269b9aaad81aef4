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

package stages

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// sortKey is a single key of $sort stage.
type sortKey struct {
	expr       *aggregations.Expression
	descending bool
}

// sortStage represents $sort stage.
type sortStage struct {
	keys []sortKey
}

// newSort creates a new $sort stage.
func newSort(stage bson.D) (Stage, error) {
	fields, ok := stage[0].Value.(bson.D)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrSortBadValue,
			"the $sort key specification must be an object",
			"$sort (stage)",
		)
	}

	if len(fields) == 0 {
		return nil, aggregations.NewError(
			aggregations.ErrSortMissingKey,
			"$sort stage must have at least one sort key",
			"$sort (stage)",
		)
	}

	keys := make([]sortKey, 0, len(fields))

	for _, f := range fields {
		order, ok := wholeNumber(f.Value)
		if !ok || (order != 1 && order != -1) {
			return nil, aggregations.NewError(
				aggregations.ErrSortBadOrder,
				"$sort key ordering must be 1 (for ascending) or -1 (for descending)",
				"$sort (stage)",
			)
		}

		expr, err := aggregations.NewExpression("$" + f.Key)
		if err != nil {
			return nil, aggregations.NewError(
				aggregations.ErrFailedToParse,
				fmt.Sprintf("invalid $sort key %q", f.Key),
				"$sort (stage)",
			)
		}

		keys = append(keys, sortKey{expr: expr, descending: order == -1})
	}

	return &sortStage{keys: keys}, nil
}

// Process implements Stage interface.
// Sorting is stable; missing fields sort as null.
func (s *sortStage) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	docs, err := consume(ctx, iter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range s.keys {
			a := sortValue(k.expr.Evaluate(docs[i]), k.descending)
			b := sortValue(k.expr.Evaluate(docs[j]), k.descending)

			c := types.Compare(a, b)
			if c == types.Equal {
				continue
			}

			if k.descending {
				return c == types.Greater
			}

			return c == types.Less
		}

		return false
	})

	return sliceIterator(docs), nil
}

// sortValue returns the value used for sorting.
// Arrays are represented by their smallest element in ascending order
// and by their largest element in descending order.
func sortValue(v any, descending bool) any {
	switch v := v.(type) {
	case aggregations.MissingType:
		return nil

	case bson.A:
		if len(v) == 0 {
			return nil
		}

		res := v[0]

		for _, e := range v[1:] {
			c := types.Compare(e, res)
			if (descending && c == types.Greater) || (!descending && c == types.Less) {
				res = e
			}
		}

		return res

	default:
		return v
	}
}

// check interfaces
var (
	_ Stage = (*sortStage)(nil)
)
