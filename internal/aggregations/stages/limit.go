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
	"math"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
)

// limit represents $limit stage.
type limit struct {
	limit int64
}

// newLimit creates a new $limit stage.
func newLimit(stage bson.D) (Stage, error) {
	l, ok := wholeNumber(stage[0].Value)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageLimitInvalidArg,
			fmt.Sprintf("invalid argument to $limit stage: Expected a number in: $limit: %v", stage[0].Value),
			"$limit (stage)",
		)
	}

	if l <= 0 {
		return nil, aggregations.NewError(
			aggregations.ErrStageLimitZero,
			fmt.Sprintf("invalid argument to $limit stage: the limit must be positive, was given %d", l),
			"$limit (stage)",
		)
	}

	return &limit{
		limit: l,
	}, nil
}

// Process implements Stage interface.
func (l *limit) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	var n int64

	return newStageIterator(ctx, iter, func() (bson.D, error) {
		if n >= l.limit {
			return nil, iterator.ErrIteratorDone
		}

		_, doc, err := iter.Next()
		if err != nil {
			return nil, err
		}

		n++

		return doc, nil
	}), nil
}

// skip represents $skip stage.
type skip struct {
	skip int64
}

// newSkip creates a new $skip stage.
func newSkip(stage bson.D) (Stage, error) {
	s, ok := wholeNumber(stage[0].Value)
	if !ok || s < 0 {
		return nil, aggregations.NewError(
			aggregations.ErrStageSkipInvalidArg,
			fmt.Sprintf("invalid argument to $skip stage: Expected a non-negative number in: $skip: %v", stage[0].Value),
			"$skip (stage)",
		)
	}

	return &skip{
		skip: s,
	}, nil
}

// Process implements Stage interface.
func (s *skip) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	var skipped bool

	return newStageIterator(ctx, iter, func() (bson.D, error) {
		if !skipped {
			skipped = true

			for i := int64(0); i < s.skip; i++ {
				if _, _, err := iter.Next(); err != nil {
					return nil, err
				}
			}
		}

		_, doc, err := iter.Next()

		return doc, err
	}), nil
}

// wholeNumber returns the value as int64 if it is a number without fractional part.
func wholeNumber(v any) (int64, bool) {
	switch v := v.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}

		return int64(v), true
	default:
		return 0, false
	}
}

// check interfaces
var (
	_ Stage = (*limit)(nil)
	_ Stage = (*skip)(nil)
)
