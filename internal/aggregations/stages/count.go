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
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// count represents $count stage.
//
//	{ $count: "<outputField>" }
type count struct {
	field string
}

// newCount creates a new $count stage.
func newCount(stage bson.D) (Stage, error) {
	field, ok := stage[0].Value.(string)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageCountNonString,
			"the count field must be a non-empty string",
			"$count (stage)",
		)
	}

	switch {
	case field == "":
		return nil, aggregations.NewError(
			aggregations.ErrStageCountNonEmptyString,
			"the count field must be a non-empty string",
			"$count (stage)",
		)
	case strings.HasPrefix(field, "$"):
		return nil, aggregations.NewError(
			aggregations.ErrStageCountBadPrefix,
			"the count field cannot be a $-prefixed path",
			"$count (stage)",
		)
	case strings.Contains(field, "."):
		return nil, aggregations.NewError(
			aggregations.ErrStageCountBadValue,
			"the count field cannot contain '.'",
			"$count (stage)",
		)
	}

	return &count{
		field: field,
	}, nil
}

// Process implements Stage interface.
// Nothing is returned for empty input.
func (c *count) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	docs, err := consume(ctx, iter)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return sliceIterator(nil), nil
	}

	var n any = int64(len(docs))
	if len(docs) <= math.MaxInt32 {
		n = int32(len(docs))
	}

	return sliceIterator([]bson.D{{{Key: c.field, Value: n}}}), nil
}

// check interfaces
var (
	_ Stage = (*count)(nil)
)
