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

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// match represents $match stage.
type match struct {
	filter bson.D
}

// newMatch creates a new $match stage.
func newMatch(stage bson.D) (Stage, error) {
	filter, ok := stage[0].Value.(bson.D)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageMatchBadExpression,
			"the match filter must be an expression in an object",
			"$match (stage)",
		)
	}

	// check operators once
	if _, err := FilterDocument(bson.D{}, filter); err != nil {
		return nil, err
	}

	return &match{
		filter: filter,
	}, nil
}

// Process implements Stage interface.
func (m *match) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	return newStageIterator(ctx, iter, func() (bson.D, error) {
		for {
			_, doc, err := iter.Next()
			if err != nil {
				return nil, err
			}

			matched, err := FilterDocument(doc, m.filter)
			if err != nil {
				return nil, err
			}

			if matched {
				return doc, nil
			}

			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}
	}), nil
}

// check interfaces
var (
	_ Stage = (*match)(nil)
)
