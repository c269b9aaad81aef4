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
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/must"
)

// unwind represents $unwind stage.
//
//	{ $unwind: "$<path>" }
//	{ $unwind: { path: "$<path>", includeArrayIndex: "<field>", preserveNullAndEmptyArrays: <bool> } }
type unwind struct {
	path              types.Path
	includeArrayIndex string
	preserve          bool
}

// newUnwind creates a new $unwind stage.
func newUnwind(stage bson.D) (Stage, error) {
	var u unwind

	var field string

	switch v := stage[0].Value.(type) {
	case string:
		field = v

	case bson.D:
		for _, e := range v {
			switch e.Key {
			case "path":
				s, ok := e.Value.(string)
				if !ok {
					return nil, aggregations.NewError(
						aggregations.ErrStageUnwindWrongType,
						fmt.Sprintf("expected a string as the path for $unwind stage, got %T", e.Value),
						"$unwind (stage)",
					)
				}

				field = s

			case "includeArrayIndex":
				s, ok := e.Value.(string)
				if !ok || s == "" || strings.HasPrefix(s, "$") {
					return nil, aggregations.NewError(
						aggregations.ErrStageUnwindWrongType,
						"includeArrayIndex option to $unwind stage must be a non-empty string not starting with '$'",
						"$unwind (stage)",
					)
				}

				u.includeArrayIndex = s

			case "preserveNullAndEmptyArrays":
				b, ok := e.Value.(bool)
				if !ok {
					return nil, aggregations.NewError(
						aggregations.ErrStageUnwindWrongType,
						"expected a boolean for the preserveNullAndEmptyArrays option to $unwind stage",
						"$unwind (stage)",
					)
				}

				u.preserve = b

			default:
				return nil, aggregations.NewError(
					aggregations.ErrStageUnwindWrongType,
					fmt.Sprintf("unrecognized option to $unwind stage: %s", e.Key),
					"$unwind (stage)",
				)
			}
		}

		if field == "" {
			return nil, aggregations.NewError(
				aggregations.ErrStageUnwindNoPath,
				"no path specified to $unwind stage",
				"$unwind (stage)",
			)
		}

	default:
		return nil, aggregations.NewError(
			aggregations.ErrStageUnwindWrongType,
			"expected either a string or an object as specification for $unwind stage",
			"$unwind (stage)",
		)
	}

	if !strings.HasPrefix(field, "$") || strings.HasPrefix(field, "$$") {
		return nil, aggregations.NewError(
			aggregations.ErrStageUnwindNoPrefix,
			fmt.Sprintf("path option to $unwind stage should be prefixed with a '$': %s", field),
			"$unwind (stage)",
		)
	}

	if _, err := aggregations.NewExpression(field); err != nil {
		return nil, aggregations.NewError(
			aggregations.ErrFieldPathEmpty,
			fmt.Sprintf("invalid $unwind path %q", field),
			"$unwind (stage)",
		)
	}

	u.path = must.NotFail(types.NewPathFromString(strings.TrimPrefix(field, "$")))

	return &u, nil
}

// Process implements Stage interface.
func (u *unwind) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	var pending []bson.D

	return newStageIterator(ctx, iter, func() (bson.D, error) {
		for len(pending) == 0 {
			_, doc, err := iter.Next()
			if err != nil {
				return nil, err
			}

			pending = u.unwindDocument(doc)
		}

		doc := pending[0]
		pending = pending[1:]

		return doc, nil
	}), nil
}

// unwindDocument returns a document for every element of the array at the path.
func (u *unwind) unwindDocument(doc bson.D) []bson.D {
	path := u.path.Slice()

	v, found := types.GetByPath(doc, u.path)

	arr, isArray := v.(bson.A)

	switch {
	case isArray && len(arr) > 0:
		res := make([]bson.D, len(arr))

		for i, e := range arr {
			res[i] = setPath(doc, path, e)

			if u.includeArrayIndex != "" {
				res[i] = setPath(res[i], []string{u.includeArrayIndex}, int64(i))
			}
		}

		return res

	case !found || types.IsNull(v) || isArray:
		if !u.preserve {
			return nil
		}

		if isArray {
			doc = removePath(doc, path)
		}

		if u.includeArrayIndex != "" {
			doc = setPath(doc, []string{u.includeArrayIndex}, nil)
		}

		return []bson.D{doc}

	default:
		// non-array values are treated as single-element arrays
		if u.includeArrayIndex != "" {
			doc = setPath(doc, []string{u.includeArrayIndex}, nil)
		}

		return []bson.D{doc}
	}
}

// check interfaces
var (
	_ Stage = (*unwind)(nil)
)
