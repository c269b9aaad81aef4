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

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/aggregations/operators"
	"github.com/FerretDB/docmap/internal/types"
)

// projectField is a single field of $project stage.
type projectField struct {
	// expr is nil for included or excluded fields
	expr operators.Operator
	path types.Path
}

// project represents $project stage.
//
// In inclusion mode, `_id` is included unless excluded explicitly,
// other fields are included only if specified; computed fields are set in the specification order.
// In exclusion mode, specified fields are removed.
type project struct {
	fields    []projectField
	exclusion bool
	excludeID bool
	computeID bool
}

// newProject creates a new $project stage.
func newProject(stage bson.D) (Stage, error) {
	spec, ok := stage[0].Value.(bson.D)
	if !ok || len(spec) == 0 {
		return nil, aggregations.NewError(
			aggregations.ErrEmptyProject,
			"projection specification must have at least one field",
			"$project (stage)",
		)
	}

	var p project

	var hasInclusion, hasExclusion bool

	seen := make(map[string]struct{}, len(spec))

	for _, f := range spec {
		if _, ok := seen[f.Key]; ok {
			return nil, aggregations.NewError(
				aggregations.ErrDuplicateField,
				fmt.Sprintf("FieldPath field names may not start with '$' or be duplicated: %s", f.Key),
				"$project (stage)",
			)
		}

		seen[f.Key] = struct{}{}

		path, err := types.NewPathFromString(f.Key)
		if err != nil {
			return nil, aggregations.NewError(
				aggregations.ErrFailedToParse,
				fmt.Sprintf("Invalid $project :: caused by :: FieldPath %q is invalid", f.Key),
				"$project (stage)",
			)
		}

		switch v := f.Value.(type) {
		case bool, int32, int64, float64:
			include := truthy(v)

			if f.Key == "_id" {
				p.excludeID = !include
				continue
			}

			if include {
				hasInclusion = true
			} else {
				hasExclusion = true
			}

			p.fields = append(p.fields, projectField{path: path})

		default:
			expr, err := operators.NewExpression(v)
			if err != nil {
				return nil, err
			}

			if f.Key == "_id" {
				p.computeID = true
			}

			hasInclusion = true

			p.fields = append(p.fields, projectField{path: path, expr: expr})
		}

		if hasInclusion && hasExclusion {
			if f.Key != "_id" && p.fields[len(p.fields)-1].expr == nil && !truthy(f.Value) {
				return nil, aggregations.NewError(
					aggregations.ErrProjectionExclusion,
					fmt.Sprintf("Invalid $project :: caused by :: Cannot do exclusion on field %s in inclusion projection", f.Key),
					"$project (stage)",
				)
			}

			return nil, aggregations.NewError(
				aggregations.ErrProjectionInclusion,
				fmt.Sprintf("Invalid $project :: caused by :: Cannot do inclusion on field %s in exclusion projection", f.Key),
				"$project (stage)",
			)
		}
	}

	p.exclusion = !hasInclusion

	return &p, nil
}

// Process implements Stage interface.
func (p *project) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	return newStageIterator(ctx, iter, func() (bson.D, error) {
		_, doc, err := iter.Next()
		if err != nil {
			return nil, err
		}

		return p.projectDocument(doc)
	}), nil
}

// projectDocument applies projection to the document.
func (p *project) projectDocument(doc bson.D) (bson.D, error) {
	if p.exclusion {
		res := doc

		if p.excludeID {
			res = removePath(res, []string{"_id"})
		}

		for _, f := range p.fields {
			res = removePath(res, f.path.Slice())
		}

		return res, nil
	}

	res := bson.D{}

	if id, ok := types.Get(doc, "_id"); ok && !p.excludeID && !p.computeID {
		res = append(res, bson.E{Key: "_id", Value: id})
	}

	for _, f := range p.fields {
		var v any

		if f.expr == nil {
			var ok bool
			if v, ok = types.GetByPath(doc, f.path); !ok {
				continue
			}
		} else {
			var err error
			if v, err = f.expr.Process(doc); err != nil {
				return nil, err
			}

			if aggregations.IsMissing(v) {
				continue
			}
		}

		res = setPath(res, f.path.Slice(), v)
	}

	return res, nil
}

// addFields represents $addFields stage and its $set alias.
type addFields struct {
	fields []projectField
}

// newAddFields creates a new $addFields stage.
func newAddFields(stage bson.D) (Stage, error) {
	spec, ok := stage[0].Value.(bson.D)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageAddFieldsInvalid,
			fmt.Sprintf("%s specification stage must be an object", stage[0].Key),
			stage[0].Key+" (stage)",
		)
	}

	fields := make([]projectField, 0, len(spec))

	for _, f := range spec {
		path, err := types.NewPathFromString(f.Key)
		if err != nil {
			return nil, aggregations.NewError(
				aggregations.ErrFailedToParse,
				fmt.Sprintf("FieldPath %q is invalid", f.Key),
				stage[0].Key+" (stage)",
			)
		}

		expr, err := operators.NewExpression(f.Value)
		if err != nil {
			return nil, err
		}

		fields = append(fields, projectField{path: path, expr: expr})
	}

	return &addFields{fields: fields}, nil
}

// Process implements Stage interface.
// Fields evaluated to missing values are not added.
func (a *addFields) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	return newStageIterator(ctx, iter, func() (bson.D, error) {
		_, doc, err := iter.Next()
		if err != nil {
			return nil, err
		}

		res := doc

		for _, f := range a.fields {
			v, err := f.expr.Process(doc)
			if err != nil {
				return nil, err
			}

			if aggregations.IsMissing(v) {
				continue
			}

			res = setPath(res, f.path.Slice(), v)
		}

		return res, nil
	}), nil
}

// check interfaces
var (
	_ Stage = (*project)(nil)
	_ Stage = (*addFields)(nil)
)
