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
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// projectionKind represents the kind of the projection.
type projectionKind int

const (
	projectionCompute projectionKind = iota
	projectionInclude
	projectionExcludeID
)

// Projection is a single field of a project stage.
type Projection struct {
	expr Expression
	name string
	kind projectionKind
}

// Compute returns a projection of the computed field.
func Compute(name string, expr Expression) Projection {
	return Projection{
		name: name,
		expr: expr,
		kind: projectionCompute,
	}
}

// Include returns a projection that carries the field over unchanged.
func Include(name string) Projection {
	return Projection{
		name: name,
		kind: projectionInclude,
	}
}

// ExcludeID returns a projection that removes the _id field from the output.
func ExcludeID() Projection {
	return Projection{
		name: "_id",
		kind: projectionExcludeID,
	}
}

// ProjectStage is a validated $project stage.
//
// Only computed and included fields are present in the output;
// _id is carried over unless ExcludeID is given.
type ProjectStage struct {
	doc bson.D
}

// NewProject returns a new $project stage.
func NewProject(specs ...Projection) (*ProjectStage, error) {
	doc := make(bson.D, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))

	var fields int

	for _, p := range specs {
		if p.kind != projectionExcludeID {
			if err := validateFieldPath("$project", p.name); err != nil {
				return nil, err
			}
		}

		if _, ok := seen[p.name]; ok {
			return nil, newInvalidExpressionError("$project", fmt.Sprintf("duplicate field %q", p.name))
		}

		seen[p.name] = struct{}{}

		switch p.kind {
		case projectionExcludeID:
			doc = append(doc, bson.E{Key: "_id", Value: int32(0)})
			continue

		case projectionInclude:
			doc = append(doc, bson.E{Key: p.name, Value: int32(1)})

		case projectionCompute:
			v, err := projectValue(p.expr)
			if err != nil {
				return nil, err
			}

			doc = append(doc, bson.E{Key: p.name, Value: v})
		}

		fields++
	}

	if fields == 0 {
		return nil, newInvalidExpressionError("$project", "projection has no fields")
	}

	return &ProjectStage{doc: doc}, nil
}

// projectValue returns the encoding of the computed field expression.
func projectValue(expr Expression) (any, error) {
	if expr == nil {
		return nil, newInvalidExpressionError("$project", "computed field has no expression")
	}

	if err := expr.err(); err != nil {
		return nil, err
	}

	switch expr := expr.(type) {
	case *literal:
		return expr.projectValue(), nil

	case *operatorExpr:
		if expr.spec.accumulatorOnly {
			return nil, newInvalidExpressionError(expr.spec.name, "can be used only in a group stage")
		}
	}

	return expr.bsonValue(), nil
}

// Name implements Stage.
func (s *ProjectStage) Name() string {
	return "$project"
}

// Document implements Stage.
func (s *ProjectStage) Document() bson.D {
	return bson.D{{Key: "$project", Value: s.doc}}
}

// sealed implements Stage.
func (s *ProjectStage) sealed() {}

// check interfaces
var (
	_ Stage = (*ProjectStage)(nil)
)
