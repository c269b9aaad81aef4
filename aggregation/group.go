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
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Accumulation is a named expression.
//
// In a group stage, it is either a sub-key of the composite identifier (see ID)
// or an output field computed by an accumulator expression.
type Accumulation struct {
	expr Expression
	name string
}

// Grouping returns a new named expression.
func Grouping(name string, expr Expression) Accumulation {
	return Accumulation{
		name: name,
		expr: expr,
	}
}

// Name returns the field name.
func (a Accumulation) Name() string {
	return a.name
}

// GroupKey is the identifier of a group stage.
//
// The zero value is the null key; it groups all documents together.
type GroupKey struct {
	expr      Expression
	parts     []Accumulation
	composite bool
}

// ID returns a composite group key.
// Sub-keys become fields of the identifier document in the given order.
// At least one sub-key is required.
func ID(parts ...Accumulation) GroupKey {
	return GroupKey{
		parts:     append([]Accumulation(nil), parts...),
		composite: true,
	}
}

// IDExpr returns a scalar group key.
func IDExpr(expr Expression) GroupKey {
	return GroupKey{
		expr: expr,
	}
}

// NullID returns the null group key.
func NullID() GroupKey {
	return GroupKey{}
}

// IsNull returns true if the key groups all documents together.
func (k GroupKey) IsNull() bool {
	return k.expr == nil && !k.composite
}

// GroupStage is a validated $group stage.
type GroupStage struct {
	doc bson.D
}

// NewGroup returns a new $group stage.
//
// Sub-key names and output names must be unique, outputs must not be named _id,
// and every output must be computed by an accumulator with a single argument.
func NewGroup(key GroupKey, accs ...Accumulation) (*GroupStage, error) {
	id, err := key.encode()
	if err != nil {
		return nil, err
	}

	doc := bson.D{{Key: "_id", Value: id}}
	seen := make(map[string]struct{}, len(accs))

	for _, acc := range accs {
		if err = validateOutputName("$group", acc.name); err != nil {
			return nil, err
		}

		if acc.name == "_id" {
			return nil, newInvalidExpressionError("$group", "output field must not be named _id")
		}

		if _, ok := seen[acc.name]; ok {
			return nil, newInvalidExpressionError("$group", fmt.Sprintf("duplicate output field %q", acc.name))
		}

		seen[acc.name] = struct{}{}

		if acc.expr == nil {
			return nil, newInvalidExpressionError("$group", fmt.Sprintf("output field %q has no expression", acc.name))
		}

		if err = acc.expr.err(); err != nil {
			return nil, err
		}

		op, ok := acc.expr.(*operatorExpr)
		if !ok || !op.spec.accumulator {
			return nil, newInvalidExpressionError(
				"$group",
				fmt.Sprintf("output field %q must be computed by an accumulator", acc.name),
			)
		}

		if len(op.args) != 1 {
			return nil, newInvalidExpressionError(
				op.spec.name,
				fmt.Sprintf("accumulator of output field %q must have a single argument", acc.name),
			)
		}

		doc = append(doc, bson.E{Key: acc.name, Value: op.bsonValue()})
	}

	return &GroupStage{doc: doc}, nil
}

// encode validates the key and returns its encoding.
func (k GroupKey) encode() (any, error) {
	switch {
	case k.composite:
		if len(k.parts) == 0 {
			return nil, newInvalidExpressionError("$group", "composite key has no sub-keys")
		}

		doc := make(bson.D, 0, len(k.parts))
		seen := make(map[string]struct{}, len(k.parts))

		for _, p := range k.parts {
			if err := validateOutputName("$group", p.name); err != nil {
				return nil, err
			}

			if _, ok := seen[p.name]; ok {
				return nil, newInvalidExpressionError("$group", fmt.Sprintf("duplicate sub-key %q", p.name))
			}

			seen[p.name] = struct{}{}

			v, err := keyValue(p.expr)
			if err != nil {
				return nil, err
			}

			doc = append(doc, bson.E{Key: p.name, Value: v})
		}

		return doc, nil

	case k.expr != nil:
		return keyValue(k.expr)

	default:
		return nil, nil
	}
}

// keyValue returns the encoding of the group key expression.
func keyValue(expr Expression) (any, error) {
	if expr == nil {
		return nil, newInvalidExpressionError("$group", "sub-key has no expression")
	}

	if err := expr.err(); err != nil {
		return nil, err
	}

	if op, ok := expr.(*operatorExpr); ok && op.spec.accumulatorOnly {
		return nil, newInvalidExpressionError(op.spec.name, "can't be used in a group key")
	}

	return expr.bsonValue(), nil
}

// validateOutputName checks the name of the output field.
func validateOutputName(stage, name string) error {
	switch {
	case name == "":
		return newInvalidExpressionError(stage, "field name is empty")
	case strings.HasPrefix(name, "$"):
		return newInvalidExpressionError(stage, fmt.Sprintf("field name %q must not start with '$'", name))
	case strings.Contains(name, "."):
		return newInvalidExpressionError(stage, fmt.Sprintf("field name %q must not contain '.'", name))
	}

	return nil
}

// Name implements Stage.
func (s *GroupStage) Name() string {
	return "$group"
}

// Document implements Stage.
func (s *GroupStage) Document() bson.D {
	return bson.D{{Key: "$group", Value: s.doc}}
}

// sealed implements Stage.
func (s *GroupStage) sealed() {}

// check interfaces
var (
	_ Stage = (*GroupStage)(nil)
)
