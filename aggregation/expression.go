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

// Package aggregation builds aggregation pipelines from typed expressions
// and decodes their results into Go values.
//
// A typical aggregation groups documents and decodes groups into structs:
//
//	a := aggregation.New(executor, "sales", nil).
//		Group(
//			aggregation.ID(
//				aggregation.Grouping("day", aggregation.DayOfYear(aggregation.Field("date"))),
//				aggregation.Grouping("year", aggregation.Year(aggregation.Field("date"))),
//			),
//			aggregation.Grouping("totalPrice", aggregation.Sum(
//				aggregation.Multiply(aggregation.Fields("price", "quantity")...),
//			)),
//			aggregation.Grouping("count", aggregation.Sum(aggregation.Literal(1))),
//		)
//
//	results, err := aggregation.Aggregate[SalesByDay](ctx, a)
//
// Expressions and stages are immutable values; nothing is executed until Aggregate is called.
package aggregation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueType is the statically known type of an expression value.
type ValueType int

// Value types.
const (
	TypeUnknown ValueType = iota
	TypeNumber
	TypeDate
	TypeString
	TypeBool
	TypeArray
	TypeDocument
	TypeNull
)

// String implements fmt.Stringer.
func (t ValueType) String() string {
	switch t {
	case TypeUnknown:
		return "unknown"
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeArray:
		return "array"
	case TypeDocument:
		return "document"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Expression is a node of an aggregation expression tree:
// a field reference, a literal, or an operator applied to other expressions.
//
// Expressions are created by functions of this package only.
type Expression interface {
	// bsonValue returns the native encoding of the expression.
	bsonValue() any

	// valueType returns the statically known type of the expression value.
	valueType() ValueType

	// err returns the construction error, if any.
	err() error
}

// Encode returns the native encoding of the expression, as used in pipeline stages.
// It returns *InvalidExpressionError if the expression is invalid.
func Encode(expr Expression) (any, error) {
	if expr == nil {
		return nil, newInvalidExpressionError("", "expression is nil")
	}

	if err := expr.err(); err != nil {
		return nil, err
	}

	return expr.bsonValue(), nil
}

// FieldReference is a reference to a field of the document processed by a stage.
type FieldReference struct {
	e    error
	name string
}

// Field returns a reference to the field with the given name; dotted paths are allowed.
func Field(name string) *FieldReference {
	return &FieldReference{
		name: name,
		e:    validateFieldPath("", name),
	}
}

// Fields returns references to the fields with the given names,
// for use as variadic operator arguments.
func Fields(names ...string) []Expression {
	res := make([]Expression, len(names))
	for i, n := range names {
		res[i] = Field(n)
	}

	return res
}

// Name returns the field name.
func (f *FieldReference) Name() string {
	return f.name
}

// String returns the field path expression.
func (f *FieldReference) String() string {
	return "$" + f.name
}

// bsonValue implements Expression.
func (f *FieldReference) bsonValue() any {
	return "$" + f.name
}

// valueType implements Expression.
func (f *FieldReference) valueType() ValueType {
	return TypeUnknown
}

// err implements Expression.
func (f *FieldReference) err() error {
	return f.e
}

// validateFieldPath checks the field path.
func validateFieldPath(op, name string) error {
	if name == "" {
		return newInvalidExpressionError(op, "field name is empty")
	}

	if strings.HasPrefix(name, "$") {
		return newInvalidExpressionError(op, fmt.Sprintf("field name %q must not start with '$'", name))
	}

	for _, e := range strings.Split(name, ".") {
		if e == "" {
			return newInvalidExpressionError(op, fmt.Sprintf("field path %q contains an empty element", name))
		}
	}

	return nil
}

// literal is a constant expression.
type literal struct {
	value any
	typ   ValueType
}

// Literal returns a constant expression.
//
// Strings starting with "$" and documents are encoded as {$literal: v}
// so that they are not evaluated as field paths or operators.
func Literal(v any) Expression {
	return &literal{
		value: v,
		typ:   typeOf(v),
	}
}

// bsonValue implements Expression.
func (l *literal) bsonValue() any {
	switch v := l.value.(type) {
	case string:
		if strings.HasPrefix(v, "$") {
			return bson.D{{Key: "$literal", Value: v}}
		}
	case bson.D, bson.M:
		return bson.D{{Key: "$literal", Value: v}}
	}

	return l.value
}

// projectValue returns the encoding of the literal inside $project,
// where bare numbers and booleans would mean inclusion or exclusion.
func (l *literal) projectValue() any {
	switch l.typ { //nolint:exhaustive // other types are not ambiguous
	case TypeNumber, TypeBool, TypeNull:
		return bson.D{{Key: "$literal", Value: l.value}}
	}

	return l.bsonValue()
}

// valueType implements Expression.
func (l *literal) valueType() ValueType {
	return l.typ
}

// err implements Expression.
func (l *literal) err() error {
	return nil
}

// typeOf returns the value type of the Go value.
func typeOf(v any) ValueType {
	switch v.(type) {
	case nil, primitive.Null:
		return TypeNull
	case time.Time, primitive.DateTime:
		return TypeDate
	case string:
		return TypeString
	case bool:
		return TypeBool
	case bson.D, bson.M:
		return TypeDocument
	case bson.A:
		return TypeArray
	case primitive.Decimal128:
		return TypeNumber
	case primitive.ObjectID, primitive.Binary, []byte:
		return TypeUnknown
	}

	switch reflect.TypeOf(v).Kind() { //nolint:exhaustive // other kinds are unknown
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Slice, reflect.Array:
		return TypeArray
	default:
		return TypeUnknown
	}
}

// check interfaces
var (
	_ Expression = (*FieldReference)(nil)
	_ Expression = (*literal)(nil)
)
