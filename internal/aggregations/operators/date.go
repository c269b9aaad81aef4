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

package operators

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/aggregations"
)

// datePart represents date operators like `$year` and `$dayOfYear`.
// Dates are interpreted in UTC.
type datePart struct {
	date Operator
	part func(t time.Time) int
	name string
}

// dateParts maps date operators to functions extracting the date part.
var dateParts = map[string]func(t time.Time) int{
	"$year":        func(t time.Time) int { return t.Year() },
	"$month":       func(t time.Time) int { return int(t.Month()) },
	"$dayOfMonth":  func(t time.Time) int { return t.Day() },
	"$dayOfYear":   func(t time.Time) int { return t.YearDay() },
	"$dayOfWeek":   func(t time.Time) int { return int(t.Weekday()) + 1 },
	"$hour":        func(t time.Time) int { return t.Hour() },
	"$minute":      func(t time.Time) int { return t.Minute() },
	"$second":      func(t time.Time) int { return t.Second() },
	"$millisecond": func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) },
}

// newDatePart returns date part operator.
// The argument is either a date expression, an array with one date expression,
// or a document with the "date" field.
func newDatePart(name string, args any) (Operator, error) {
	if doc, ok := args.(bson.D); ok && !IsOperator(doc) {
		if len(doc) != 1 || doc[0].Key != "date" {
			return nil, aggregations.NewError(
				aggregations.ErrFailedToParse,
				fmt.Sprintf("%s only supports the 'date' argument", name),
				name,
			)
		}

		args = doc[0].Value
	}

	ops, err := parseArgs(name, args, 1, 1)
	if err != nil {
		return nil, err
	}

	return &datePart{date: ops[0], part: dateParts[name], name: name}, nil
}

// Process implements Operator interface.
// It returns null for null and missing values.
func (d *datePart) Process(doc bson.D) (any, error) {
	v, err := d.date.Process(doc)
	if err != nil {
		return nil, err
	}

	var t time.Time

	switch v := v.(type) {
	case nil, aggregations.MissingType:
		return nil, nil
	case primitive.DateTime:
		t = v.Time()
	case time.Time:
		t = v
	case primitive.ObjectID:
		t = v.Timestamp()
	case primitive.Timestamp:
		t = time.Unix(int64(v.T), 0)
	default:
		return nil, aggregations.NewError(
			aggregations.ErrDateNonDate,
			fmt.Sprintf("can't convert from BSON type %s to Date", typeName(v)),
			d.name,
		)
	}

	return int32(d.part(t.UTC())), nil
}

// check interfaces
var (
	_ Operator = (*datePart)(nil)
)
