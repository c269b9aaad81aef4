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
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/aggregations"
)

// concat represents `$concat` operator.
type concat struct {
	args []Operator
}

// newConcat returns `$concat` operator.
func newConcat(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 0, -1)
	if err != nil {
		return nil, err
	}

	return &concat{args: ops}, nil
}

// Process implements Operator interface.
// It returns null if any argument is null or missing.
func (c *concat) Process(doc bson.D) (any, error) {
	vs, err := processArgs(c.args, doc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder

	for _, v := range vs {
		switch v := v.(type) {
		case nil:
			return nil, nil
		case string:
			sb.WriteString(v)
		default:
			return nil, aggregations.NewError(
				aggregations.ErrConcatNonString,
				fmt.Sprintf("$concat only supports strings, not %s", typeName(v)),
				"$concat",
			)
		}
	}

	return sb.String(), nil
}

// changeCase represents `$toLower` and `$toUpper` operators.
type changeCase struct {
	arg   Operator
	upper bool
}

// newCase returns `$toLower` or `$toUpper` operator.
func newCase(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 1, 1)
	if err != nil {
		return nil, err
	}

	return &changeCase{arg: ops[0], upper: name == "$toUpper"}, nil
}

// Process implements Operator interface.
// Null and missing values become an empty string, numbers and dates are converted to strings.
func (c *changeCase) Process(doc bson.D) (any, error) {
	v, err := c.arg.Process(doc)
	if err != nil {
		return nil, err
	}

	var s string

	switch v := v.(type) {
	case nil, aggregations.MissingType:
		return "", nil
	case string:
		s = v
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'g', -1, 64)
	case primitive.DateTime:
		s = v.Time().UTC().Format("2006-01-02T15:04:05.000Z")
	default:
		name := "$toLower"
		if c.upper {
			name = "$toUpper"
		}

		return nil, aggregations.NewError(
			aggregations.ErrTypeMismatch,
			fmt.Sprintf("can't convert from BSON type %s to String", typeName(v)),
			name,
		)
	}

	if c.upper {
		return strings.ToUpper(s), nil
	}

	return strings.ToLower(s), nil
}

// check interfaces
var (
	_ Operator = (*concat)(nil)
	_ Operator = (*changeCase)(nil)
)
