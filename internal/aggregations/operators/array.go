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

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
)

// firstLast represents `$first` and `$last` array operators.
type firstLast struct {
	arg  Operator
	name string
}

// newFirstLast returns `$first` or `$last` operator.
func newFirstLast(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 1, 1)
	if err != nil {
		return nil, err
	}

	return &firstLast{arg: ops[0], name: name}, nil
}

// Process implements Operator interface.
func (f *firstLast) Process(doc bson.D) (any, error) {
	v, err := f.arg.Process(doc)
	if err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case nil, aggregations.MissingType:
		return v, nil
	case bson.A:
		if len(v) == 0 {
			return aggregations.Missing, nil
		}

		if f.name == "$first" {
			return v[0], nil
		}

		return v[len(v)-1], nil
	default:
		return nil, aggregations.NewError(
			aggregations.ErrFirstLastNonArray,
			fmt.Sprintf("%s's argument must be an array, but is %s", f.name, typeName(v)),
			f.name,
		)
	}
}

// check interfaces
var (
	_ Operator = (*firstLast)(nil)
)
