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
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// FilterDocument returns true if the given document satisfies the given query filter.
//
// Supported operators are $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $exists,
// and top-level $and, $or, $nor.
func FilterDocument(doc, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := filterElement(doc, e.Key, e.Value)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// filterElement checks one filter element: a logical operator or a field condition.
func filterElement(doc bson.D, key string, value any) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		exprs, ok := value.(bson.A)
		if !ok || len(exprs) == 0 {
			return false, aggregations.NewError(
				aggregations.ErrBadValue,
				fmt.Sprintf("%s must be a nonempty array", key),
				key,
			)
		}

		for _, expr := range exprs {
			sub, ok := expr.(bson.D)
			if !ok {
				return false, aggregations.NewError(
					aggregations.ErrBadValue,
					fmt.Sprintf("%s argument's entries must be objects", key),
					key,
				)
			}

			matched, err := FilterDocument(doc, sub)
			if err != nil {
				return false, err
			}

			switch {
			case key == "$and" && !matched:
				return false, nil
			case key == "$or" && matched:
				return true, nil
			case key == "$nor" && matched:
				return false, nil
			}
		}

		return key != "$or", nil
	}

	if strings.HasPrefix(key, "$") {
		return false, aggregations.NewError(
			aggregations.ErrBadValue,
			fmt.Sprintf("unknown top level operator: %s", key),
			key,
		)
	}

	path, err := types.NewPathFromString(key)
	if err != nil {
		return false, aggregations.NewError(aggregations.ErrBadValue, fmt.Sprintf("invalid field name %q", key), key)
	}

	candidates := lookup(doc, path.Slice())

	cond, ok := value.(bson.D)
	if !ok || len(cond) == 0 || !strings.HasPrefix(cond[0].Key, "$") {
		return matchEq(candidates, value), nil
	}

	for _, c := range cond {
		matched, err := filterOperator(candidates, c.Key, c.Value)
		if err != nil || !matched {
			return false, err
		}
	}

	return true, nil
}

// filterOperator checks a single field condition like {$gt: 5}.
func filterOperator(candidates []any, op string, operand any) (bool, error) {
	switch op {
	case "$eq":
		return matchEq(candidates, operand), nil

	case "$ne":
		return !matchEq(candidates, operand), nil

	case "$gt", "$gte", "$lt", "$lte":
		return matchAny(candidates, func(v any) bool {
			if !sameBracket(v, operand) {
				return false
			}

			c := types.Compare(v, operand)

			switch op {
			case "$gt":
				return c == types.Greater
			case "$gte":
				return c != types.Less
			case "$lt":
				return c == types.Less
			default:
				return c != types.Greater
			}
		}), nil

	case "$in", "$nin":
		arr, ok := operand.(bson.A)
		if !ok {
			return false, aggregations.NewError(aggregations.ErrBadValue, op[1:]+" needs an array", op)
		}

		var in bool

		for _, v := range arr {
			if matchEq(candidates, v) {
				in = true
				break
			}
		}

		return in == (op == "$in"), nil

	case "$exists":
		return (len(candidates) > 0) == truthy(operand), nil

	default:
		return false, aggregations.NewError(
			aggregations.ErrBadValue,
			fmt.Sprintf("unknown operator: %s", op),
			op,
		)
	}
}

// lookup returns all values at the path.
//
// Arrays on the way are traversed: both numeric indexes and documents in arrays are used.
func lookup(v any, path []string) []any {
	if len(path) == 0 {
		return []any{v}
	}

	switch v := v.(type) {
	case bson.D:
		child, ok := types.Get(v, path[0])
		if !ok {
			return nil
		}

		return lookup(child, path[1:])

	case bson.A:
		var res []any

		if i, err := strconv.Atoi(path[0]); err == nil && i >= 0 && i < len(v) {
			res = append(res, lookup(v[i], path[1:])...)
		}

		for _, e := range v {
			if d, ok := e.(bson.D); ok {
				res = append(res, lookup(d, path)...)
			}
		}

		return res

	default:
		return nil
	}
}

// matchAny returns true if f is true for any candidate or any element of an array candidate.
func matchAny(candidates []any, f func(v any) bool) bool {
	for _, c := range candidates {
		if f(c) {
			return true
		}

		if arr, ok := c.(bson.A); ok {
			for _, e := range arr {
				if f(e) {
					return true
				}
			}
		}
	}

	return false
}

// matchEq returns true if any candidate equals the value.
// Null matches missing fields.
func matchEq(candidates []any, value any) bool {
	if types.IsNull(value) && len(candidates) == 0 {
		return true
	}

	return matchAny(candidates, func(v any) bool {
		return sameBracket(v, value) && types.Compare(v, value) == types.Equal
	})
}

// sameBracket returns true if values belong to the same BSON type bracket.
func sameBracket(a, b any) bool {
	if types.IsNumber(a) && types.IsNumber(b) {
		return true
	}

	if types.IsNull(a) && types.IsNull(b) {
		return true
	}

	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

// truthy returns false for false, null, and zero numbers.
func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case nil:
		return false
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
