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
	"go.mongodb.org/mongo-driver/bson"
)

// setPath returns a copy of the document with the value set at the path.
// Documents on the path are copied; missing or non-document elements are replaced with documents.
func setPath(doc bson.D, path []string, v any) bson.D {
	res := make(bson.D, len(doc), len(doc)+1)
	copy(res, doc)

	for i, e := range res {
		if e.Key != path[0] {
			continue
		}

		if len(path) == 1 {
			res[i].Value = v
			return res
		}

		child, _ := e.Value.(bson.D)
		res[i].Value = setPath(child, path[1:], v)

		return res
	}

	if len(path) == 1 {
		return append(res, bson.E{Key: path[0], Value: v})
	}

	return append(res, bson.E{Key: path[0], Value: setPath(nil, path[1:], v)})
}

// removePath returns a copy of the document without the value at the path.
func removePath(doc bson.D, path []string) bson.D {
	res := make(bson.D, 0, len(doc))

	for _, e := range doc {
		if e.Key != path[0] {
			res = append(res, e)
			continue
		}

		if len(path) == 1 {
			continue
		}

		if child, ok := e.Value.(bson.D); ok {
			e.Value = removePath(child, path[1:])
		}

		res = append(res, e)
	}

	return res
}
