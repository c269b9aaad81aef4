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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		filter   Filter
		expected bson.D
	}{
		"Empty": {
			filter:   Filter{},
			expected: bson.D{},
		},
		"Eq": {
			filter:   Eq("item", "abc"),
			expected: bson.D{{"item", bson.D{{"$eq", "abc"}}}},
		},
		"Ne": {
			filter:   Ne("item", "abc"),
			expected: bson.D{{"item", bson.D{{"$ne", "abc"}}}},
		},
		"Gt": {
			filter:   Gt("price", 5),
			expected: bson.D{{"price", bson.D{{"$gt", 5}}}},
		},
		"Lte": {
			filter:   Lte("price", 5),
			expected: bson.D{{"price", bson.D{{"$lte", 5}}}},
		},
		"In": {
			filter:   In("item", "abc", "xyz"),
			expected: bson.D{{"item", bson.D{{"$in", bson.A{"abc", "xyz"}}}}},
		},
		"NinEmpty": {
			filter:   Nin("item"),
			expected: bson.D{{"item", bson.D{{"$nin", bson.A{}}}}},
		},
		"Exists": {
			filter:   Exists("date", false),
			expected: bson.D{{"date", bson.D{{"$exists", false}}}},
		},
		"And": {
			filter: And(Gte("price", 5), Filter{}, Lt("price", 20)),
			expected: bson.D{{"$and", bson.A{
				bson.D{{"price", bson.D{{"$gte", 5}}}},
				bson.D{{"price", bson.D{{"$lt", 20}}}},
			}}},
		},
		"OrSingle": {
			filter:   Or(Eq("item", "abc")),
			expected: bson.D{{"item", bson.D{{"$eq", "abc"}}}},
		},
		"AndNothing": {
			filter:   And(),
			expected: bson.D{},
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tc.filter.Document())
		})
	}
}

func TestFilterString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"item":{"$in":["abc",1]}}`, In("item", "abc", int32(1)).String())
	assert.Equal(t, `{}`, Filter{}.String())
}

func TestFilterImmutable(t *testing.T) {
	t.Parallel()

	f := Eq("item", "abc")
	doc := f.Document()
	doc[0].Key = "foo"

	assert.Equal(t, "item", f.Document()[0].Key)
}
