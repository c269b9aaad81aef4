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

package testutil

import (
	"fmt"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// AssertEqualDocuments asserts that two document lists are equal.
//
// Documents are compared by their canonical Extended JSON form,
// so field order and exact numeric types are significant.
func AssertEqualDocuments(tb testing.TB, expected, actual []bson.D) bool {
	tb.Helper()

	expectedS := dumpDocuments(tb, expected)
	actualS := dumpDocuments(tb, actual)

	if expectedS == actualS {
		return true
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expectedS),
		FromFile: "expected",
		B:        difflib.SplitLines(actualS),
		ToFile:   "actual",
		Context:  1,
	})
	require.NoError(tb, err)

	msg := fmt.Sprintf("Not equal: \nexpected: %s\nactual  : %s\n%s", expectedS, actualS, diff)

	return assert.Fail(tb, msg)
}

// dumpDocuments returns documents as canonical Extended JSON, one per line.
func dumpDocuments(tb testing.TB, docs []bson.D) string {
	tb.Helper()

	var res string

	for _, doc := range docs {
		b, err := bson.MarshalExtJSON(doc, true, false)
		require.NoError(tb, err)

		res += string(b) + "\n"
	}

	return res
}
