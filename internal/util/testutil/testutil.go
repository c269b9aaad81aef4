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

// Package testutil provides testing helpers.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// Ctx returns test context.
// It is canceled when test is finished.
func Ctx(tb testing.TB) context.Context {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	ctx, span := otel.Tracer("").Start(ctx, tb.Name())
	tb.Cleanup(func() {
		span.End()
	})

	return ctx
}

var (
	collectionNamesM sync.Mutex
	collectionNames  = make(map[string]struct{})
)

// CollectionName returns a stable collection name for that test.
//
// It panics if the same name is requested twice, as tests may run in parallel against the same backend.
func CollectionName(tb testing.TB) string {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "$", "_", "#", "_").Replace(tb.Name())

	require.Less(tb, len(name), 255)

	collectionNamesM.Lock()
	defer collectionNamesM.Unlock()

	if _, ok := collectionNames[name]; ok {
		panic("duplicate collection name " + name)
	}

	collectionNames[name] = struct{}{}

	return name
}

// SQLiteURI returns SQLite URI of a new database file in the test's temporary directory.
func SQLiteURI(tb testing.TB) string {
	tb.Helper()

	return "file:" + tb.TempDir() + "/docmap.sqlite"
}

// PostgreSQLURL returns PostgreSQL URL for testing taken from DOCMAP_TEST_POSTGRESQL_URL environment variable.
// The test is skipped if it is not set or in -short mode.
func PostgreSQLURL(tb testing.TB) string {
	tb.Helper()

	return envOrSkip(tb, "DOCMAP_TEST_POSTGRESQL_URL")
}

// MongoDBURI returns MongoDB URI for testing taken from DOCMAP_TEST_MONGODB_URI environment variable.
// The test is skipped if it is not set or in -short mode.
func MongoDBURI(tb testing.TB) string {
	tb.Helper()

	return envOrSkip(tb, "DOCMAP_TEST_MONGODB_URI")
}

// envOrSkip returns the value of the environment variable or skips the test.
func envOrSkip(tb testing.TB, name string) string {
	tb.Helper()

	if testing.Short() {
		tb.Skip("skipping in -short mode")
	}

	v := os.Getenv(name)
	if v == "" {
		tb.Skipf("%s is not set", name)
	}

	return v
}
