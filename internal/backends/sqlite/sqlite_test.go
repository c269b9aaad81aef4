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

package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/internal/util/testutil"
)

func TestValidateURI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for name, tc := range map[string]struct {
		value string
		path  string
		out   string
		err   string
	}{
		"File": {
			value: "file:" + dir + "/test.sqlite",
			path:  dir + "/test.sqlite",
			out:   "file:" + dir + "/test.sqlite?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29",
		},
		"FileWithParameters": {
			value: "file:" + dir + "/test.sqlite?_pragma=busy_timeout(5000)",
			path:  dir + "/test.sqlite",
			out:   "file:" + dir + "/test.sqlite?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28wal%29",
		},
		"Memory": {
			value: "file:test?mode=memory",
			path:  "test",
			out:   "file:test?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29&mode=memory",
		},
		"SharedCache": {
			value: "file:test?mode=memory&cache=shared",
			err:   "shared cache is not supported",
		},
		"WrongScheme": {
			value: "http:" + dir + "/test.sqlite",
			err:   `expected "file:" schema, got "http"`,
		},
		"Host": {
			value: "file://localhost/test.sqlite",
			err:   `expected empty host, got "localhost"`,
		},
		"NoPath": {
			value: "file:",
			err:   "expected database file path",
		},
		"MissingDirectory": {
			value: "file:" + dir + "/missing/test.sqlite",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			uri, err := validateURI(tc.value)

			if tc.path == "" {
				require.Error(t, err)

				if tc.err != "" {
					assert.Equal(t, tc.err, err.Error())
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.path, uri.Path)
			assert.Equal(t, tc.out, uri.String())
		})
	}
}

func TestNewBackendInMemory(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(&NewBackendParams{
		URI: "file:" + testutil.CollectionName(t) + "?mode=memory",
		L:   zap.NewNop(),
	})
	require.NoError(t, err)
	b.Close()
}

func TestIsNoSuchTable(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	db, err := sql.Open("sqlite", "file:"+t.TempDir()+"/test.sqlite")
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, db.Close()) })

	_, err = db.ExecContext(ctx, `SELECT doc FROM "`+tableName+`"`)
	assert.True(t, isNoSuchTable(err), "%v", err)

	_, err = db.ExecContext(ctx, `SELECT doc FROM "other"`)
	assert.False(t, isNoSuchTable(err), "%v", err)

	_, err = db.ExecContext(ctx, `SELEKT 1`)
	assert.False(t, isNoSuchTable(err), "%v", err)

	_, err = db.ExecContext(ctx, createTableQuery)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `SELECT missing FROM "`+tableName+`"`)
	assert.False(t, isNoSuchTable(err), "%v", err)
}
