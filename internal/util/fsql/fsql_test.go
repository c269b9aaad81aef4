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

package fsql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/FerretDB/docmap/internal/util/testutil"
)

func setup(t *testing.T) *DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", "file:"+t.TempDir()+"/fsql.sqlite")
	require.NoError(t, err)

	db := WrapDB(sqlDB, "test", testutil.Logger(t))
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return db
}

func TestInTransaction(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	db := setup(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	err = db.InTransaction(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t VALUES (?)`, 1)
		return err
	})
	require.NoError(t, err)

	failed := errors.New("failed")
	err = db.InTransaction(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t VALUES (?)`, 2); err != nil {
			return err
		}

		return failed
	})
	assert.Same(t, failed, err)

	assert.Panics(t, func() {
		_ = db.InTransaction(ctx, func(tx *Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO t VALUES (?)`, 3)
			panic("boom")
		})
	})

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)

	_, err = db.QueryContext(context.Background(), `SELECT * FROM missing`)
	require.Error(t, err)

	assert.Equal(t, 1, promtestutil.CollectAndCount(db.metrics.queries.WithLabelValues("error").(prometheus.Collector)))
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	db := setup(t)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(db))

	n, err := promtestutil.GatherAndCount(reg, "docmap_sqldb_open", "docmap_sqldb_in_use", "docmap_sqldb_wait_count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFormatArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"coll", "<3 bytes>", "42"}, formatArgs([]any{"coll", []byte{1, 2, 3}, 42}))
}
