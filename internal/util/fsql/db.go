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

// Package fsql provides [database/sql] wrappers with query logging and metrics.
package fsql

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// DB wraps [*database/sql.DB].
//
// It exposes the subset of *sql.DB methods SQL backends use.
type DB struct {
	*metrics

	sqlDB *sql.DB
	ql    *queryLogger
}

// WrapDB creates a new DB.
//
// Name is used for the logger name and the metrics label.
func WrapDB(db *sql.DB, name string, l *zap.Logger) *DB {
	if db == nil {
		return nil
	}

	m := newMetrics(name, db.Stats)

	return &DB{
		metrics: m,
		sqlDB:   db,
		ql:      &queryLogger{l: l.Named(name), m: m},
	}
}

// Close calls [*sql.DB.Close].
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// QueryContext calls [*sql.DB.QueryContext].
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q := db.ql.start(query, args)
	rows, err := db.sqlDB.QueryContext(ctx, query, args...)
	q.done(nil, err)

	return rows, err
}

// QueryRowContext calls [*sql.DB.QueryRowContext].
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	q := db.ql.start(query, args)
	row := db.sqlDB.QueryRowContext(ctx, query, args...)
	q.done(nil, row.Err())

	return row
}

// ExecContext calls [*sql.DB.ExecContext].
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := db.ql.start(query, args)
	res, err := db.sqlDB.ExecContext(ctx, query, args...)
	q.done(res, err)

	return res, err
}

// InTransaction runs f in a transaction.
//
// The transaction is committed if f returns nil, and rolled back otherwise
// (including panics and context cancellation).
// The error returned by f is returned as is.
func (db *DB) InTransaction(ctx context.Context, f func(*Tx) error) (err error) {
	sqlTx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return lazyerrors.Error(err)
	}

	committed := false

	defer func() {
		if committed {
			return
		}

		if rerr := sqlTx.Rollback(); rerr != nil {
			db.ql.l.Debug("Rollback failed", zap.Error(rerr))
		}

		if err == nil {
			err = lazyerrors.New("transaction was not committed")
		}
	}()

	if err = f(&Tx{sqlTx: sqlTx, ql: db.ql}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return lazyerrors.Error(err)
	}

	committed = true

	return nil
}

// check interfaces
var (
	_ prometheus.Collector = (*DB)(nil)
)
