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
)

// Tx wraps [*database/sql.Tx].
//
// It exposes the subset of *sql.Tx methods SQL backends use.
type Tx struct {
	sqlTx *sql.Tx
	ql    *queryLogger
}

// ExecContext calls [*sql.Tx.ExecContext].
func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := tx.ql.start(query, args)
	res, err := tx.sqlTx.ExecContext(ctx, query, args...)
	q.done(res, err)

	return res, err
}

// QueryContext calls [*sql.Tx.QueryContext].
func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q := tx.ql.start(query, args)
	rows, err := tx.sqlTx.QueryContext(ctx, query, args...)
	q.done(nil, err)

	return rows, err
}
