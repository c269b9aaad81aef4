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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/util/fsql"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// backend implements backends.Backend interface.
type backend struct {
	db     *fsql.DB
	l      *zap.Logger
	memory bool
}

// NewBackendParams represents the parameters of NewBackend function.
//
//nolint:vet // for readability
type NewBackendParams struct {
	URI string
	L   *zap.Logger

	_ struct{} // prevent unkeyed literals
}

// NewBackend creates a new SQLite backend.
func NewBackend(params *NewBackendParams) (backends.Backend, error) {
	uri, err := validateURI(params.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQLite URI %q: %s", params.URI, err)
	}

	sqlDB, err := sql.Open("sqlite", uri.String())
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)

	// each connection to in-memory database opens a new database
	if inMemory(uri) {
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetMaxOpenConns(1)
	}

	if err = sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, lazyerrors.Error(err)
	}

	var version string
	if err = sqlDB.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		_ = sqlDB.Close()
		return nil, lazyerrors.Error(err)
	}

	params.L.Debug("Opened SQLite database", zap.Stringer("uri", uri), zap.String("version", version))

	return backends.BackendContract(&backend{
		db:     fsql.WrapDB(sqlDB, "sqlite", params.L),
		l:      params.L,
		memory: inMemory(uri),
	}), nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() {
	if err := b.db.Close(); err != nil {
		b.l.Error("Failed to close SQLite database", zap.Error(err))
	}
}

// Aggregate implements backends.Backend interface.
func (b *backend) Aggregate(ctx context.Context, params *backends.AggregateParams) (*backends.AggregateResult, error) {
	p, err := backends.CompilePipeline(params.Pipeline)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT doc FROM %q WHERE collection = ? ORDER BY seq`, tableName)

	rows, err := b.db.QueryContext(ctx, q, params.Collection)
	if err != nil {
		if !isNoSuchTable(err) {
			return nil, lazyerrors.Error(err)
		}

		// no documents were inserted yet
		rows = nil
	}

	var src backends.Source

	switch {
	case rows == nil:
	case b.memory:
		if src, err = bufferRows(rows); err != nil {
			return nil, lazyerrors.Error(err)
		}
	default:
		src = &rowsSource{rows: rows}
	}

	iter, err := p.Process(ctx, backends.NewSourceIterator(ctx, src))
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &backends.AggregateResult{Iter: iter}, nil
}

// InsertAll implements backends.Backend interface.
func (b *backend) InsertAll(ctx context.Context, params *backends.InsertAllParams) (*backends.InsertAllResult, error) {
	res := &backends.InsertAllResult{
		IDs: make([]any, 0, len(params.Docs)),
	}

	q := fmt.Sprintf(`INSERT INTO %q (collection, id, doc) VALUES (?, ?, ?)`, tableName)

	err := b.db.InTransaction(ctx, func(tx *fsql.Tx) error {
		if _, err := tx.ExecContext(ctx, createTableQuery); err != nil {
			return lazyerrors.Error(err)
		}

		for _, doc := range params.Docs {
			sd, err := backends.PrepareDocument(doc)
			if err != nil {
				return lazyerrors.Error(err)
			}

			if _, err = tx.ExecContext(ctx, q, params.Collection, sd.Key, sd.Raw); err != nil {
				var se *sqlite.Error
				if errors.As(err, &se) && se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE {
					return backends.NewError(backends.ErrorCodeInsertDuplicateID, err)
				}

				return lazyerrors.Error(err)
			}

			res.IDs = append(res.IDs, sd.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// ListCollections implements backends.Backend interface.
func (b *backend) ListCollections(ctx context.Context, params *backends.ListCollectionsParams) (*backends.ListCollectionsResult, error) {
	q := fmt.Sprintf(`SELECT DISTINCT collection FROM %q ORDER BY collection`, tableName)

	rows, err := b.db.QueryContext(ctx, q)
	if err != nil {
		if isNoSuchTable(err) {
			return new(backends.ListCollectionsResult), nil
		}

		return nil, lazyerrors.Error(err)
	}

	defer rows.Close()

	var res backends.ListCollectionsResult

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, lazyerrors.Error(err)
		}

		res.Collections = append(res.Collections, backends.CollectionInfo{Name: name})
	}

	if err = rows.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &res, nil
}

// DropCollection implements backends.Backend interface.
func (b *backend) DropCollection(ctx context.Context, params *backends.DropCollectionParams) error {
	q := fmt.Sprintf(`DELETE FROM %q WHERE collection = ?`, tableName)

	res, err := b.db.ExecContext(ctx, q, params.Name)
	if err != nil {
		if isNoSuchTable(err) {
			return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, err)
		}

		return lazyerrors.Error(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return lazyerrors.Error(err)
	}

	if n == 0 {
		return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, nil)
	}

	return nil
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	b.db.Describe(ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	b.db.Collect(ch)
}

// isNoSuchTable returns true if err is SQLite error about the missing documents table.
func isNoSuchTable(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlitelib.SQLITE_ERROR {
		return false
	}

	return strings.Contains(se.Error(), "no such table: "+tableName)
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
