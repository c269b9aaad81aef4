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

package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// Parts of Prometheus metric names.
const (
	namespace = "docmap"
	subsystem = "postgresql_pool"
)

// backend implements backends.Backend interface.
type backend struct {
	p *pgxpool.Pool
	l *zap.Logger
}

// NewBackendParams represents the parameters of NewBackend function.
//
//nolint:vet // for readability
type NewBackendParams struct {
	URI string
	L   *zap.Logger

	_ struct{} // prevent unkeyed literals
}

// NewBackend creates a new PostgreSQL backend.
func NewBackend(params *NewBackendParams) (backends.Backend, error) {
	p, err := openPool(params.URI, params.L)
	if err != nil {
		return nil, err
	}

	return backends.BackendContract(&backend{
		p: p,
		l: params.L,
	}), nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() {
	b.p.Close()
}

// Aggregate implements backends.Backend interface.
func (b *backend) Aggregate(ctx context.Context, params *backends.AggregateParams) (*backends.AggregateResult, error) {
	p, err := backends.CompilePipeline(params.Pipeline)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT doc FROM %s WHERE collection = $1 ORDER BY seq`, tableName)

	rows, err := b.p.Query(ctx, q, params.Collection)
	if err == nil {
		// pgx reports some errors only after the first Next call
		err = rows.Err()
	}

	if err != nil {
		if rows != nil {
			rows.Close()
		}

		if !isUndefinedTable(err) {
			return nil, lazyerrors.Error(err)
		}

		// no documents were inserted yet
		rows = nil
	}

	var src backends.Source
	if rows != nil {
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

	q := fmt.Sprintf(`INSERT INTO %s (collection, id, doc) VALUES ($1, $2, $3)`, tableName)

	err := pgx.BeginFunc(ctx, b.p, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createTableQuery); err != nil {
			return lazyerrors.Error(err)
		}

		for _, doc := range params.Docs {
			sd, err := backends.PrepareDocument(doc)
			if err != nil {
				return lazyerrors.Error(err)
			}

			if _, err = tx.Exec(ctx, q, params.Collection, sd.Key, sd.Raw); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
					return backends.NewError(backends.ErrorCodeInsertDuplicateID, err)
				}

				return lazyerrors.Error(err)
			}

			res.IDs = append(res.IDs, sd.ID)
		}

		return nil
	})
	if err != nil {
		// do not wrap error because the caller depends on it
		return nil, err
	}

	return res, nil
}

// ListCollections implements backends.Backend interface.
func (b *backend) ListCollections(ctx context.Context, params *backends.ListCollectionsParams) (*backends.ListCollectionsResult, error) {
	q := fmt.Sprintf(`SELECT DISTINCT collection FROM %s ORDER BY collection`, tableName)

	var names []string

	rows, err := b.p.Query(ctx, q)
	if err == nil {
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
	}

	if err != nil {
		if isUndefinedTable(err) {
			return new(backends.ListCollectionsResult), nil
		}

		return nil, lazyerrors.Error(err)
	}

	res := &backends.ListCollectionsResult{
		Collections: make([]backends.CollectionInfo, len(names)),
	}

	for i, name := range names {
		res.Collections[i] = backends.CollectionInfo{Name: name}
	}

	return res, nil
}

// DropCollection implements backends.Backend interface.
func (b *backend) DropCollection(ctx context.Context, params *backends.DropCollectionParams) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1`, tableName)

	tag, err := b.p.Exec(ctx, q, params.Name)
	if err != nil {
		if isUndefinedTable(err) {
			return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, err)
		}

		return lazyerrors.Error(err)
	}

	if tag.RowsAffected() == 0 {
		return backends.NewError(backends.ErrorCodeCollectionDoesNotExist, nil)
	}

	return nil
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(b, ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	stats := b.p.Stat()

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "size"),
			"The current number of connections in the pool.",
			nil, nil,
		),
		prometheus.GaugeValue,
		float64(stats.TotalConns()),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "in_use"),
			"The current number of connections in use.",
			nil, nil,
		),
		prometheus.GaugeValue,
		float64(stats.AcquiredConns()),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "acquires_total"),
			"The total number of successful connection acquisitions.",
			nil, nil,
		),
		prometheus.CounterValue,
		float64(stats.AcquireCount()),
	)
}

// isUndefinedTable returns true if err is PostgreSQL error about the missing documents table.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
