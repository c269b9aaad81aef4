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
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// queryLogger logs queries at debug level and records their durations.
type queryLogger struct {
	l *zap.Logger
	m *metrics
}

// query is a single logged query.
type query struct {
	ql    *queryLogger
	sql   string
	start time.Time
}

// start logs the query and its arguments.
func (ql *queryLogger) start(sql string, args []any) *query {
	if ce := ql.l.Check(zap.DebugLevel, ">>> "+sql); ce != nil {
		ce.Write(zap.Strings("args", formatArgs(args)))
	}

	return &query{
		ql:    ql,
		sql:   sql,
		start: time.Now(),
	}
}

// done logs the query result; res may be nil.
func (q *query) done(res sql.Result, err error) {
	d := time.Since(q.start)
	q.ql.m.observe(d, err)

	ce := q.ql.l.Check(zap.DebugLevel, "<<< "+q.sql)
	if ce == nil {
		return
	}

	fields := []zap.Field{zap.Duration("time", d), zap.Error(err)}

	if res != nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			fields = append(fields, zap.Int64("rows", n))
		}
	}

	ce.Write(fields...)
}

// formatArgs formats query arguments for logging; BSON blobs are shown by size.
func formatArgs(args []any) []string {
	res := make([]string, len(args))

	for i, a := range args {
		if b, ok := a.([]byte); ok {
			res[i] = fmt.Sprintf("<%d bytes>", len(b))
			continue
		}

		res[i] = fmt.Sprint(a)
	}

	return res
}
