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
	"bytes"
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/FerretDB/docmap/internal/backends"
)

// rowsSource adapts pgx.Rows with a single bytea column to backends.Source.
type rowsSource struct {
	rows pgx.Rows
}

// Next implements backends.Source.
func (s *rowsSource) Next(context.Context) bool {
	return s.rows.Next()
}

// Raw implements backends.Source.
func (s *rowsSource) Raw() ([]byte, error) {
	// raw values are reused by the next Next call
	return bytes.Clone(s.rows.RawValues()[0]), nil
}

// Err implements backends.Source.
func (s *rowsSource) Err() error {
	return s.rows.Err()
}

// Close implements backends.Source.
func (s *rowsSource) Close(context.Context) {
	s.rows.Close()
}

// check interfaces
var (
	_ backends.Source = (*rowsSource)(nil)
)
