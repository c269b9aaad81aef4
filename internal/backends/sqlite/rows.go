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

	"github.com/FerretDB/docmap/internal/backends"
)

// rowsSource adapts *sql.Rows with a single BLOB column to backends.Source.
type rowsSource struct {
	rows *sql.Rows
}

// Next implements backends.Source.
func (s *rowsSource) Next(context.Context) bool {
	return s.rows.Next()
}

// Raw implements backends.Source.
func (s *rowsSource) Raw() ([]byte, error) {
	var b []byte
	err := s.rows.Scan(&b)

	return b, err
}

// Err implements backends.Source.
func (s *rowsSource) Err() error {
	return s.rows.Err()
}

// Close implements backends.Source.
func (s *rowsSource) Close(context.Context) {
	_ = s.rows.Close()
}

// bufferedSource is a backends.Source over documents read in advance.
type bufferedSource struct {
	docs [][]byte
	cur  []byte
}

// bufferRows reads and closes rows.
//
// It is used for in-memory databases that have a single connection
// which must not be held by an open cursor.
func bufferRows(rows *sql.Rows) (*bufferedSource, error) {
	defer rows.Close()

	var docs [][]byte

	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}

		docs = append(docs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &bufferedSource{docs: docs}, nil
}

// Next implements backends.Source.
func (s *bufferedSource) Next(context.Context) bool {
	if len(s.docs) == 0 {
		s.cur = nil
		return false
	}

	s.cur, s.docs = s.docs[0], s.docs[1:]

	return true
}

// Raw implements backends.Source.
func (s *bufferedSource) Raw() ([]byte, error) {
	return s.cur, nil
}

// Err implements backends.Source.
func (s *bufferedSource) Err() error {
	return nil
}

// Close implements backends.Source.
func (s *bufferedSource) Close(context.Context) {
	s.docs, s.cur = nil, nil
}

// check interfaces
var (
	_ backends.Source = (*rowsSource)(nil)
	_ backends.Source = (*bufferedSource)(nil)
)
