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

// Package sqlite provides SQLite backend.
//
// All documents are stored as BSON blobs in a single table
// keyed by collection name and insertion sequence number.
// Pipelines are evaluated in-process.
package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/FerretDB/docmap/internal/backends"
)

// tableName is the name of the table holding all documents.
const tableName = backends.ReservedPrefix + "documents"

// createTableQuery creates a documents table if it does not exist.
var createTableQuery = fmt.Sprintf(
	`CREATE TABLE IF NOT EXISTS %q (`+
		`seq INTEGER PRIMARY KEY AUTOINCREMENT, `+
		`collection TEXT NOT NULL, `+
		`id BLOB NOT NULL, `+
		`doc BLOB NOT NULL, `+
		`UNIQUE (collection, id))`,
	tableName,
)

// defaultPragmas are added to the URI unless it sets them already.
//
// journal_mode is silently ignored for in-memory databases.
var defaultPragmas = []string{
	"busy_timeout(10000)",
	"journal_mode(wal)",
}

// validateURI checks given URI value and returns parsed URL.
// URI should contain 'file' scheme and point to a database file in an existing directory,
// or have mode=memory parameter.
// Authority should be empty or absent. Shared cache is not supported.
//
// Returned URL contains path in both Path and Opaque to make String() method work correctly,
// and default pragmas in the query.
func validateURI(value string) (*url.URL, error) {
	uri, err := url.Parse(value)
	if err != nil {
		return nil, err
	}

	if uri.Scheme != "file" {
		return nil, fmt.Errorf(`expected "file:" schema, got %q`, uri.Scheme)
	}

	if uri.User != nil {
		return nil, fmt.Errorf(`expected empty user info, got %q`, uri.User)
	}

	if uri.Host != "" {
		return nil, fmt.Errorf(`expected empty host, got %q`, uri.Host)
	}

	if uri.Path == "" && uri.Opaque != "" {
		uri.Path = uri.Opaque
	}
	uri.Opaque = uri.Path

	if uri.Path == "" {
		return nil, fmt.Errorf(`expected database file path`)
	}

	values := uri.Query()
	if values.Has("cache") {
		return nil, fmt.Errorf(`shared cache is not supported`)
	}

	setDefaultPragmas(values)
	uri.RawQuery = values.Encode()

	if inMemory(uri) {
		return uri, nil
	}

	dir := filepath.Dir(uri.Path)

	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf(`%q should be an existing directory, got %s`, dir, err)
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf(`%q should be an existing directory`, dir)
	}

	return uri, nil
}

// setDefaultPragmas adds defaultPragmas that are not set by the user.
func setDefaultPragmas(values url.Values) {
	for _, def := range defaultPragmas {
		name, _, _ := strings.Cut(def, "(")

		var found bool
		for _, p := range values["_pragma"] {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(p)), name+"(") {
				found = true
				break
			}
		}

		if !found {
			values.Add("_pragma", def)
		}
	}
}

// inMemory returns true if the URI points to an in-memory database.
func inMemory(uri *url.URL) bool {
	return uri.Query().Get("mode") == "memory"
}
