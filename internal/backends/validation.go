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

package backends

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ReservedPrefix is the reserved prefix for collection names and backend tables.
const ReservedPrefix = "_docmap_"

// maxCollectionNameLen is the maximal collection name length in bytes.
const maxCollectionNameLen = 235

// validateCollectionName checks that collection name is valid for all backends.
//
// Names follow MongoDB rules; in addition, they must be valid UTF-8
// and must not start with '.', ReservedPrefix, or "system.".
func validateCollectionName(name string) error {
	var reason string

	switch {
	case name == "":
		reason = "is empty"
	case len(name) > maxCollectionNameLen:
		reason = fmt.Sprintf("is longer than %d bytes", maxCollectionNameLen)
	case !utf8.ValidString(name):
		reason = "is not valid UTF-8"
	case strings.ContainsAny(name, "$\x00"):
		reason = "contains '$' or NUL"
	case strings.HasPrefix(name, "."):
		reason = "starts with '.'"
	case strings.HasPrefix(name, ReservedPrefix), strings.HasPrefix(name, "system."):
		reason = "has a reserved prefix"
	default:
		return nil
	}

	return NewError(ErrorCodeCollectionNameIsInvalid, fmt.Errorf("collection name %q %s", name, reason))
}
