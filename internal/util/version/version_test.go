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

package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Parallel()

	info := Get()
	assert.Same(t, info, Get())
	assert.Regexp(t, `^v\d+\.\d+\.\d+`, info.Version)
	assert.NotNil(t, info.BuildEnvironment)
	assert.NotEmpty(t, info.Package)
}

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	info := fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Path: "github.com/FerretDB/docmap"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "-race", Value: "true"},
		},
	}, true)

	assert.Equal(t, "github.com/FerretDB/docmap", info.Package)
	assert.Equal(t, "0123abcd", info.Commit)
	assert.True(t, info.Dirty)
	assert.True(t, info.DebugBuild)
	assert.Equal(t, "true", info.BuildEnvironment["-race"])

	info = fromBuildInfo(nil, false)
	assert.Equal(t, "unknown", info.Package)
	assert.Empty(t, info.Commit)
}
