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

// Package version reports the docmap version and build settings.
package version

import (
	_ "embed"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/FerretDB/docmap/internal/util/debugbuild"
)

//go:embed version.txt
var versionTxt string

// Info describes the running binary.
type Info struct {
	Version          string
	Commit           string
	Dirty            bool
	Package          string
	DebugBuild       bool
	BuildEnvironment map[string]string
}

// Get returns build information.
//
// The result is shared; callers must not modify it.
var Get = sync.OnceValue(func() *Info {
	return fromBuildInfo(debug.ReadBuildInfo())
})

// fromBuildInfo fills Info from the embedded version and Go build settings.
func fromBuildInfo(bi *debug.BuildInfo, ok bool) *Info {
	res := &Info{
		Version:          strings.TrimSpace(versionTxt),
		Package:          "unknown",
		DebugBuild:       debugbuild.Enabled,
		BuildEnvironment: make(map[string]string),
	}

	if !ok {
		return res
	}

	if bi.Main.Path != "" {
		res.Package = bi.Main.Path
	}

	for _, s := range bi.Settings {
		res.BuildEnvironment[s.Key] = s.Value

		b, _ := strconv.ParseBool(s.Value)

		switch s.Key {
		case "vcs.revision":
			res.Commit = s.Value
		case "vcs.modified":
			res.Dirty = b
		case "-race":
			// race detector builds get the same extra checks
			res.DebugBuild = res.DebugBuild || b
		}
	}

	return res
}
