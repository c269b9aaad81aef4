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

package debug

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

// addToZip adds a new file to the zip archive and closes r.
func addToZip(w *zip.Writer, name string, r io.ReadCloser) (err error) {
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()

	f, err := w.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return
	}

	_, err = io.Copy(f, r)

	return
}

// archiveFiles returns archive file names and debug handler paths.
// CPU profile and execution trace last the given number of seconds.
func archiveFiles(seconds int) map[string]string {
	s := strconv.Itoa(seconds)

	return map[string]string{
		"metrics.txt":     "/debug/metrics",
		"vars.json":       "/debug/vars",
		"goroutine.pprof": "/debug/pprof/goroutine",
		"heap.pprof":      "/debug/pprof/heap?gc=1",
		"profile.pprof":   "/debug/pprof/profile?seconds=" + s,
		"trace.out":       "/debug/pprof/trace?seconds=" + s,
	}
}

// archiveHandler returns a handler that fetches other debug handlers into a zip archive.
//
// The "seconds" query parameter sets the profile duration, 10 by default.
func archiveHandler(l *zap.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		seconds := 10
		if s := req.URL.Query().Get("seconds"); s != "" {
			var err error
			if seconds, err = strconv.Atoi(s); err != nil || seconds <= 0 {
				http.Error(rw, "invalid seconds", http.StatusBadRequest)
				return
			}
		}

		name := fmt.Sprintf("docmap-%s.zip", time.Now().Format("2006-01-02-15-04-05"))

		rw.Header().Set("Content-Type", "application/zip")
		rw.Header().Set("Content-Disposition", "attachment; filename="+name)

		ctx := req.Context()
		host := ctx.Value(http.LocalAddrContextKey).(net.Addr)

		zw := zip.NewWriter(rw)

		files := archiveFiles(seconds)
		names := maps.Keys(files)
		slices.Sort(names)

		var errs bytes.Buffer

		for _, file := range names {
			u := "http://" + host.String() + files[file]
			l.Debug("Fetching file for archive", zap.String("file", file), zap.String("url", u))

			fReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err == nil {
				var resp *http.Response
				if resp, err = http.DefaultClient.Do(fReq); err == nil {
					err = addToZip(zw, file, resp.Body)
				}
			}

			fmt.Fprintf(&errs, "%s: %v\n", file, err)
		}

		if err := addToZip(zw, "errors.txt", io.NopCloser(&errs)); err != nil {
			l.Error("Failed to add errors.txt to archive", zap.Error(err))
		}

		if err := zw.Close(); err != nil {
			l.Error("Failed to close archive", zap.Error(err))
		}

		l.Info("Debug archive created", zap.String("name", name))
	}
}
