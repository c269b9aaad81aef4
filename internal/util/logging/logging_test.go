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

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		level    zapcore.Level
		format   string
		lines    int
		expected string
	}{
		"Console": {
			level:    zapcore.DebugLevel,
			format:   "console",
			lines:    2,
			expected: "DEBUG\ttest\tmessage\t{\"k\": 1}\n",
		},
		"JSON": {
			level:    zapcore.InfoLevel,
			format:   "json",
			lines:    1,
			expected: `"N":"test","M":"message","k":1}` + "\n",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l, err := New(tc.level, tc.format, zapcore.AddSync(&buf))
			require.NoError(t, err)

			l = l.Named("test").WithOptions(zap.WithCaller(false))
			l.Debug("message", zap.Int("k", 1))
			l.Info("message", zap.Int("k", 1))

			assert.Equal(t, tc.lines, bytes.Count(buf.Bytes(), []byte("\n")))
			assert.Contains(t, buf.String(), tc.expected)
		})
	}

	_, err := New(zapcore.InfoLevel, "xml", zapcore.AddSync(new(bytes.Buffer)))
	assert.EqualError(t, err, `logging.New: unknown format "xml"`)
}
