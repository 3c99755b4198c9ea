/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
		"error":   logrus.ErrorLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestNewLoggerRegistersAndWrites(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	t.Cleanup(func() { SetConsoleOutput(os.Stdout) })

	l := NewLogger("TESTLOG")
	assert.Same(t, l, GetLogger("TESTLOG"))

	require.True(t, SetLoggerLevel("TESTLOG", "warn"))
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, SetLoggerLevel("MISSING", "warn"))
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "API"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "request served",
		Data: logrus.Fields{
			"request_id":  "abc",
			"status_code": 201,
			"entity":      "users",
		},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "API", rec["model"])
	assert.Equal(t, "abc", rec["request_id"])
	assert.Equal(t, float64(201), rec["status_code"])
	assert.Equal(t, map[string]any{"entity": "users"}, rec["fields"])
}

func TestLog4jColorFormatterIncludesFields(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", NameWidth: 10}
	b, err := f.Format(&logrus.Entry{
		Level:   logrus.WarnLevel,
		Message: "slow query",
		Data:    logrus.Fields{"duration": "2s"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(b), "slow query duration=2s")
	assert.Contains(t, string(b), "DATABASE")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("SIEVE_TEST_INT", "12")
	t.Setenv("SIEVE_TEST_BOOL", "nope")
	t.Setenv("SIEVE_TEST_SECONDS", "3")
	assert.Equal(t, 12, EnvDefaultInt("SIEVE_TEST_INT", 1))
	assert.True(t, EnvDefaultBool("SIEVE_TEST_BOOL", true))
	assert.Equal(t, 3*time.Second, EnvDefaultSeconds("SIEVE_TEST_SECONDS", time.Second))
	assert.Equal(t, "x", EnvDefaultString("SIEVE_TEST_UNSET", "x"))
}
