package obslog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn, "text")

	logger.Info("should be suppressed")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "should appear")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug, "json")

	logger.Info("compiled query", F("rows", 3))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"msg":"compiled query"`)
	assert.Contains(t, out, `"rows"`)
}

func TestWithAddsFieldsWithoutMutatingParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, LevelDebug, "text")
	child := parent.With(F("query_id", "abc"))

	child.Info("hello")
	parent.Info("world")

	out := buf.String()
	assert.Contains(t, out, "query_id=abc")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.NotContains(t, lines[1], "query_id")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
}

func TestStageLogsEntryAndExit(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug, "text")

	stageLogger, done := logger.Stage("parse")
	stageLogger.Debug("mid-stage detail")
	done()

	out := buf.String()
	assert.Contains(t, out, "stage started")
	assert.Contains(t, out, "stage finished")
	assert.Contains(t, out, "stage=parse")
}
