package logging_test

import (
	"bytes"
	"testing"

	"github.com/momentics/slimsock/logging"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	quiet := logging.New(&buf, false)
	quiet.Debug("hidden")
	quiet.Info("shown", "k", 1)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=1")

	buf.Reset()
	logging.New(&buf, true).Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestSourceTrimmed(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, false).Info("where")
	out := buf.String()
	assert.Contains(t, out, "src=")
	assert.Contains(t, out, "logging/logging_test.go")
	assert.NotContains(t, out, "source=")
}
