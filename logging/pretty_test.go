package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPretty(&buf)

	p.Success("Sent 2 monitor(s)")
	p.Warn("Stopped")
	p.Field("PID", 42)
	p.Path("Pipe", "/run/vdd/virtualdisplaydriver.sock")

	assert.Equal(t, "✓ Sent 2 monitor(s)\n⚠ Stopped\nPID: 42\nPipe: /run/vdd/virtualdisplaydriver.sock\n", buf.String())
}
