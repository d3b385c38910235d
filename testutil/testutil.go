package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/pkg/models"
)

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// IsolateHome points VDD_HOME at a fresh short temp directory so sockets,
// PID files and persisted data stay inside the test. Unix socket paths are
// limited to ~100 bytes, so t.TempDir() (which embeds the test name) is
// avoided.
func IsolateHome(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "vdd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	t.Setenv("VDD_HOME", dir)
	t.Setenv("VDD_CONFIG", "")
	return dir
}

// UniquePipeName returns a pipe name no other test uses.
func UniquePipeName() string {
	return "vdd-test-" + RandomString(10)
}

// Context returns a context cancelled when the test ends or after timeout.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Monitor builds a monitor with one mode per entry in modes.
func Monitor(id models.ID, name string, enabled bool, modes ...models.Mode) models.Monitor {
	m := models.Monitor{ID: id, Enabled: enabled, Modes: modes}
	if name != "" {
		m.Name = models.StrPtr(name)
	}
	return m
}

// Mode builds a mode.
func Mode(width, height models.Dimen, rates ...models.RefreshRate) models.Mode {
	return models.Mode{Width: width, Height: height, RefreshRates: rates}
}

// SampleTopology returns a small valid topology.
func SampleTopology() models.Topology {
	return models.Topology{
		Monitor(0, "primary", true, Mode(1920, 1080, 60, 120), Mode(1280, 720, 60)),
		Monitor(1, "", false, Mode(2560, 1440, 144)),
	}
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, timeout, 5*time.Millisecond, msg)
}
