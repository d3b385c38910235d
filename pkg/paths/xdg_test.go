package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("VDD_HOME", home)

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "run"), RuntimeDir())
	assert.Equal(t, filepath.Join(home, "config", "data.json"), PersistPath())
	assert.Equal(t, filepath.Join(home, "state", "virtualdisplaydriver.pid"), PidFilePath("virtualdisplaydriver"))
}

func TestXDGFallback(t *testing.T) {
	t.Setenv("VDD_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, filepath.Join("/xdg/config", "virtualdisplaydriver"), ConfigDir())
	assert.Equal(t, filepath.Join("/xdg/state", "virtualdisplaydriver"), StateDir())
	assert.Equal(t, filepath.Join("/run/user/1000", "virtualdisplaydriver"), RuntimeDir())
}

func TestSocketPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("VDD_HOME", home)

	assert.Equal(t, filepath.Join(home, "run", "vdd.sock"), SocketPath("vdd"))
	assert.Equal(t, filepath.Join(home, "run", "a_b.sock"), SocketPath("a/b"))

	abs := filepath.Join(home, "custom.sock")
	assert.Equal(t, abs, SocketPath(abs))
}
