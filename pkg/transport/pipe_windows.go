//go:build windows

package transport

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

// bufferSize matches the in and out buffer sizes the driver creates its
// pipe with.
const bufferSize = 4096

// Address returns the named pipe path for a pipe name.
func Address(name string) string {
	if strings.HasPrefix(name, pipePrefix) {
		return name
	}
	return pipePrefix + name
}

func dial(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, Address(name))
}

func listen(name string) (net.Listener, error) {
	ln, err := winio.ListenPipe(Address(name), &winio.PipeConfig{
		MessageMode:      true,
		InputBufferSize:  bufferSize,
		OutputBufferSize: bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe %s: %w", Address(name), err)
	}
	return ln, nil
}
