package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// stderrSink is the destination every component logger writes its stderr
// output to. Loggers hold the sink itself, so redirecting it also affects
// loggers created earlier.
type stderrSink struct {
	dst atomic.Pointer[io.Writer]
}

func (s *stderrSink) Write(p []byte) (int, error) {
	return (*s.dst.Load()).Write(p)
}

func (s *stderrSink) swap(w io.Writer) io.Writer {
	return *s.dst.Swap(&w)
}

var sink = newStderrSink(os.Stderr)

func newStderrSink(w io.Writer) *stderrSink {
	s := &stderrSink{}
	s.dst.Store(&w)
	return s
}

// SetGlobalOutput redirects the stderr output of every component logger and
// returns the previous destination.
func SetGlobalOutput(w io.Writer) io.Writer {
	return sink.swap(w)
}

// GetGlobalOutput returns the shared stderr sink.
func GetGlobalOutput() io.Writer {
	return sink
}
