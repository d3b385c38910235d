package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/vdd/errors"
)

// ErrorHandler turns coded errors into user-facing messages.
type ErrorHandler struct {
	Verbose bool
	out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		out:     os.Stderr,
	}
}

// WithOutput redirects the handler's messages.
func (h *ErrorHandler) WithOutput(w io.Writer) *ErrorHandler {
	h.out = w
	return h
}

// Handle prints a message and a hint for err and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	switch effectiveCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.out, "Error: configuration not found\n")
		if path, ok := errors.Detail(err, "path"); ok {
			fmt.Fprintf(h.out, "No file at %v. Remove --config to use the defaults.\n", path)
		}

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.out, "Error: %v\n", err)
		fmt.Fprintf(h.out, "Run 'vdd schema config' to see the accepted settings.\n")

	case errors.ErrCodeConnectFailed:
		pipe, _ := errors.Detail(err, "pipe")
		fmt.Fprintf(h.out, "Error: cannot reach the driver on pipe %v\n", pipe)
		fmt.Fprintf(h.out, "Is the driver running? Start one with 'vdd serve'.\n")

	case errors.ErrCodeRequestTimeout:
		timeout, _ := errors.Detail(err, "timeout")
		fmt.Fprintf(h.out, "Error: the driver did not answer within %v\n", timeout)
		fmt.Fprintf(h.out, "Raise request_timeout in vdd.yml if the driver is busy.\n")

	case errors.ErrCodeAlreadyRunning:
		pid, _ := errors.Detail(err, "pid")
		fmt.Fprintf(h.out, "Error: a driver is already serving this pipe (PID %v)\n", pid)
		fmt.Fprintf(h.out, "Stop it first or pick another pipe with --pipe.\n")

	case errors.ErrCodeDuplicateMonitor, errors.ErrCodeDuplicateMode,
		errors.ErrCodeDuplicateRefreshRate, errors.ErrCodeModeExists:
		fmt.Fprintf(h.out, "Error: the topology is invalid: %v\n", err)

	case errors.ErrCodePersistCorrupt:
		location, _ := errors.Detail(err, "location")
		fmt.Fprintf(h.out, "Error: persisted monitors at %v cannot be read\n", location)
		fmt.Fprintf(h.out, "Overwrite them with 'vdd persist' or delete the file.\n")

	case errors.ErrCodePersistOpen, errors.ErrCodePersistWrite:
		fmt.Fprintf(h.out, "Error: %v\n", err)
		fmt.Fprintf(h.out, "Check the persist backend and path in vdd.yml.\n")

	default:
		fmt.Fprintf(h.out, "Error: %v\n", err)
	}

	if h.Verbose {
		if e, ok := err.(*errors.Error); ok {
			fmt.Fprintf(h.out, "\nError details:\n%s\n", e.ToJSON())
		}
	}
	return err
}

// effectiveCode looks through INIT_FAILED to the failure that caused it.
func effectiveCode(err error) errors.ErrorCode {
	code := errors.GetCode(err)
	if code != errors.ErrCodeInitFailed {
		return code
	}
	for _, inner := range []errors.ErrorCode{
		errors.ErrCodeConnectFailed,
		errors.ErrCodeRequestTimeout,
		errors.ErrCodeReceiveFailed,
		errors.ErrCodeSendFailed,
	} {
		if errors.Is(err, inner) {
			return inner
		}
	}
	return code
}
