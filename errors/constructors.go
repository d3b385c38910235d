package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConnectFailed reports that the driver pipe could not be opened.
func ConnectFailed(pipe string, err error) *Error {
	return Wrap(err, ErrCodeConnectFailed, fmt.Sprintf("failed to connect to driver pipe %s", pipe)).
		WithDetail("pipe", pipe)
}

// SendFailed reports a broken pipe while writing a command.
func SendFailed(err error) *Error {
	return Wrap(err, ErrCodeSendFailed, "failed to send command: pipe broken")
}

// ReceiveFailed reports that the connection ended before a reply arrived.
func ReceiveFailed(err error) *Error {
	return Wrap(err, ErrCodeReceiveFailed, "failed to receive from driver: connection closed")
}

// RequestTimeout reports a state request that got no reply in time.
func RequestTimeout(timeout time.Duration) *Error {
	return New(ErrCodeRequestTimeout, fmt.Sprintf("request timed out after %s", timeout)).
		WithDetail("timeout", timeout)
}

// InvalidFrame reports a payload that matched no known command shape.
func InvalidFrame(err error) *Error {
	return Wrap(err, ErrCodeInvalidFrame, "frame does not match any command")
}

// EventsLagged reports events dropped for a slow consumer.
func EventsLagged(skipped uint64) *Error {
	return New(ErrCodeEventsLagged, fmt.Sprintf("receiver lagged behind, %d events skipped", skipped)).
		WithDetail("skipped", skipped)
}

// InitFailed wraps a connect or state request failure during client setup.
func InitFailed(err error) *Error {
	msg := "failed to initialize driver client"
	switch GetCode(err) {
	case ErrCodeConnectFailed:
		msg = "failed to connect to driver"
	case ErrCodeRequestTimeout, ErrCodeReceiveFailed, ErrCodeSendFailed:
		msg = "failed to request state"
	}
	return Wrap(err, ErrCodeInitFailed, msg)
}

// DuplicateMonitor reports two monitors sharing an id.
func DuplicateMonitor(id uint32) *Error {
	return New(ErrCodeDuplicateMonitor, fmt.Sprintf("duplicate monitor with ID %d", id)).
		WithDetail("id", id)
}

// DuplicateMode reports two modes with the same resolution on one monitor.
func DuplicateMode(width, height, id uint32) *Error {
	return New(ErrCodeDuplicateMode, fmt.Sprintf("duplicate mode %dx%d on monitor %d", width, height, id)).
		WithDetail("id", id).
		WithDetail("width", width).
		WithDetail("height", height)
}

// DuplicateRefreshRate reports a refresh rate listed twice in one mode.
func DuplicateRefreshRate(rate, width, height, id uint32) *Error {
	return New(ErrCodeDuplicateRefreshRate,
		fmt.Sprintf("duplicate refresh rate %d on mode %dx%d on monitor %d", rate, width, height, id)).
		WithDetail("id", id).
		WithDetail("width", width).
		WithDetail("height", height).
		WithDetail("refresh_rate", rate)
}

// MonitorNotFound reports an unknown monitor id.
func MonitorNotFound(id uint32) *Error {
	return New(ErrCodeMonitorNotFound, fmt.Sprintf("monitor not found: %d", id)).
		WithDetail("id", id)
}

// QueryNotFound reports a query that resolved to no monitor.
func QueryNotFound(query string) *Error {
	return New(ErrCodeQueryNotFound, fmt.Sprintf("query not found: %s", query)).
		WithDetail("query", query)
}

// ModeExists reports an attempt to add a resolution already present.
func ModeExists(id, width, height uint32) *Error {
	return New(ErrCodeModeExists, fmt.Sprintf("duplicate mode %dx%d on monitor %d", width, height, id)).
		WithDetail("id", id).
		WithDetail("width", width).
		WithDetail("height", height)
}

// PersistOpen reports that the persistence location could not be opened.
func PersistOpen(location string, err error) *Error {
	return Wrap(err, ErrCodePersistOpen, fmt.Sprintf("failed to open %s", location)).
		WithDetail("location", location)
}

// PersistWrite reports that the persisted record could not be written.
func PersistWrite(location string, err error) *Error {
	return Wrap(err, ErrCodePersistWrite, fmt.Sprintf("failed to write %s", location)).
		WithDetail("location", location)
}

// PersistSerialize reports a topology that could not be serialized.
func PersistSerialize(err error) *Error {
	return Wrap(err, ErrCodePersistSerialize, "failed to serialize monitors")
}

// PersistCorrupt reports a persisted record that is not a valid topology.
func PersistCorrupt(location string, err error) *Error {
	return Wrap(err, ErrCodePersistCorrupt, fmt.Sprintf("persisted data at %s is not a valid topology", location)).
		WithDetail("location", location)
}

// CallbackPanicked reports a panic raised inside an event callback.
func CallbackPanicked(value interface{}) *Error {
	return New(ErrCodeCallbackPanicked, fmt.Sprintf("event callback panicked: %v", value)).
		WithDetail("panic", fmt.Sprint(value))
}

// AlreadyRunning reports a second server instance for the same pipe.
func AlreadyRunning(pipe string, pid int) *Error {
	return New(ErrCodeAlreadyRunning, fmt.Sprintf("a server for pipe %s is already running (PID %d)", pipe, pid)).
		WithDetail("pipe", pipe).
		WithDetail("pid", pid)
}
