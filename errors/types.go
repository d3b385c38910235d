package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Pipe and transport errors
	ErrCodeConnectFailed  ErrorCode = "CONNECT_FAILED"
	ErrCodeSendFailed     ErrorCode = "SEND_FAILED"
	ErrCodeReceiveFailed  ErrorCode = "RECEIVE_FAILED"
	ErrCodeRequestTimeout ErrorCode = "REQUEST_TIMEOUT"
	ErrCodeInvalidFrame   ErrorCode = "INVALID_FRAME"
	ErrCodeEventsLagged   ErrorCode = "EVENTS_LAGGED"
	ErrCodeInitFailed     ErrorCode = "INIT_FAILED"

	// Topology errors
	ErrCodeDuplicateMonitor     ErrorCode = "DUPLICATE_MONITOR"
	ErrCodeDuplicateMode        ErrorCode = "DUPLICATE_MODE"
	ErrCodeDuplicateRefreshRate ErrorCode = "DUPLICATE_REFRESH_RATE"
	ErrCodeMonitorNotFound      ErrorCode = "MONITOR_NOT_FOUND"
	ErrCodeQueryNotFound        ErrorCode = "QUERY_NOT_FOUND"
	ErrCodeModeExists           ErrorCode = "MODE_EXISTS"

	// Persistence errors
	ErrCodePersistOpen      ErrorCode = "PERSIST_OPEN"
	ErrCodePersistWrite     ErrorCode = "PERSIST_WRITE"
	ErrCodePersistSerialize ErrorCode = "PERSIST_SERIALIZE"
	ErrCodePersistCorrupt   ErrorCode = "PERSIST_CORRUPT"

	// General errors
	ErrCodeCallbackPanicked ErrorCode = "CALLBACK_PANICKED"
	ErrCodeAlreadyRunning   ErrorCode = "ALREADY_RUNNING"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
)

// Error represents a structured error with context
type Error struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *Error) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether any error in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Detail returns the detail stored under key by the first error in the chain
// that has it.
func Detail(err error, key string) (interface{}, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if v, ok := e.Details[key]; ok {
				return v, true
			}
		}
		err = stderrors.Unwrap(err)
	}
	return nil, false
}
