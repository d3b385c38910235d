package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestError(t *testing.T) {
	err := New(ErrCodeMonitorNotFound, "monitor not found")
	if err.Code != ErrCodeMonitorNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeMonitorNotFound, err.Code)
	}

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeSendFailed, "send failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodeSendFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeMonitorNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	detailed := err.WithDetail("id", uint32(3))
	if detailed.Details["id"] != uint32(3) {
		t.Error("WithDetail should add details")
	}
}

func TestIsWalksChain(t *testing.T) {
	inner := RequestTimeout(5 * time.Second)
	outer := InitFailed(fmt.Errorf("setup: %w", inner))

	if !Is(outer, ErrCodeInitFailed) {
		t.Error("expected INIT_FAILED on outer error")
	}
	if !Is(outer, ErrCodeRequestTimeout) {
		t.Error("expected REQUEST_TIMEOUT further down the chain")
	}
	if GetCode(outer) != ErrCodeInitFailed {
		t.Errorf("expected outermost code, got %s", GetCode(outer))
	}

	v, ok := Detail(outer, "timeout")
	if !ok || v != 5*time.Second {
		t.Errorf("expected timeout detail, got %v (%v)", v, ok)
	}
}

func TestInitFailedMessage(t *testing.T) {
	err := InitFailed(ConnectFailed("vdd", fmt.Errorf("no such file")))
	if err.Message != "failed to connect to driver" {
		t.Errorf("unexpected message %q", err.Message)
	}

	err = InitFailed(RequestTimeout(time.Second))
	if err.Message != "failed to request state" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestErrorConstructors(t *testing.T) {
	err := DuplicateRefreshRate(60, 1920, 1080, 2)
	if err.Code != ErrCodeDuplicateRefreshRate {
		t.Errorf("expected code %s, got %s", ErrCodeDuplicateRefreshRate, err.Code)
	}
	for key, want := range map[string]uint32{"id": 2, "width": 1920, "height": 1080, "refresh_rate": 60} {
		if err.Details[key] != want {
			t.Errorf("detail %s: expected %d, got %v", key, want, err.Details[key])
		}
	}

	err = DuplicateMode(800, 600, 1)
	if err.Error() != "DUPLICATE_MODE: duplicate mode 800x600 on monitor 1" {
		t.Errorf("unexpected error string %q", err.Error())
	}

	err = QueryNotFound("left")
	if err.Details["query"] != "left" {
		t.Error("QueryNotFound should include query detail")
	}
}
