// Package syncipc is a blocking front end to pkg/ipc for callers that do not
// manage goroutines or contexts themselves. Each client owns one worker
// goroutine, locked to its OS thread, that performs every operation in
// order; public methods post a closure to it and wait for the result.
package syncipc

import (
	stderrors "errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = stderrors.New("syncipc: client closed")

type executor struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newExecutor() *executor {
	e := &executor{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *executor) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.done)

	for task := range e.tasks {
		task()
	}
}

// run executes fn on the worker and waits for it to return.
func (e *executor) run(fn func()) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}
	finished := make(chan struct{})
	e.tasks <- func() {
		defer close(finished)
		fn()
	}
	e.mu.RUnlock()

	<-finished
	return nil
}

// stop runs last on the worker, then stops it. Later calls to run fail.
func (e *executor) stop(last func()) error {
	if err := e.run(last); err != nil {
		return err
	}

	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()
	<-e.done
	return nil
}

// call runs fn on the worker and returns its results.
func call[T any](e *executor, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if runErr := e.run(func() { out, err = fn() }); runErr != nil {
		return out, runErr
	}
	return out, err
}

// do runs fn on the worker and returns its error.
func do(e *executor, fn func() error) error {
	var err error
	if runErr := e.run(func() { err = fn() }); runErr != nil {
		return runErr
	}
	return err
}

// get runs fn on the worker. After Close it returns the zero value.
func get[T any](e *executor, fn func() T) T {
	var out T
	_ = e.run(func() { out = fn() })
	return out
}
