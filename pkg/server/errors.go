package server

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrAlreadyStarted is returned by Start when the supervisor has left the
// Idle state.
var ErrAlreadyStarted = errors.New("supervisor already started")

// ErrNoListeners is returned when a supervisor is constructed without any
// listener specs.
var ErrNoListeners = errors.New("no listeners configured")

// DuplicateListenerError is returned when two listener specs share the
// same (interface, port) key.
type DuplicateListenerError struct {
	Key string
}

func (e *DuplicateListenerError) Error() string {
	return fmt.Sprintf("duplicate listener on %s", e.Key)
}

// BindError is a fatal failure to claim a listener's (interface, port).
// During Starting it aborts the whole startup; every other error class
// stays below the supervisor.
type BindError struct {
	Spec ListenerSpec
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Spec, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// AddrInUse reports whether the bind failed because the address is
// already claimed.
func (e *BindError) AddrInUse() bool {
	return errors.Is(e.Err, syscall.EADDRINUSE)
}

// PermissionDenied reports whether the bind failed for lack of privilege
// (e.g. a privileged port without privilege).
func (e *BindError) PermissionDenied() bool {
	return errors.Is(e.Err, syscall.EACCES)
}
