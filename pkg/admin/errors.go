package admin

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

var (
	// ErrAlreadyStarted is returned by Start after the first call.
	ErrAlreadyStarted = errors.New("admin server already started")

	// ErrRouteAfterStart is returned when a route is added after Start.
	ErrRouteAfterStart = errors.New("admin routes cannot be added after start")
)

// BindReason classifies why the listener could not be created.
type BindReason string

const (
	BindAddrInUse        BindReason = "address_in_use"
	BindPermissionDenied BindReason = "permission_denied"
	BindOther            BindReason = "other"
)

// BindError reports that the admin listener could not be bound.
type BindError struct {
	Addr   string
	Reason BindReason
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("admin server cannot bind %s (%s): %v", e.Addr, e.Reason, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

func newBindError(addr string, err error) *BindError {
	reason := BindOther
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		reason = BindAddrInUse
	case errors.Is(err, syscall.EACCES), errors.Is(err, os.ErrPermission):
		reason = BindPermissionDenied
	}
	return &BindError{Addr: addr, Reason: reason, Err: err}
}
