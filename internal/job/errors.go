package job

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced internally; session-scoped failures are reported
// to the client as tagged wire replies instead (see session.go).
var (
	ErrBind              = errors.New("failed to bind endpoint")
	ErrDial              = errors.New("failed to dial peer")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrWorkerLost        = errors.New("worker heartbeat lost")
	ErrClientLost        = errors.New("client heartbeat lost")
	ErrMasterUnreachable = errors.New("master did not acknowledge reset")
)

// Error is a structured job-process error with a machine-readable code,
// mirroring core/mdp.Error.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("job %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("job %s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/As against Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compares by Code so sentinel-style matching works against *Error values;
// ErrBind and ErrDial match the BIND and DIAL codes respectively.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBind:
		return e.Code == "BIND"
	case ErrDial:
		return e.Code == "DIAL"
	}
	var jobErr *Error
	if errors.As(target, &jobErr) {
		return e.Code == jobErr.Code
	}
	return errors.Is(e.Cause, target)
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
