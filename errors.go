package dynstruct

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField     = errors.New("dynstruct: no such field")
	ErrBadSchema        = errors.New("dynstruct: bad schema")
	ErrMalformedBuffer  = errors.New("dynstruct: malformed buffer")
	ErrEncoding         = errors.New("dynstruct: encoding error")
	ErrValidationFailed = errors.New("dynstruct: validation failed")
	ErrHook             = errors.New("dynstruct: hook failed")
)

// Error reports a failed operation on a message. It matches its Kind and,
// when present, the underlying cause with errors.Is.
type Error struct {
	Schema string
	Field  string
	Op     string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	where := e.Schema
	if e.Field != "" {
		where += "." + e.Field
	}
	msg := fmt.Sprintf("%v: %s: %s", e.Kind, e.Op, where)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
