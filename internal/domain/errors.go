package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCancelled = errors.New("simtemp: scheduler already cancelled")
	ErrAlreadyStarted   = errors.New("simtemp: scheduler already started")
	ErrReadOnly         = errors.New("simtemp: attribute is read-only")
	ErrUnknownAttribute = errors.New("simtemp: unknown attribute")
	ErrZeroPeriod       = errors.New("simtemp: sampling period must be > 0")
)

// ParseError reports a malformed textual attribute write. The attribute keeps
// its previous value.
type ParseError struct {
	Attribute string
	Input     string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("simtemp: parse %s %q: %v", e.Attribute, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
