package agent

import (
	"errors"
	"fmt"
)

// ErrNilBundle is reported when a strategy returns neither a bundle nor an error.
var ErrNilBundle = errors.New("strategy returned nil bundle")

// TurnErrorKind classifies a failed strategy invocation.
type TurnErrorKind string

// TurnErrorKind constants.
const (
	KindError     TurnErrorKind = "error"
	KindPanic     TurnErrorKind = "panic"
	KindNilBundle TurnErrorKind = "nil_bundle"
)

// TurnError describes a strategy invocation that produced no usable bundle.
type TurnError struct {
	Agent string
	Round int
	Kind  TurnErrorKind
	Err   error
	Stack string // set for panics
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("agent %s round %d: %s: %v", e.Agent, e.Round, e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
