// Package hverror defines the error taxonomy shared by every layer of
// go-nptcore: one error type wrapping a coarse Kind, with
// detailed-vs-sanitized rendering chosen by an environment toggle, plus
// errors.Is/errors.As support so callers can branch on the Kind alone.
package hverror

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Kind is the coarse error taxonomy. It is not itself an error
// implementation -- Error wraps it with the operation and any underlying
// cause.
type Kind int

const (
	// InvalidInput covers out-of-range, misaligned, or too-small-for-read
	// requests.
	InvalidInput Kind = iota
	// NoMemory is returned when the frame allocator has nothing left to
	// give.
	NoMemory
	// AlreadyExists covers an overlap with an existing region or PTE when
	// the caller did not ask to overwrite.
	AlreadyExists
	// BadState covers a MemorySet/page-table invariant violation, e.g.
	// protecting across a gap.
	BadState
	// PageFaultUnhandled is never itself returned from a Go error-returning
	// function; it names the outcome AddrSpace.HandlePageFault reports by
	// returning false.
	PageFaultUnhandled
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NoMemory:
		return "NoMemory"
	case AlreadyExists:
		return "AlreadyExists"
	case BadState:
		return "BadState"
	case PageFaultUnhandled:
		return "PageFaultUnhandled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned across package boundaries. Op
// names the failing operation ("npt.Map", "AddrSpace.Protect", ...); Msg is
// a short human description; Cause, if non-nil, is wrapped and reachable
// via errors.Unwrap/errors.As.
type Error struct {
	Kind  Kind
	Op    string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if isProductionEnv() {
		return e.sanitized()
	}
	return e.detailed()
}

func (e *Error) detailed() string {
	if e.Cause != nil {
		return fmt.Sprintf("nptcore: %s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("nptcore: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

// sanitized drops the operation name and any wrapped cause, leaving only
// the coarse kind, so internal call-site detail does not leak when
// NPTCORE_ENV=production.
func (e *Error) sanitized() string {
	return fmt.Sprintf("nptcore: %s", e.Kind)
}

// Verbose always renders the detailed form regardless of NPTCORE_ENV, for
// callers (the CLI's fault-trace printer) that want full detail on demand
// even when the library defaults to sanitized output.
func (e *Error) Verbose() string {
	return e.detailed()
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, hverror.InvalidInput) by wrapping the Kind in a bare
// sentinel via New, e.g. errors.Is(err, hverror.New("", InvalidInput, "")).
// In practice most callers use Of(err) instead.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an Error with no wrapped cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Wrap builds an Error around an underlying cause.
func Wrap(op string, kind Kind, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Cause: cause}
}

// Of extracts the Kind of err if it is (or wraps) an *Error, reporting ok
// false otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// isProductionEnv reports whether error rendering should be sanitized:
// NPTCORE_ENV=production (or prod) opts in, as does NPTCORE_DEBUG set to an
// explicit false value.
func isProductionEnv() bool {
	switch os.Getenv("NPTCORE_ENV") {
	case "production", "prod":
		return true
	}
	if debug := os.Getenv("NPTCORE_DEBUG"); debug != "" {
		if val, err := strconv.ParseBool(debug); err == nil && !val {
			return true
		}
	}
	return false
}
