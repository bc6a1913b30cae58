package nptcore

import "github.com/blacktop/go-nptcore/hverror"

// Kind and Error are re-exported from hverror so callers of the top-level
// AddrSpace API never need to import the leaf error package directly.
type (
	Kind  = hverror.Kind
	Error = hverror.Error
)

const (
	InvalidInput       = hverror.InvalidInput
	NoMemory           = hverror.NoMemory
	AlreadyExists      = hverror.AlreadyExists
	BadState           = hverror.BadState
	PageFaultUnhandled = hverror.PageFaultUnhandled
)

// ErrCloneCOWUnsupported is returned by AddrSpace.CloneCOW until
// copy-on-write cloning is designed. It carries BadState: the operation is
// a deliberate placeholder, not a recoverable input problem.
var ErrCloneCOWUnsupported = hverror.New("AddrSpace.CloneCOW", hverror.BadState, "copy-on-write clone is not implemented")

func newErr(op string, kind Kind, msg string) *Error        { return hverror.New(op, kind, msg) }
func wrapErr(op string, kind Kind, msg string, c error) *Error { return hverror.Wrap(op, kind, msg, c) }
