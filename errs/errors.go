// Package errs holds the error values shared by the resolver, the pinner and
// the garbage collector.
package errs

import (
	"context"
	"errors"
	"fmt"

	cid "github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
)

var (
	// ErrInvalidArgument is returned for malformed CIDs, paths and options.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOverflow is returned when a size sum does not fit in an int.
	ErrOverflow = errors.New("size overflow")

	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("malformed block")

	// ErrUnresolvable is matched by every *UnresolvableError.
	ErrUnresolvable = errors.New("unresolvable target")

	// ErrCyclicReference is matched by every *CycleError.
	ErrCyclicReference = errors.New("cyclic reference")
)

// InvalidArgument returns an error with the formatted message that matches
// ErrInvalidArgument under errors.Is.
func InvalidArgument(format string, args ...interface{}) error {
	return invalidArgument{msg: fmt.Sprintf(format, args...)}
}

type invalidArgument struct {
	msg string
}

func (e invalidArgument) Error() string { return e.msg }

func (e invalidArgument) Is(target error) bool { return target == ErrInvalidArgument }

// DecodeError is returned when the bytes of a block cannot be decoded by the
// codec named in its CID.
type DecodeError struct {
	Cid cid.Cid
	Err error
}

func (e *DecodeError) Error() string {
	if !e.Cid.Defined() {
		return fmt.Sprintf("failed to decode block: %s", e.Err)
	}
	return fmt.Sprintf("failed to decode block %s: %s", e.Cid, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// UnresolvableError indicates that a Cid could not be retrieved while a
// complete DAG was required, e.g. during a recursive pin or a strict walk.
type UnresolvableError struct {
	Cid cid.Cid
	Err error
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("could not retrieve %s: %s", e.Cid, e.Err)
}

func (e *UnresolvableError) Unwrap() error { return e.Err }

func (e *UnresolvableError) Is(target error) bool { return target == ErrUnresolvable }

// CycleError is returned when a DAG links back to one of its own ancestors.
type CycleError struct {
	Cid cid.Cid
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic reference to %s", e.Cid)
}

func (e *CycleError) Is(target error) bool { return target == ErrCyclicReference }

// Kind names the category of err in a stable form, for logs and callers
// that branch on the failure class rather than the message.
func Kind(err error) string {
	var notPinned interface{ NotPinned() bool }
	var notPinnedUnder interface{ NotPinnedUnderType() bool }
	var noLink interface{ NoSuchLink() bool }
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, ErrUnresolvable):
		return "UnresolvableTarget"
	case errors.Is(err, ErrDecode):
		return "DecodeError"
	case errors.Is(err, ErrCyclicReference):
		return "CyclicReference"
	case errors.Is(err, ErrOverflow):
		return "Overflow"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.As(err, &noLink):
		return "NoSuchLink"
	case errors.As(err, &notPinnedUnder):
		return "NotPinnedUnderType"
	case errors.As(err, &notPinned):
		return "NotPinned"
	case ipld.IsNotFound(err):
		return "NotFound"
	default:
		return "Internal"
	}
}
