// Package faults classifies pipeline failures into the two kinds the
// coordinator cares about: transient (retry on the next run) and permanent
// (needs operator correction, never retried automatically).
package faults

import "errors"

// Kind distinguishes how a failure should be handled.
type Kind int

const (
	// KindTransient covers timeouts, 5xx responses and write conflicts.
	KindTransient Kind = iota
	// KindPermanent covers malformed records and 4xx rejections.
	KindPermanent
)

// Error wraps a cause with a failure kind.
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Kind() Kind    { return e.kind }

// Transient wraps err as a retriable failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: KindTransient, err: err}
}

// Permanent wraps err as a non-retriable failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: KindPermanent, err: err}
}

// IsPermanent reports whether err was classified as permanent. Unclassified
// errors count as transient so an unknown failure is retried rather than
// parked.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.kind == KindPermanent
}
