// Package primeclue is the root of the evolutionary training engine and
// expression-tree evaluator; it holds the Error type shared by the forest,
// serialize and cmd/primeclue packages.
package primeclue

import "fmt"

// Error is the single error type returned by core invariant violations:
// empty views, shape mismatches, missing classifiers, malformed serialized
// artifacts. It carries a human-readable message and, optionally, the error
// that caused it.
type Error struct {
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Errorf builds an *Error from a format string, in the style of fmt.Errorf.
// A trailing %w verb, if present, is not specially handled; wrap an existing
// error with Wrap instead.
func Errorf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new Error carrying msg.
func Wrap(cause error, msg string) error {
	return &Error{msg: msg, cause: cause}
}
