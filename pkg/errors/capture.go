package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
)

// Coder is implemented by errors that know their own classification code.
type Coder interface {
	FailureCode() string
}

// Capture turns an arbitrary error into a Failure. A Failure is returned
// as-is. An error wrapping one yields a copy whose first cause is the outer
// message, so the wrapping context is kept. Otherwise the code is derived
// from the error's origin. Capture returns nil for a nil error.
func Capture(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if stderrors.As(err, &f) {
		if error(f) == err {
			return f
		}
		c := *f
		c.Causes = append([]string{err.Error()}, f.Causes...)
		c.cause = err
		return &c
	}

	return newBuilder(Classify(err), 2).Wrap(err).Build()
}

// Classify maps an error to a registered code by origin.
func Classify(err error) string {
	var c Coder
	switch {
	case stderrors.As(err, &c):
		return c.FailureCode()
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return CodeDeadline
	case stderrors.Is(err, fs.ErrNotExist):
		return CodeFileNotFound
	case stderrors.Is(err, fs.ErrPermission):
		return CodePermission
	default:
		return CodeUnclassified
	}
}

// FromPanic converts a recovered panic value into a Failure carrying the
// stack of the panicking goroutine.
func FromPanic(v any) *Failure {
	var cause error
	switch p := v.(type) {
	case error:
		cause = p
	default:
		cause = fmt.Errorf("%v", p)
	}

	b := newBuilder(CodePanic, 3).Wrap(cause)
	b.f.Message = "panic: " + cause.Error()
	return b.Build()
}

// causeChain walks Unwrap() error and Unwrap() []error depth-first and
// returns the cause messages, outermost first, root last. Repeated
// messages are kept once.
func causeChain(err error) []string {
	var out []string
	seen := make(map[string]bool)

	var walk func(e error)
	walk = func(e error) {
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if inner == nil {
					continue
				}
				appendUnique(&out, seen, inner.Error())
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := u.Unwrap(); inner != nil {
				appendUnique(&out, seen, inner.Error())
				walk(inner)
			}
		}
	}
	walk(err)

	return out
}

func appendUnique(out *[]string, seen map[string]bool, msg string) {
	if seen[msg] {
		return
	}
	seen[msg] = true
	*out = append(*out, msg)
}
