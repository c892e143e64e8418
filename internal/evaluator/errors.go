package evaluator

import (
	"errors"
	"fmt"
	"log/slog"

	"zonescript/internal/token"
)

// Sentinel causes; test with errors.Is.
var (
	ErrDivisionByZero   = errors.New("division by zero")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrArity            = errors.New("wrong number of arguments")
	ErrNotCallable      = errors.New("not callable")
	ErrNotIterable      = errors.New("not iterable")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrPermissionDenied = errors.New("permission denied")
	ErrOutOfRange       = errors.New("out of range")
	ErrFlowEscape       = errors.New("control flow escaped its construct")
	ErrCallDepth        = errors.New("maximum call depth exceeded")
)

// RuntimeError is raised while executing a script. It carries the source
// position of the node that failed and the underlying cause.
type RuntimeError struct {
	msg    string
	err    error
	Line   int
	Column int
	attrs  []slog.Attr
}

func newRuntimeError(pos token.Token, cause error, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		msg:    fmt.Sprintf(format, args...),
		err:    cause,
		Line:   pos.Line,
		Column: pos.Column,
	}
}

// Errorf builds an unpositioned RuntimeError for natives. The evaluator
// fills in the position of the call that raised it.
func Errorf(cause error, format string, args ...any) *RuntimeError {
	return &RuntimeError{msg: fmt.Sprintf(format, args...), err: cause}
}

// wrapError converts any error into a RuntimeError positioned at pos,
// keeping an existing RuntimeError and only filling a missing position.
func wrapError(pos token.Token, err error) *RuntimeError {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		if rtErr.Line == 0 {
			rtErr.Line, rtErr.Column = pos.Line, pos.Column
		}
		return rtErr
	}
	return &RuntimeError{
		msg:    err.Error(),
		err:    err,
		Line:   pos.Line,
		Column: pos.Column,
	}
}

func (e *RuntimeError) Error() string {
	if e.Line == 0 {
		return "runtime error: " + e.msg
	}
	return fmt.Sprintf("[%3d:%2d] runtime error: %s", e.Line, e.Column, e.msg)
}

// Message is the text a script sees in a catch block.
func (e *RuntimeError) Message() string { return e.msg }

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RuntimeError) Unwrap() error { return e.err }

// With adds attributes for structured logging.
func (e *RuntimeError) With(attrs ...slog.Attr) *RuntimeError {
	e.attrs = append(e.attrs, attrs...)
	return e
}

// LogValue implements slog.LogValuer.
func (e *RuntimeError) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)
	attrs = append(attrs, slog.String("error", e.msg))
	if e.Line > 0 {
		attrs = append(attrs, slog.Int("line", e.Line), slog.Int("column", e.Column))
	}
	if e.err != nil && e.err.Error() != e.msg {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}
	return slog.GroupValue(append(attrs, e.attrs...)...)
}
