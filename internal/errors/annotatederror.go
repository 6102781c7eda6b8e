package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError carries the call site and slog attributes along with the message so that a single
// log line is enough to locate the failure.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// cause is the wrapped error, nil for errors created with New.
	cause error
	// pc is the program counter of the caller provided by runtime.Callers.
	pc uintptr
	// attrs are added to the log event, e.g., the suspect being questioned.
	attrs []slog.Attr
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &AnnotatedError{
		msg:   msg,
		cause: nil,
		pc:    callerPC(),
		attrs: attrs,
	}
}

// NewSentinel creates a plain error without other context that can be detected with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with msg and attrs. The wrapped error is still matched by errors.Is and errors.As.
//
// Wrap returns nil if err is nil so that it can be used on the return path unconditionally.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &AnnotatedError{
		msg:   msg,
		cause: err,
		pc:    callerPC(),
		attrs: attrs,
	}
}

// Error implements error interface.
func (err *AnnotatedError) Error() string {
	if err.cause == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.cause.Error())
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (err *AnnotatedError) Unwrap() error {
	return err.cause
}

// LogValue formats the error for useful logging.
func (err *AnnotatedError) LogValue() slog.Value {
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	attrs := []slog.Attr{
		slog.String("msg", err.Error()),
		slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line)),
	}
	attrs = append(attrs, err.attrs...)

	// Collect the attributes of the wrapped annotated errors as well, innermost last.
	var inner *AnnotatedError
	if errors.As(err.cause, &inner) {
		attrs = append(attrs, inner.collectAttrs()...)
	}

	return slog.GroupValue(attrs...)
}

func (err *AnnotatedError) collectAttrs() []slog.Attr {
	attrs := append([]slog.Attr{}, err.attrs...)
	var inner *AnnotatedError
	if errors.As(err.cause, &inner) {
		attrs = append(attrs, inner.collectAttrs()...)
	}
	return attrs
}

// SlogError returns an attribute for logging err under the "error" key.
func SlogError(err error) slog.Attr {
	if annotated, ok := err.(*AnnotatedError); ok { //nolint:errorlint // only the outermost error carries the full message
		return slog.Any("error", annotated)
	}
	return slog.String("error", fmt.Sprint(err))
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
