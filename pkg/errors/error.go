package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Failure is an immutable captured error. All exported fields are persisted
// with the error log; the live cause is kept only in memory.
type Failure struct {
	// Identification
	Code     string `json:"code"`
	Category string `json:"category"`
	TraceID  string `json:"trace_id"`

	// Error details
	Message  string   `json:"message"`
	Causes   []string `json:"causes,omitempty"` // root cause last
	Function string   `json:"function,omitempty"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`

	Stack     []StackFrame `json:"stack,omitempty"`
	Timestamp time.Time    `json:"timestamp"`

	cause error
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.cause != nil && f.cause.Error() != f.Message {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// FailureCode returns the failure's classification code
func (f *Failure) FailureCode() string {
	return f.Code
}

// Unwrap returns the underlying cause
func (f *Failure) Unwrap() error {
	return f.cause
}

// RootCause returns the innermost recorded cause message, or the failure's
// own message when there is no chain.
func (f *Failure) RootCause() string {
	if len(f.Causes) == 0 {
		return f.Message
	}
	return f.Causes[len(f.Causes)-1]
}

// FormatSummary returns a human-readable summary of the failure
func (f *Failure) FormatSummary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s [%s] %s\n", f.Code, f.Category, f.Message))
	for i, c := range f.Causes {
		sb.WriteString(fmt.Sprintf("  cause %d: %s\n", i+1, c))
	}
	if f.Function != "" {
		sb.WriteString(fmt.Sprintf("  at %s @ %s:%d\n", f.Function, f.File, f.Line))
	}
	sb.WriteString(fmt.Sprintf("  trace %s, %s", f.TraceID, f.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))

	return sb.String()
}

func newTraceID() string {
	return uuid.NewString()
}

// captureStack captures the current call stack, skipping the specified number of frames
func captureStack(skip int) []StackFrame {
	var frames []StackFrame

	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return frames
	}

	callers := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := callers.Next()

		// Skip runtime internals, but keep the panic site that follows them
		if !strings.HasPrefix(frame.Function, "runtime.") {
			frames = append(frames, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if frame.Function == "main.main" || !more {
			break
		}
	}

	return frames
}

// Builder constructs Failure instances with a fluent API
type Builder struct {
	f *Failure
}

// NewBuilder creates a new failure builder for the given code
func NewBuilder(code string) *Builder {
	return newBuilder(code, 2)
}

func newBuilder(code string, skip int) *Builder {
	def := Lookup(code)

	b := &Builder{
		f: &Failure{
			Code:      def.Code,
			Category:  def.Category,
			Message:   def.Message,
			TraceID:   newTraceID(),
			Timestamp: time.Now(),
			Stack:     captureStack(skip),
		},
	}
	if len(b.f.Stack) > 0 {
		top := b.f.Stack[0]
		b.f.Function, b.f.File, b.f.Line = top.Function, top.File, top.Line
	}
	return b
}

// Wrap records cause as the failure's origin. The message becomes the
// cause's text and the cause chain is flattened into Causes.
func (b *Builder) Wrap(cause error) *Builder {
	if cause == nil {
		return b
	}
	b.f.cause = cause
	b.f.Message = cause.Error()
	b.f.Causes = causeChain(cause)
	return b
}

// WithMessage sets a custom message
func (b *Builder) WithMessage(msg string) *Builder {
	b.f.Message = msg
	return b
}

// WithMessagef sets a formatted custom message
func (b *Builder) WithMessagef(format string, args ...interface{}) *Builder {
	b.f.Message = fmt.Sprintf(format, args...)
	return b
}

// WithFunction sets the function name where the failure occurred
func (b *Builder) WithFunction(fn string) *Builder {
	b.f.Function = fn
	return b
}

// WithLocation sets the file and line explicitly
func (b *Builder) WithLocation(file string, line int) *Builder {
	b.f.File = file
	b.f.Line = line
	return b
}

// WithStack replaces the captured stack
func (b *Builder) WithStack(stack []StackFrame) *Builder {
	b.f.Stack = stack
	return b
}

// WithTimestamp overrides the capture time
func (b *Builder) WithTimestamp(ts time.Time) *Builder {
	b.f.Timestamp = ts
	return b
}

// Build creates the final Failure
func (b *Builder) Build() *Failure {
	if len(b.f.Causes) == 0 {
		b.f.Causes = nil
	}
	if len(b.f.Stack) == 0 {
		b.f.Stack = nil
	}
	return b.f
}

// New creates a new failure with just a code and message
func New(code, message string) *Failure {
	return newBuilder(code, 2).WithMessage(message).Build()
}

// Newf creates a new failure with formatted message
func Newf(code, format string, args ...interface{}) *Failure {
	return newBuilder(code, 2).WithMessagef(format, args...).Build()
}

// Wrap wraps an error with a code
func Wrap(code string, cause error) *Failure {
	return newBuilder(code, 2).Wrap(cause).Build()
}

// WrapWithMessage wraps an error with a code and custom message
func WrapWithMessage(code string, cause error, message string) *Failure {
	return newBuilder(code, 2).Wrap(cause).WithMessage(message).Build()
}
