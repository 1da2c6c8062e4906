package queue

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// PanicHandler defines how a panicking task is reported.
type PanicHandler interface {
	// HandlePanic is called with the task that panicked, the recovered
	// value, and the stack trace. It must not panic itself.
	HandlePanic(ctx context.Context, task Task, panicValue any, stackTrace []byte)
}

// LoggingPanicHandler logs panics with stack traces.
type LoggingPanicHandler struct{}

// NewLoggingPanicHandler returns the default panic handler.
func NewLoggingPanicHandler() *LoggingPanicHandler {
	return &LoggingPanicHandler{}
}

// HandlePanic logs the panic with its stack trace.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, task Task, panicValue any, stackTrace []byte) {
	slog.Default().ErrorContext(ctx, "PANIC in task",
		slog.String("task_id", task.ID),
		slog.String("user_id", task.UserID),
		slog.Any("panic", panicValue),
		slog.String("stack_trace", string(stackTrace)),
	)
}

// FuncPanicHandler adapts a function to the PanicHandler interface.
type FuncPanicHandler func(ctx context.Context, task Task, panicValue any, stackTrace []byte)

// HandlePanic calls the wrapped function.
func (f FuncPanicHandler) HandlePanic(ctx context.Context, task Task, panicValue any, stackTrace []byte) {
	f(ctx, task, panicValue, stackTrace)
}

func stack() []byte {
	return debug.Stack()
}
