package errors

import (
	"log/slog"

	"github.com/go-weft/weft/pkg/logging"
)

// LogHandler is a Handler that writes errors through the framework logger.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool

	// Logger overrides the destination. Defaults to the "errors" logger.
	Logger *slog.Logger
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return logging.Logger("errors")
}

// HandleError logs a WeftError.
func (h *LogHandler) HandleError(err *WeftError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
	}
	if err.Component != "" {
		attrs = append(attrs, slog.String("component", err.Component))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	attrs = append(attrs, slog.Any("err", err.Err))
	h.logger().Error("framework error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("op", err.Op),
		slog.Any("value", err.Value),
	}
	if err.Component != "" {
		attrs = append(attrs, slog.String("component", err.Component))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("recovered panic", attrs...)
}
