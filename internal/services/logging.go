package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/SAP-F-2025/test-engine-service/internal/services"

// ServiceLogger provides structured logging and tracing for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func NewServiceLogger(logger *slog.Logger, component string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", "test-engine", "component", component),
		tracer: otel.Tracer(tracerName),
	}
}

// Logger returns the component-scoped slog logger
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

// Operation wraps one service call with a span and a result log line
type Operation struct {
	logger    *ServiceLogger
	ctx       context.Context
	span      trace.Span
	name      string
	userID    string
	startTime time.Time
}

// Start opens a span for operation and returns the derived context.
func (l *ServiceLogger) Start(ctx context.Context, operation, userID string) (context.Context, *Operation) {
	ctx, span := l.tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	return ctx, &Operation{
		logger:    l,
		ctx:       ctx,
		span:      span,
		name:      operation,
		userID:    userID,
		startTime: time.Now(),
	}
}

// SetAttributes annotates the span with resource identifiers
func (op *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	op.span.SetAttributes(attrs...)
}

// End logs the outcome and closes the span. Expected client errors log below error level.
func (op *Operation) End(resourceID string, err error) {
	defer op.span.End()

	level := slog.LevelDebug
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err):
			level, status = slog.LevelWarn, "validation_error"
		case IsUnauthorized(err), IsAccessDenied(err):
			level, status = slog.LevelWarn, "unauthorized"
		case IsNotFound(err):
			level, status = slog.LevelInfo, "not_found"
		case IsConflict(err):
			level, status = slog.LevelInfo, "conflict"
		default:
			op.span.RecordError(err)
			op.span.SetStatus(codes.Error, err.Error())
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", op.name),
		slog.String("user_id", op.userID),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.Duration("duration", time.Since(op.startTime)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	op.logger.logger.LogAttrs(op.ctx, level, fmt.Sprintf("%s operation %s", op.name, status), attrs...)
}
