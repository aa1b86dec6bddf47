package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/store"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// classify maps an error from the engine or store to a status and type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrEmptyBatch):
		return http.StatusBadRequest, ErrTypeEmptyBatch
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest, ErrTypeInvalidArgument
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrTypeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, ErrTypeTimeout
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}

// HandleError classifies err and writes the matching response
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, fields map[string]interface{}) {
	status, errType := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "Internal server error"
	}
	eb := NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		eb.WithCause(err)
	}
	for k, v := range fields {
		eb.WithContext(k, v)
	}
	eh.write(w, r, status, eb.Build())
}

// HandleValidationError handles request decoding and validation failures
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		Build()

	eh.write(w, r, http.StatusBadRequest, engineErr)
}

// HandleUnavailable reports a feature that needs a component this server
// was started without.
func (eh *ErrorHandler) HandleUnavailable(w http.ResponseWriter, r *http.Request, component string) {
	engineErr := NewError(ErrTypeServiceUnavailable, fmt.Sprintf("%s is not configured", component)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		Build()

	eh.write(w, r, http.StatusServiceUnavailable, engineErr)
}

func (eh *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	eh.logError(r, engineErr, status)
	writeErrorResponse(w, status, engineErr)
}

// logError logs client errors at warn and server errors at error
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	fields := []zap.Field{
		zap.String("type", engineErr.Type),
		zap.String("category", string(GetErrorCategory(engineErr.Type))),
		zap.Int("status", status),
		zap.String("request_id", engineErr.RequestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("message", engineErr.Message),
	}
	if len(engineErr.Context) > 0 {
		fields = append(fields, zap.Any("context", engineErr.Context))
	}

	if status >= http.StatusInternalServerError {
		eh.logger.Error("error_occurred", fields...)
		return
	}
	eh.logger.Warn("error_occurred", fields...)
}

// writeErrorResponse writes the error response as JSON
func writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())

				eh.logger.Error("panic_recovered",
					zap.String("request_id", requestID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stack"),
				)

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", r.URL.Path).
					Build()

				writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
