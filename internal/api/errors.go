package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/econ-engine/internal/errs"
)

// EngineError is the JSON body of every failed request.
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

func (e EngineError) Error() string { return e.Message }

// Error types that do not come from an engine error kind.
const (
	ErrTypeMalformedBody = "malformed_body"
	ErrTypeTimeout       = "timeout"
	ErrTypeCanceled      = "canceled"
	ErrTypePanic         = "internal"
)

// ErrorBuilder helps construct structured errors with context.
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder.
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{errType: errType, message: message, context: make(map[string]any)}
}

func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// Build creates the final EngineError.
func (eb *ErrorBuilder) Build() EngineError {
	e := EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(eb.context) > 0 {
		e.Context = eb.context
	}
	return e
}

// statusFor maps an engine failure to an HTTP status and error type.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTypeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrTypeCanceled
	}

	kind := errs.KindOf(err)
	switch kind {
	case errs.KindInvalidAmount, errs.KindInvalidPayload, errs.KindRange,
		errs.KindEmptyInput, errs.KindUnknownCommand:
		return http.StatusBadRequest, string(kind)
	case errs.KindNotFound:
		return http.StatusNotFound, string(kind)
	case errs.KindAlreadyExists, errs.KindInvalidStateTransition:
		return http.StatusConflict, string(kind)
	case errs.KindLockTimeout:
		return http.StatusServiceUnavailable, string(kind)
	default:
		return http.StatusInternalServerError, string(errs.KindInternal)
	}
}

// writeError logs err and writes it as an EngineError.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := statusFor(err)
	requestID := middleware.GetReqID(r.Context())

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal causes stay in the log.
		message = "internal error"
	}
	e := NewError(errType, message).
		WithRequestID(requestID).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method)
	if errs.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
		e.WithContext("retryable", true)
	}

	level := "WARN"
	if status >= 500 {
		level = "ERROR"
	}
	s.logger.Printf("request_failed level=%s type=%s status=%d request_id=%s method=%s path=%s err=%q",
		level, errType, status, requestID, r.Method, r.URL.Path, err.Error())

	s.writeJSON(w, status, e.Build())
}

// writeBadBody reports a request body that could not be decoded.
func (s *Server) writeBadBody(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetReqID(r.Context())
	s.logger.Printf("request_failed level=WARN type=%s status=%d request_id=%s path=%s err=%q",
		ErrTypeMalformedBody, http.StatusBadRequest, requestID, r.URL.Path, err.Error())
	s.writeJSON(w, http.StatusBadRequest, NewError(ErrTypeMalformedBody, fmt.Sprintf("decode body: %v", err)).
		WithRequestID(requestID).
		WithContext("path", r.URL.Path).
		Build())
}

// recoverer turns a handler panic into a 500 EngineError.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			requestID := middleware.GetReqID(r.Context())
			s.logger.Printf("panic_recovered request_id=%s method=%s path=%s panic=%v",
				requestID, r.Method, r.URL.Path, rec)
			s.writeJSON(w, http.StatusInternalServerError, NewError(ErrTypePanic, "internal error").
				WithRequestID(requestID).
				WithContext("path", r.URL.Path).
				Build())
		}()
		next.ServeHTTP(w, r)
	})
}
