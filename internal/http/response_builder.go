package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// JSONResponseBuilder provides a fluent API for writing JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewJSONResponse creates a builder with status 200.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be encoded as JSON.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Raw sets an already encoded JSON body.
func (b *JSONResponseBuilder) Raw(data []byte) *JSONResponseBuilder {
	b.raw = data
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	data := b.raw
	if data == nil {
		var err error
		if data, err = json.Marshal(b.body); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse builds the {"error","detail"} body.
func ErrorResponse(statusCode int, message, detail string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorResponse{Error: message, Detail: detail})
}

func NotFoundError(detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not found", detail)
}

func ServiceUnavailableError(detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, "service unavailable", detail)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error", "")
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidMonths),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNoFieldsToUpdate):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrOverlapConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return log.ErrorTypeValidation
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return log.ErrorTypeUnavailable
	}
	return log.ErrorTypeInternal
}

// writeError maps err to a response. Server-side failures are logged and
// their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusForError(err)
	logger := log.FromContext(r.Context())

	var overlap *core.OverlapError
	switch {
	case status == http.StatusInternalServerError:
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op, errorTypeFor(status), nil)
		InternalServerError().Write(w)
		return
	case status == http.StatusServiceUnavailable:
		log.NewStructuredLogger(logger).LogError(r.Context(), "Dependency unavailable", err, op, errorTypeFor(status), nil)
		ServiceUnavailableError("time-series store is unavailable").Write(w)
		return
	case errors.As(err, &overlap):
		logger.WarnContext(r.Context(), "Budget overlap rejected",
			log.FieldOperation, op,
			log.FieldBudgetID, overlap.Existing.ID)
	}

	ErrorResponse(status, http.StatusText(status), err.Error()).Write(w)
}
