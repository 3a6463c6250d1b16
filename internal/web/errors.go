package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives the
// mapped user message with its support code. Status codes follow the error
// category, so handlers only pass the error along.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/unidata/internal/csvio"
	"github.com/JonMunkholm/unidata/internal/logging"
	"github.com/JonMunkholm/unidata/internal/store"
	"github.com/JonMunkholm/unidata/internal/unidata"
)

// errNoFile is returned when a multipart request has no "file" part.
var errNoFile = errors.New("no file provided")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Column  string `json:"column,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, csvio.ErrFileTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, unidata.ErrNegativeValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, unidata.ErrInvalidArgument),
		errors.Is(err, unidata.ErrTypeMismatch),
		errors.Is(err, unidata.ErrParse),
		errors.Is(err, csvio.ErrEmptyFile),
		errors.Is(err, csvio.ErrInvalidCSV),
		errors.Is(err, store.ErrDisabled),
		errors.Is(err, store.ErrInvalidTableName),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := unidata.MapError(err)
	if errors.As(err, new(*http.MaxBytesError)) {
		msg = unidata.MapError(csvio.ErrFileTooLarge)
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if col, ok := unidata.OffendingColumn(err); ok {
		resp.Column = col
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
