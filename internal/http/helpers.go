package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/log"
)

const maxJSONBody = 1 << 20

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("bad request")

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Detail string `json:"detail"`
}

// dateLayouts are accepted for date query parameters, most precise first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate accepts RFC 3339, a zone-less timestamp or a plain date. Zone-less
// values are read as UTC.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrInvalidPrice),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownProduct),
		errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, catalog.ErrImageRequired):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrBlobDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			log.FieldError, err, log.FieldPath, r.URL.Path)
	}
}

// writeError answers with {"detail": ...}. Internal errors are logged and
// their message is not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeInternal)
		detail = http.StatusText(status)
	}
	writeJSON(w, r, status, errorBody{Detail: detail})
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, r, status, errorBody{Detail: detail})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}
