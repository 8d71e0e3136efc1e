package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dentalbudget/internal/auth"
	"dentalbudget/internal/core"
	applog "dentalbudget/internal/log"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseID extracts and validates a numeric path parameter.
func parseID(w http.ResponseWriter, r *http.Request, paramName string) (int64, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id: "+raw)
		return 0, false
	}
	return id, true
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and skip from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 100, Offset: 0}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// errorToHTTP maps domain errors to HTTP responses with stable codes.
func errorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")

	case errors.Is(err, core.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "operation not allowed for this role")

	case errors.Is(err, core.ErrPracticeNotFound),
		errors.Is(err, core.ErrFiscalYearNotFound),
		errors.Is(err, core.ErrPeriodNotFound),
		errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, core.ErrLineNotFound),
		errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrCategoryInUse),
		errors.Is(err, core.ErrConstraintViolation):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, core.ErrReadOnlyCategory):
		writeError(w, http.StatusUnprocessableEntity, "read_only_category", err.Error())

	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", err.Error())

	case errors.Is(err, core.ErrInvalidFormula),
		errors.Is(err, core.ErrFormulaCycle),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidCategoryType),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrEmptyEmail),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrManagerWithoutPractice):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())

	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Internal error",
			applog.FieldError, err.Error(), applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
