package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/pkg/validator"
)

var kindStatus = map[domain.Kind]int{
	domain.KindInvalid:          http.StatusBadRequest,
	domain.KindDuplicate:        http.StatusBadRequest,
	domain.KindForbiddenWord:    http.StatusConflict,
	domain.KindReused:           http.StatusConflict,
	domain.KindPasswordMismatch: http.StatusBadRequest,
	domain.KindUnauthenticated:  http.StatusUnauthorized,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindStorage:          http.StatusBadRequest,
	domain.KindDeleted:          http.StatusConflict,
	domain.KindConflict:         http.StatusConflict,
}

// handleError writes the response for err. Domain errors carry their own
// code; anything else is logged and reported as INTERNAL.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			writeError(w, status, de.Code, de.Message)
			return
		}
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {name} path segment as a positive id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	return parseID(w, r.PathValue(name), name)
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	return parseID(w, r.URL.Query().Get(name), name)
}

func parseID(w http.ResponseWriter, raw, name string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt returns def when the parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}

func itoaInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}
