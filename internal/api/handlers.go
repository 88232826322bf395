package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/PostPipe/internal/content"
	"github.com/BTreeMap/PostPipe/internal/models"
	"github.com/BTreeMap/PostPipe/internal/store"
)

// decodeJSON decodes the request body into v, writing a 400 response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, handler string, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Server."+handler+": failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return false
	}
	return true
}

// postNumber reads the 1-based post number from the {n} path segment.
func postNumber(w http.ResponseWriter, r *http.Request, handler string) (int, bool) {
	raw := r.PathValue("n")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		slog.Warn("Server."+handler+": invalid post number", "n", raw)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Invalid post number: %q", raw)))
		return 0, false
	}
	return n, true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, content.ErrBatchNotFound),
		errors.Is(err, models.ErrPostIndexNotFound),
		errors.Is(err, store.ErrBrandNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrEmptyBrandName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an error envelope with the status errorStatus picks.
// Internal errors are reported with fallback instead of the raw error text.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = fallback
	}
	writeJSONResponse(w, status, models.Error(msg))
}
