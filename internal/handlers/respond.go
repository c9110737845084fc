package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"channelchat-backend/internal/apperr"

	"github.com/go-chi/chi/v5"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sugar.Error(err)
	}
}

// writeError maps an error through the apperr taxonomy. Internal faults get
// logged and an empty body; client errors echo their message.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		sugar.Error(err)
		http.Error(w, "", status)
		return
	}

	sugar.Debug(err)
	http.Error(w, err.Error(), status)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("invalid %s", name)
	}
	return id, nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("invalid id %q", value)
	}
	return id, nil
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit int, offset int) {
	limit = 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func userExistsKey(id int64) string {
	return fmt.Sprintf("user_exists:%d", id)
}
