package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matheuscscp/ziteboard-sessions/internal/boards"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
	"github.com/matheuscscp/ziteboard-sessions/internal/ziteboard"
)

func lessonID(r *http.Request) string {
	return r.PathValue("lessonID")
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromRequest(r).WithError(err).Error("failed to write response")
	}
}

// respondError maps errors from the board manager to HTTP statuses. Ziteboard
// failures were already logged by the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vendorErr *ziteboard.VendorError
	var transportErr *ziteboard.TransportError

	switch {
	case errors.Is(err, store.ErrLessonNotFound):
		http.Error(w, "Lesson not found", http.StatusNotFound)
	case errors.Is(err, boards.ErrNoBoard):
		http.Error(w, "Lesson has no board", http.StatusNotFound)
	case errors.As(err, &vendorErr), errors.As(err, &transportErr):
		http.Error(w, "Ziteboard request failed", http.StatusBadGateway)
	default:
		logging.FromRequest(r).WithError(err).Error("failed to resolve lesson board")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
