package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/matheuscscp/ziteboard-sessions/internal/boards"
	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
)

const (
	pathLesson         = "/lessons/{lessonID}"
	pathLessonBoard    = "/lessons/{lessonID}/board"
	pathLessonViewOnly = "/lessons/{lessonID}/board/viewonly"
)

type boardManager interface {
	GetBoard(ctx context.Context, lessonID string, createNew bool) (*boards.Session, error)
	SetViewOnly(ctx context.Context, lessonID string) error
}

func newAPI(m boardManager, seeder store.Seeder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+pathLessonBoard, func(w http.ResponseWriter, r *http.Request) {
		createNew := true
		if v := r.URL.Query().Get(constants.QueryParamCreate); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid %s parameter '%s'", constants.QueryParamCreate, v), http.StatusBadRequest)
				return
			}
			createNew = b
		}

		s, err := m.GetBoard(r.Context(), lessonID(r), createNew)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if s == nil {
			http.Error(w, "Lesson has no board", http.StatusNotFound)
			return
		}
		respondJSON(w, r, http.StatusOK, s)
	})

	mux.HandleFunc("POST "+pathLessonViewOnly, func(w http.ResponseWriter, r *http.Request) {
		if err := m.SetViewOnly(r.Context(), lessonID(r)); err != nil {
			respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		logging.FromRequest(r).WithField("lessonID", lessonID(r)).Info("board set to view-only")
	})

	mux.HandleFunc("PUT "+pathLesson, func(w http.ResponseWriter, r *http.Request) {
		err := seeder.CreateLesson(r.Context(), lessonID(r))
		switch {
		case errors.Is(err, store.ErrLessonExists):
			w.WriteHeader(http.StatusOK)
		case err != nil:
			logging.FromRequest(r).WithError(err).Error("failed to create lesson")
			http.Error(w, "Failed to create lesson", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	})

	return mux
}
