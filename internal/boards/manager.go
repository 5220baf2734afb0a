package boards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
	"github.com/matheuscscp/ziteboard-sessions/internal/ziteboard"
)

const (
	outcomeNone      = "none"
	outcomeCreated   = "created"
	outcomeRefreshed = "refreshed"
	outcomeReused    = "reused"
)

var ErrNoBoard = errors.New("lesson has no board")

// Session is what a lesson participant needs to open its board.
type Session struct {
	BoardID   string    `json:"boardID"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager resolves the board of a lesson. It keeps no state of its own: the
// lesson store is the source of truth and arbitrates concurrent callers.
type Manager struct {
	client          ziteboard.Interface
	store           store.Store
	tokenLifetime   time.Duration
	defaultLessonID string
	nowFunc         func() time.Time

	sessions *prometheus.CounterVec
}

func NewManager(client ziteboard.Interface, st store.Store, conf *config.Config,
	nowFunc func() time.Time, promRegisterer prometheus.Registerer) *Manager {

	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_sessions_total",
		Help: "Number of resolved board sessions by outcome",
	}, []string{"outcome"})
	promRegisterer.MustRegister(sessions)

	return &Manager{
		client:          client,
		store:           st,
		tokenLifetime:   conf.Ziteboard.TokenLifetime(),
		defaultLessonID: conf.Lessons.DefaultLessonID,
		nowFunc:         nowFunc,
		sessions:        sessions,
	}
}

// GetBoard returns the board session of a lesson, creating the board when
// createNew is set or refreshing its token when expired. A nil Session with a
// nil error means the lesson has no board and none was requested.
func (m *Manager) GetBoard(ctx context.Context, lessonID string, createNew bool) (*Session, error) {
	ctx, l := logging.WithFields(ctx, logrus.Fields{"lessonID": lessonID})

	lesson, err := m.lookup(ctx, l, lessonID)
	if err != nil {
		return nil, err
	}
	lessonID = lesson.LessonID

	switch {
	case lesson.Board == nil && !createNew:
		m.sessions.WithLabelValues(outcomeNone).Inc()
		return nil, nil

	case lesson.Board == nil:
		expiresAt := m.nowFunc().Add(m.tokenLifetime)
		boardID, token, err := m.client.CreateBoard(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create board for lesson %s: %w", lessonID, err)
		}
		b, err := m.store.SetOrGetLessonBoard(ctx, lessonID, store.Board{
			ID:        boardID,
			Token:     token,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store board %s for lesson %s: %w", boardID, lessonID, err)
		}
		if b.ID != boardID {
			l.WithField("boardID", b.ID).
				WithField("discardedBoardID", boardID).
				Info("another caller created the lesson board first")
		}
		m.sessions.WithLabelValues(outcomeCreated).Inc()
		return &Session{BoardID: b.ID, Token: b.Token, ExpiresAt: b.ExpiresAt}, nil

	case !lesson.Board.ExpiresAt.After(m.nowFunc()):
		boardID := lesson.Board.ID
		expiresAt := m.nowFunc().Add(m.tokenLifetime)
		token, err := m.client.UpdateToken(ctx, boardID)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token of board %s: %w", boardID, err)
		}
		token, expiresAt, err = m.store.SetOrGetBoardToken(ctx, boardID, token, expiresAt, lesson.Board.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to store token of board %s: %w", boardID, err)
		}
		m.sessions.WithLabelValues(outcomeRefreshed).Inc()
		return &Session{BoardID: boardID, Token: token, ExpiresAt: expiresAt}, nil

	default:
		m.sessions.WithLabelValues(outcomeReused).Inc()
		return &Session{
			BoardID:   lesson.Board.ID,
			Token:     lesson.Board.Token,
			ExpiresAt: lesson.Board.ExpiresAt,
		}, nil
	}
}

// lookup fetches the lesson, falling back once to the default lesson when it
// does not exist.
func (m *Manager) lookup(ctx context.Context, l logrus.FieldLogger, lessonID string) (*store.LessonBoardData, error) {
	lesson, err := m.store.GetLessonBoardData(ctx, lessonID)
	if err == nil {
		return lesson, nil
	}
	if !errors.Is(err, store.ErrLessonNotFound) {
		return nil, fmt.Errorf("failed to get lesson %s: %w", lessonID, err)
	}
	if m.defaultLessonID == "" {
		l.Warn("lesson was not found and no default lesson is configured")
		return nil, err
	}

	l.WithField("defaultLessonID", m.defaultLessonID).
		Warn("lesson was not found, returning the board of the default lesson")
	lesson, err = m.store.GetLessonBoardData(ctx, m.defaultLessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get default lesson %s: %w", m.defaultLessonID, err)
	}
	return lesson, nil
}

// SetViewOnly makes the board of a lesson read-only. It never creates a board
// nor refreshes its token.
func (m *Manager) SetViewOnly(ctx context.Context, lessonID string) error {
	ctx, l := logging.WithFields(ctx, logrus.Fields{"lessonID": lessonID})

	lesson, err := m.lookup(ctx, l, lessonID)
	if err != nil {
		return err
	}
	if lesson.Board == nil {
		return fmt.Errorf("%w: %s", ErrNoBoard, lesson.LessonID)
	}
	if err := m.client.SetViewOnly(ctx, lesson.Board.ID); err != nil {
		return fmt.Errorf("failed to set board %s view-only: %w", lesson.Board.ID, err)
	}
	return nil
}
