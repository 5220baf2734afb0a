package store

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrLessonExists   = errors.New("lesson already exists")
	ErrBoardNotFound  = errors.New("board not found")
)

// Board is a Ziteboard board as persisted for a lesson.
type Board struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// LessonBoardData is the board-related part of a lesson record. Board is nil
// while the lesson has no board.
type LessonBoardData struct {
	LessonID string
	Board    *Board
}

// Store is the lesson persistence the board manager relies on. The SetOrGet
// operations are atomic: the first writer wins and later writers receive the
// winner's value.
type Store interface {
	GetLessonBoardData(ctx context.Context, lessonID string) (*LessonBoardData, error)
	SetOrGetLessonBoard(ctx context.Context, lessonID string, b Board) (Board, error)
	SetOrGetBoardToken(ctx context.Context, boardID, token string, expiresAt time.Time, oldToken string) (string, time.Time, error)
}

// Seeder creates lesson records. Lessons are owned by the surrounding system,
// this exists for tests and for the seeding endpoint.
type Seeder interface {
	CreateLesson(ctx context.Context, lessonID string) error
}

// Backend is a store owning resources that must be released on shutdown.
type Backend interface {
	Store
	Seeder
	io.Closer
}
