package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type lessonKey string

type MemoryStore struct {
	lessons map[lessonKey]*Board
	mu      sync.Mutex
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Seeder = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lessons: make(map[lessonKey]*Board),
	}
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) CreateLesson(ctx context.Context, lessonID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lessons[lessonKey(lessonID)]; ok {
		return fmt.Errorf("%w: %s", ErrLessonExists, lessonID)
	}
	m.lessons[lessonKey(lessonID)] = nil
	return nil
}

func (m *MemoryStore) GetLessonBoardData(ctx context.Context, lessonID string) (*LessonBoardData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.lessons[lessonKey(lessonID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
	}
	data := &LessonBoardData{LessonID: lessonID}
	if b != nil {
		cp := *b
		data.Board = &cp
	}
	return data, nil
}

func (m *MemoryStore) SetOrGetLessonBoard(ctx context.Context, lessonID string, b Board) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.lessons[lessonKey(lessonID)]
	if !ok {
		return Board{}, fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
	}
	if cur != nil {
		return *cur, nil
	}
	m.lessons[lessonKey(lessonID)] = &b
	return b, nil
}

func (m *MemoryStore) SetOrGetBoardToken(ctx context.Context, boardID, token string,
	expiresAt time.Time, oldToken string) (string, time.Time, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	var found *Board
	for _, b := range m.lessons {
		if b == nil || b.ID != boardID {
			continue
		}
		if b.Token == oldToken {
			b.Token = token
			b.ExpiresAt = expiresAt
		}
		found = b
	}
	if found == nil {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
	}
	return found.Token, found.ExpiresAt, nil
}
