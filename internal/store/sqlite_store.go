package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-sqlite3"
)

const (
	sqliteMaxOpenConns    = 10
	sqliteConnMaxLifetime = time.Hour
	sqliteConnMaxIdleTime = 10 * time.Minute
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lessons (
	id                         TEXT PRIMARY KEY,
	ziteboard_id               TEXT,
	ziteboard_token            TEXT,
	ziteboard_token_expires_at DATETIME,
	created_at                 DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lessons_ziteboard_id ON lessons (ziteboard_id);
`

// SQLiteStore keeps lessons in a SQLite database. Transactions start with
// BEGIN IMMEDIATE so the conditional updates behind the SetOrGet operations
// are serialized across connections and processes.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Seeder = (*SQLiteStore)(nil)
)

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	// The path is escaped so '?', '#' and '%' in it cannot leak into the query.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		(&url.URL{Path: path}).EscapedPath())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(sqliteMaxOpenConns)
	db.SetConnMaxLifetime(sqliteConnMaxLifetime)
	db.SetConnMaxIdleTime(sqliteConnMaxIdleTime)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLesson(ctx context.Context, lessonID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, created_at) VALUES (?, ?)`,
		lessonID, time.Now().UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", ErrLessonExists, lessonID)
		}
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLessonBoardData(ctx context.Context, lessonID string) (*LessonBoardData, error) {
	b, err := scanLessonBoard(s.db.QueryRowContext(ctx, selectLessonBoard, lessonID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
		}
		return nil, fmt.Errorf("failed to query lesson: %w", err)
	}
	return &LessonBoardData{LessonID: lessonID, Board: b}, nil
}

func (s *SQLiteStore) SetOrGetLessonBoard(ctx context.Context, lessonID string, b Board) (Board, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Board{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE lessons
		SET ziteboard_id = ?, ziteboard_token = ?, ziteboard_token_expires_at = ?
		WHERE id = ? AND ziteboard_id IS NULL`,
		b.ID, b.Token, b.ExpiresAt.UTC(), lessonID)
	if err != nil {
		return Board{}, fmt.Errorf("failed to update lesson board: %w", err)
	}

	cur, err := scanLessonBoard(tx.QueryRowContext(ctx, selectLessonBoard, lessonID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Board{}, fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
		}
		return Board{}, fmt.Errorf("failed to query lesson: %w", err)
	}
	if cur == nil {
		return Board{}, fmt.Errorf("lesson %s has no board after update", lessonID)
	}

	if err := tx.Commit(); err != nil {
		return Board{}, fmt.Errorf("failed to commit lesson board: %w", err)
	}
	return *cur, nil
}

func (s *SQLiteStore) SetOrGetBoardToken(ctx context.Context, boardID, token string,
	expiresAt time.Time, oldToken string) (string, time.Time, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE lessons
		SET ziteboard_token = ?, ziteboard_token_expires_at = ?
		WHERE ziteboard_id = ? AND ziteboard_token = ?`,
		token, expiresAt.UTC(), boardID, oldToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to update board token: %w", err)
	}

	var curToken string
	var curExpiresAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT ziteboard_token, ziteboard_token_expires_at
		FROM lessons
		WHERE ziteboard_id = ?
		LIMIT 1`, boardID).Scan(&curToken, &curExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
		}
		return "", time.Time{}, fmt.Errorf("failed to query board token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to commit board token: %w", err)
	}
	return curToken, curExpiresAt, nil
}

const selectLessonBoard = `
	SELECT ziteboard_id, ziteboard_token, ziteboard_token_expires_at
	FROM lessons
	WHERE id = ?`

func scanLessonBoard(row *sql.Row) (*Board, error) {
	var id, token sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&id, &token, &expiresAt); err != nil {
		return nil, err
	}
	if !id.Valid {
		return nil, nil
	}
	return &Board{
		ID:        id.String,
		Token:     token.String,
		ExpiresAt: expiresAt.Time,
	}, nil
}
