package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 200

var (
	ErrNotFound     = errors.New("task not found")
	ErrInvalidTitle = errors.New("invalid task title")
	ErrEmptyTitle   = errors.New("title is empty")
	ErrTitleTooLong = fmt.Errorf("title is longer than %d characters", MaxTitleLength)
	ErrBadEncoding  = errors.New("title is not valid UTF-8 text")
)

type Store struct {
	DB      *sql.DB
	Queries *Queries

	now func() time.Time
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{DB: db, Queries: New(db, dialect), now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) CreateTask(ctx context.Context, title string) (model.Task, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return model.Task{}, err
	}

	created, err := s.Queries.CreateTask(ctx, title, s.now())
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return mapTask(created), nil
}

func (s *Store) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	row, err := s.Queries.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, notFound(err, "get task")
	}
	return mapTask(row), nil
}

func (s *Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.Queries.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	result := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		result = append(result, mapTask(row))
	}
	return result, nil
}

func (s *Store) ToggleTask(ctx context.Context, taskID int64) (model.Task, error) {
	row, err := s.Queries.ToggleTask(ctx, taskID)
	if err != nil {
		return model.Task{}, notFound(err, "toggle task")
	}
	return mapTask(row), nil
}

func (s *Store) UpdateTaskTitle(ctx context.Context, taskID int64, title string) (model.Task, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return model.Task{}, err
	}

	row, err := s.Queries.UpdateTaskTitle(ctx, taskID, title)
	if err != nil {
		return model.Task{}, notFound(err, "update task")
	}
	return mapTask(row), nil
}

func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	affected, err := s.Queries.DeleteTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// NormalizeTitle trims a user-supplied title and checks it is non-empty,
// valid UTF-8 without NUL bytes, and no longer than MaxTitleLength.
// Failures wrap ErrInvalidTitle.
func NormalizeTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidTitle, ErrEmptyTitle)
	}
	// SQLite's length() stops at NUL and Postgres rejects invalid UTF-8.
	if !utf8.ValidString(trimmed) || strings.ContainsRune(trimmed, 0) {
		return "", fmt.Errorf("%w: %w", ErrInvalidTitle, ErrBadEncoding)
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return "", fmt.Errorf("%w: %w", ErrInvalidTitle, ErrTitleTooLong)
	}
	return trimmed, nil
}

func mapTask(row taskRow) model.Task {
	return model.Task{
		ID:        row.ID,
		Title:     row.Title,
		Completed: row.Completed,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
