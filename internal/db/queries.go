package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries runs the task statements. Statements are written with ? placeholders
// and rebound for dialects that use numbered ones.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

type taskRow struct {
	ID        int64
	Title     string
	Completed bool
	CreatedAt time.Time
}

const createTask = `INSERT INTO tasks (title, completed, created_at)
VALUES (?, ?, ?)
RETURNING id, title, completed, created_at`

func (q *Queries) CreateTask(ctx context.Context, title string, createdAt time.Time) (taskRow, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createTask), title, false, q.timeArg(createdAt))
	return scanTask(row)
}

const getTask = `SELECT id, title, completed, created_at FROM tasks WHERE id = ?`

func (q *Queries) GetTask(ctx context.Context, id int64) (taskRow, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(getTask), id)
	return scanTask(row)
}

const listTasks = `SELECT id, title, completed, created_at FROM tasks ORDER BY id ASC`

func (q *Queries) ListTasks(ctx context.Context) ([]taskRow, error) {
	rows, err := q.db.QueryContext(ctx, listTasks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []taskRow
	for rows.Next() {
		item, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const toggleTask = `UPDATE tasks SET completed = NOT completed
WHERE id = ?
RETURNING id, title, completed, created_at`

func (q *Queries) ToggleTask(ctx context.Context, id int64) (taskRow, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(toggleTask), id)
	return scanTask(row)
}

const updateTaskTitle = `UPDATE tasks SET title = ?
WHERE id = ?
RETURNING id, title, completed, created_at`

func (q *Queries) UpdateTaskTitle(ctx context.Context, id int64, title string) (taskRow, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(updateTaskTitle), title, id)
	return scanTask(row)
}

const deleteTask = `DELETE FROM tasks WHERE id = ?`

func (q *Queries) DeleteTask(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, q.rebind(deleteTask), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (taskRow, error) {
	var item taskRow
	var createdAt timestamp
	if err := s.Scan(&item.ID, &item.Title, &item.Completed, &createdAt); err != nil {
		return taskRow{}, err
	}
	item.CreatedAt = createdAt.Time
	return item, nil
}

const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

var timestampLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// timestamp scans both native driver times and SQLite text timestamps.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(value string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", value)
}

func (q *Queries) timeArg(value time.Time) any {
	if q.dialect == DialectSQLite {
		return value.UTC().Format(sqliteTimeLayout)
	}
	return value.UTC()
}

func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
