package store

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO required

	"tasks-cli/logging"
	"tasks-cli/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	position    INTEGER NOT NULL,
	id          INTEGER PRIMARY KEY,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	category    TEXT    NOT NULL,
	due_date    TEXT    NOT NULL,
	priority    TEXT    NOT NULL,
	status      TEXT    NOT NULL
);`

// SQLite is a Backend keeping the task list in a single SQLite table.
// Save replaces the table contents in one transaction.
type SQLite struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(path string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %w", ErrIO, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrIO, err)
	}
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Load() ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, category, due_date, priority, status
		 FROM tasks ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		var category, priority, status string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &category, &t.DueDate, &priority, &status); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
		}
		t.Category = model.Category(category)
		t.Priority = model.Priority(priority)
		t.Status = model.Status(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.logger.Debug("loaded tasks", "backend", "sqlite", "count", len(tasks))
	return tasks, nil
}

func (s *SQLite) Save(tasks []model.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := replaceAll(tx, tasks); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.logger.Debug("saved tasks", "backend", "sqlite", "count", len(tasks))
	return nil
}

func replaceAll(tx *sql.Tx, tasks []model.Task) error {
	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO tasks (position, id, title, description, category, due_date, priority, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tasks {
		if _, err := stmt.Exec(i, t.ID, t.Title, t.Description,
			string(t.Category), t.DueDate, string(t.Priority), string(t.Status)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
