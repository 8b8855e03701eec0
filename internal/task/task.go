package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrNotFound = errors.New("task: not found")

type Task struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	CorrectAnswer    string   `json:"-"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Difficulty       *string  `json:"difficulty,omitempty"`
	Hints            []string `json:"-"`
}

// Info is the client-facing slice of a task, returned on session creation.
// It never carries the correct answer.
type Info struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
}

func (t *Task) Info() Info {
	return Info{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		TimeLimitSeconds: t.TimeLimitSeconds,
	}
}

type Repo interface {
	GetByID(ctx context.Context, taskID string) (*Task, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetByID(ctx context.Context, taskID string) (*Task, error) {
	const q = `
		SELECT id, title, description, correct_answer, time_limit_seconds, difficulty, hints
		FROM tasks
		WHERE id = $1`

	var t Task
	err := r.db.QueryRowContext(ctx, q, taskID).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.CorrectAnswer,
		&t.TimeLimitSeconds,
		&t.Difficulty,
		pq.Array(&t.Hints),
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task: query failed: %w", err)
	}

	return &t, nil
}
