package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects, pings and ensures the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id     BIGINT PRIMARY KEY,
		user_handle TEXT,
		usage_count INT NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS tasks (
		task_id                BIGSERIAL PRIMARY KEY,
		user_id                BIGINT NOT NULL REFERENCES users (user_id),
		source_path            TEXT NOT NULL,
		target_path            TEXT NOT NULL,
		result_path            TEXT NOT NULL,
		status                 TEXT NOT NULL DEFAULT 'pending',
		error_message          TEXT,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		processing_started_at  TIMESTAMPTZ,
		processing_finished_at TIMESTAMPTZ
	);
	`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateJob(ctx context.Context, userID int64, sourcePath, targetPath, resultPath string) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, source_path, target_path, result_path)
		 VALUES ($1, $2, $3, $4) RETURNING task_id`,
		userID, sourcePath, targetPath, resultPath,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

func (p *Postgres) MarkProcessing(ctx context.Context, jobID int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, processing_started_at = now() WHERE task_id = $2`,
		StatusProcessing, jobID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

func (p *Postgres) MarkCompleted(ctx context.Context, jobID int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, processing_finished_at = now() WHERE task_id = $2`,
		StatusCompleted, jobID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (p *Postgres) MarkFailed(ctx context.Context, jobID int64, errMsg string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, error_message = $2, processing_finished_at = now() WHERE task_id = $3`,
		StatusFailed, errMsg, jobID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (p *Postgres) ListPendingJobs(ctx context.Context) ([]Job, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT task_id, user_id, source_path, target_path, result_path, status, created_at
		 FROM tasks WHERE status = $1 ORDER BY task_id`,
		StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.UserID, &j.SourcePath, &j.TargetPath, &j.ResultPath, &j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending task: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending tasks: %w", err)
	}
	return out, nil
}

func (p *Postgres) RegisterUserIfAbsent(ctx context.Context, userID int64, handle string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (user_id, user_handle) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, handle)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func (p *Postgres) IncrementUsage(ctx context.Context, userID int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE users SET usage_count = usage_count + 1 WHERE user_id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (p *Postgres) GetUsageCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT usage_count FROM users WHERE user_id = $1`, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get usage count: %w", err)
	}
	return n, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
