package store

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a task. Valid transitions are
// pending -> processing -> completed|failed; nothing else.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one user-submitted request to run the transform on two inputs.
type Job struct {
	ID                   int64
	UserID               int64
	SourcePath           string
	TargetPath           string
	ResultPath           string
	Status               Status
	ErrorMessage         *string
	CreatedAt            time.Time
	ProcessingStartedAt  *time.Time
	ProcessingFinishedAt *time.Time
}

// User is a chat-platform user. Never deleted; usage_count only grows.
type User struct {
	ID         int64
	Handle     string
	UsageCount int
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the durable record of users and tasks. Every method issues a
// single statement against the backing store.
type Store interface {
	CreateJob(ctx context.Context, userID int64, sourcePath, targetPath, resultPath string) (int64, error)
	MarkProcessing(ctx context.Context, jobID int64) error
	MarkCompleted(ctx context.Context, jobID int64) error
	MarkFailed(ctx context.Context, jobID int64, errMsg string) error
	// ListPendingJobs returns pending jobs in insertion order. Used only by
	// the startup recovery scan.
	ListPendingJobs(ctx context.Context) ([]Job, error)

	RegisterUserIfAbsent(ctx context.Context, userID int64, handle string) error
	IncrementUsage(ctx context.Context, userID int64) error
	GetUsageCount(ctx context.Context, userID int64) (int, error)
}
