package store

import (
	"context"
	"sync"
	"time"
)

// Mem is an in-memory Store. It additionally enforces the status transition
// rules, which makes it useful as a test double that catches lifecycle bugs.
type Mem struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*Job
	order  []int64
	users  map[int64]*User
}

var _ Store = (*Mem)(nil)

func NewMem() *Mem {
	return &Mem{
		jobs:  make(map[int64]*Job),
		users: make(map[int64]*User),
	}
}

func (m *Mem) CreateJob(_ context.Context, userID int64, sourcePath, targetPath, resultPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	j := &Job{
		ID:         m.nextID,
		UserID:     userID,
		SourcePath: sourcePath,
		TargetPath: targetPath,
		ResultPath: resultPath,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	return j.ID, nil
}

func (m *Mem) MarkProcessing(_ context.Context, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != StatusPending {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = StatusProcessing
	j.ProcessingStartedAt = &now
	return nil
}

func (m *Mem) MarkCompleted(_ context.Context, jobID int64) error {
	return m.finish(jobID, StatusCompleted, nil)
}

func (m *Mem) MarkFailed(_ context.Context, jobID int64, errMsg string) error {
	return m.finish(jobID, StatusFailed, &errMsg)
}

func (m *Mem) finish(jobID int64, st Status, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != StatusProcessing {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = st
	j.ErrorMessage = errMsg
	j.ProcessingFinishedAt = &now
	return nil
}

func (m *Mem) ListPendingJobs(_ context.Context) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for _, id := range m.order {
		if j := m.jobs[id]; j.Status == StatusPending {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *Mem) RegisterUserIfAbsent(_ context.Context, userID int64, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = &User{ID: userID, Handle: handle}
	}
	return nil
}

func (m *Mem) IncrementUsage(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.UsageCount++
	return nil
}

func (m *Mem) GetUsageCount(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.UsageCount, nil
}

// GetJob returns a copy of the stored job. Test helper.
func (m *Mem) GetJob(jobID int64) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}
