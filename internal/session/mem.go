package session

import (
	"context"
	"sync"
)

// Mem keeps sessions in a process-local map.
type Mem struct {
	mu sync.Mutex
	m  map[int64]Session
}

var _ Store = (*Mem)(nil)

func NewMem() *Mem {
	return &Mem{m: make(map[int64]Session)}
}

func (s *Mem) Get(_ context.Context, userID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[userID], nil
}

func (s *Mem) Put(_ context.Context, userID int64, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = sess
	return nil
}

func (s *Mem) Reset(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}
