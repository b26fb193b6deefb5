// Package session keeps per-user wizard state between updates.
package session

import "context"

// State is the conversation wizard position.
type State int

const (
	StateIdle State = iota
	StateAwaitFirst
	StateAwaitSecond
)

func (s State) String() string {
	switch s {
	case StateAwaitFirst:
		return "await_first"
	case StateAwaitSecond:
		return "await_second"
	default:
		return "idle"
	}
}

// Session is one user's wizard progress.
type Session struct {
	State      State  `json:"state"`
	SourcePath string `json:"source_path"`
}

// Store persists sessions keyed by user id. A missing session reads back as
// the zero Session (StateIdle).
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Put(ctx context.Context, userID int64, s Session) error
	Reset(ctx context.Context, userID int64) error
}
