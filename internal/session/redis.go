package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 24 * time.Hour

// Redis keeps sessions in Redis, surviving bot restarts.
type Redis struct {
	rdb *redis.Client
}

var _ Store = (*Redis)(nil)

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func key(userID int64) string { return fmt.Sprintf("sess:%d", userID) }

func (s *Redis) Get(ctx context.Context, userID int64) (Session, error) {
	raw, err := s.rdb.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *Redis) Put(ctx context.Context, userID int64, sess Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, key(userID), string(b), sessionTTL).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *Redis) Reset(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}
