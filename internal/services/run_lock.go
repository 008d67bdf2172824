package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const runLockKey = "schedule_sync:lock"

// releaseScript deletes the lock only if it still holds our token, so a run
// that outlived its TTL cannot release a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RunLock is a single-flight lock shared by every replica that writes the
// same fingerprint record.
type RunLock struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRunLock(redisClient *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{redis: redisClient, ttl: ttl}
}

// Acquire returns ErrRunInProgress if another holder has the lock.
func (l *RunLock) Acquire(ctx context.Context) (release func(), err error) {
	token := uuid.NewString()

	locked, err := l.redis.SetNX(ctx, runLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.redis, []string{runLockKey}, token).Err(); err != nil {
			log.Printf("failed to release run lock: %v", err)
		}
	}, nil
}
