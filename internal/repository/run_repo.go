package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bbb-schedule-sync/internal/models"
)

const (
	latestRunKey  = "schedule_sync:runs:latest"
	runHistoryKey = "schedule_sync:runs"
	maxRunHistory = 50
)

// ErrNoRuns is returned when no run has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// RunRepo keeps run history in Redis. The Moodle database is owned by
// Moodle and is never written to.
type RunRepo struct {
	redis *redis.Client
}

func NewRunRepo(redisClient *redis.Client) *RunRepo {
	return &RunRepo{redis: redisClient}
}

func (r *RunRepo) Save(ctx context.Context, run *models.SyncRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, latestRunKey, data, 0)
		pipe.LPush(ctx, runHistoryKey, data)
		pipe.LTrim(ctx, runHistoryKey, 0, maxRunHistory-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepo) Latest(ctx context.Context) (*models.SyncRun, error) {
	data, err := r.redis.Get(ctx, latestRunKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	run := &models.SyncRun{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("failed to decode latest run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 || limit > maxRunHistory {
		limit = maxRunHistory
	}

	raw, err := r.redis.LRange(ctx, runHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*models.SyncRun, 0, len(raw))
	for _, entry := range raw {
		run := &models.SyncRun{}
		if err := json.Unmarshal([]byte(entry), run); err != nil {
			continue // Skip entries written by an incompatible version
		}
		runs = append(runs, run)
	}
	return runs, nil
}
