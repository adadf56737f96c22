package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAgeingWarmup pre-computes ageing summaries into the cache.
	TaskAgeingWarmup = "ageing:warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// AgeingWarmupPayload selects which sides to warm; empty means both.
type AgeingWarmupPayload struct {
	Sides []string `json:"sides,omitempty"`
}

// NewAgeingWarmupTask constructs an Asynq task for cache warmup.
func NewAgeingWarmupTask(payload AgeingWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAgeingWarmup, data), nil
}

// IdempotencyCleanupPayload bounds the retention window in hours.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key pruning.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
