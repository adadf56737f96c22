package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/ageing"
)

// AgeingWarmupJob refreshes the cached ageing summaries so the first
// dashboard hit after a quiet night does not pay the full scan.
type AgeingWarmupJob struct {
	Ageing *ageing.Service
	Logger *slog.Logger
}

// NewAgeingWarmupJob wires dependencies for the warmup handler.
func NewAgeingWarmupJob(svc *ageing.Service, logger *slog.Logger) *AgeingWarmupJob {
	return &AgeingWarmupJob{Ageing: svc, Logger: logger}
}

// Handle processes ageing warmup tasks.
func (j *AgeingWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ageing == nil {
		return errors.New("ageing warmup: handler not configured")
	}
	var payload AgeingWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	started := time.Now()
	logger.Info("starting ageing warmup")

	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := j.Ageing.Warm(jobCtx); err != nil {
		logger.Error("ageing warmup", slog.Any("error", err))
		return err
	}

	logger.Info("completed ageing warmup", slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *AgeingWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAgeingWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAgeingWarmup))
}
