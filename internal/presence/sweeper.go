package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const TaskSweepStale = "presence:sweep"

// Sweeper is the part of Service the periodic sweep needs.
type Sweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// asynqLogger routes asynq's logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.logger.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.logger.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.logger.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.logger.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

func newAsynqLogger() asynqLogger {
	return asynqLogger{logger: log.With().Str("component", "asynq").Logger()}
}

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSweepStale, nil, asynq.MaxRetry(1), asynq.Timeout(time.Minute))
}

// HandleSweepTask runs one sweep per task.
func HandleSweepTask(s Sweeper) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := s.SweepStale(ctx)
		if err != nil {
			return fmt.Errorf("sweep stale presence: %w", err)
		}
		log.Debug().Int("flipped", n).Msg("presence sweep finished")
		return nil
	}
}

// StartScheduler enqueues a sweep task every interval. It returns a stop
// function for shutdown.
func StartScheduler(redisURL string, interval time.Duration) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.InfoLevel,
		Logger:   newAsynqLogger(),
	})

	schedule := fmt.Sprintf("@every %s", interval)
	entryID, err := scheduler.Register(schedule, NewSweepTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register sweep schedule: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info().Str("schedule", schedule).Str("entry_id", entryID).Msg("Presence sweep scheduler started")
	return func() { scheduler.Shutdown() }, nil
}

// NewWorker builds the asynq server and mux that execute sweep tasks.
func NewWorker(redisURL string, s Sweeper) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     2,
		ShutdownTimeout: 30 * time.Second,
		Logger:          newAsynqLogger(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			log.Error().Err(err).Str("task_type", task.Type()).Int("retry_count", retried).Msg("Task execution failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSweepStale, HandleSweepTask(s))
	return srv, mux, nil
}

// RunTicker sweeps every interval until ctx is done. It is used when no
// Redis is configured.
func RunTicker(ctx context.Context, s Sweeper, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.SweepStale(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("presence sweep failed")
			}
		}
	}
}
