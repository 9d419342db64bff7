package workers

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/reelfolio/reelfolio/internal/tasks"
)

// standard 5-field format: minute hour day-of-month month day-of-week
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartCleanupScheduler enqueues the orphan cleanup task on schedule. The
// returned cron must be stopped on shutdown. An empty schedule disables it.
func StartCleanupScheduler(client tasks.Enqueuer, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		logger.Info().Msg("No cleanup schedule configured")
		return nil, nil
	}

	sched, err := scheduleParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(scheduleParser))
	c.Schedule(sched, cron.FuncJob(func() {
		enqueueCleanup(client, logger)
	}))
	c.Start()

	logger.Info().
		Str("schedule", schedule).
		Time("next_run", sched.Next(time.Now())).
		Msg("Cleanup scheduler started")

	return c, nil
}

func enqueueCleanup(client tasks.Enqueuer, logger zerolog.Logger) {
	task, err := tasks.NewCleanupOrphanUploadsTask(DefaultOrphanAge)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create cleanup task")
		return
	}

	// Unique prevents piling up runs while a previous one is still queued
	info, err := client.Enqueue(task, asynq.Unique(time.Hour), asynq.Queue("low"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue cleanup task")
		return
	}

	logger.Info().Str("task_id", info.ID).Msg("Cleanup task enqueued")
}

// NextRun calculates the next run time of a cron schedule, nil when invalid
func NextRun(schedule string, from time.Time) *time.Time {
	if schedule == "" {
		return nil
	}
	sched, err := scheduleParser.Parse(schedule)
	if err != nil {
		return nil
	}
	next := sched.Next(from)
	return &next
}
