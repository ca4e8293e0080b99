package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	WaitingTimeoutInterval = 1 * time.Minute
	PendingPaymentInterval = 2 * time.Minute
	AssignmentInterval     = 2 * time.Minute
)

// Tracker runs the periodic jobs.
type Tracker struct {
	jobs      *Jobs
	scheduler gocron.Scheduler
}

// NewTracker creates the scheduler. A nil locker runs every tick locally.
func NewTracker(jobs *Jobs, locker gocron.Locker) (*Tracker, error) {
	var opts []gocron.SchedulerOption
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}

	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		jobs:      jobs,
		scheduler: scheduler,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (t *Tracker) Start() error {
	_, err := t.scheduler.NewJob(
		gocron.DurationJob(WaitingTimeoutInterval),
		gocron.NewTask(func() {
			result, err := t.jobs.CheckWaitingTimeouts(context.Background())
			if err != nil {
				log.Error().Err(err).Str("job", "check_waiting_timeouts").Msg("job failed")
				return
			}
			log.Info().
				Str("job", "check_waiting_timeouts").
				Int("cancelled", result.Cancelled).
				Int("refreshed", result.Refreshed).
				Int("failed", result.Failed).
				Msg("job finished")
		}),
		gocron.WithName("check_waiting_timeouts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	_, err = t.scheduler.NewJob(
		gocron.DurationJob(PendingPaymentInterval),
		gocron.NewTask(func() {
			result, err := t.jobs.CheckPendingPayments(context.Background())
			if err != nil {
				log.Error().Err(err).Str("job", "check_pending_payments").Msg("job failed")
				return
			}
			log.Info().
				Str("job", "check_pending_payments").
				Int("resolved", result.Resolved).
				Int("expired", result.Expired).
				Int("failed", result.Failed).
				Msg("job finished")
		}),
		gocron.WithName("check_pending_payments"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	_, err = t.scheduler.NewJob(
		gocron.DurationJob(AssignmentInterval),
		gocron.NewTask(func() {
			result, err := t.jobs.AssignPendingDeliveries(context.Background())
			if err != nil {
				log.Error().Err(err).Str("job", "assign_pending_deliveries").Msg("job failed")
				return
			}
			log.Info().
				Str("job", "assign_pending_deliveries").
				Int("assigned", result.Assigned).
				Int("failed", result.Failed).
				Msg("job finished")
		}),
		gocron.WithName("assign_pending_deliveries"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	t.scheduler.Start()
	return nil
}

func (t *Tracker) Stop() error {
	return t.scheduler.Shutdown()
}
