// Package scheduler runs the background jobs that keep booking state
// current, currently the periodic completion sweep.
package scheduler

import (
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Scheduler wraps a gocron scheduler. Jobs are registered before Start and
// keep running until Stop.
type Scheduler struct {
	inner    gocron.Scheduler
	stopOnce sync.Once
	stopErr  error
}

// New builds a scheduler whose jobs log instead of crash when they panic.
func New() (*Scheduler, error) {
	inner, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner}, nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	log.Info().Msg("Scheduler starting")
	s.inner.Start()
}

// Stop shuts the scheduler down. Safe to call more than once.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.inner.Shutdown()
	})
	return s.stopErr
}

func (s *Scheduler) addJob(name, cronExpr string, task func()) error {
	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()

	wrappedTask := func() {
		jobLogger.Debug().Msg("Scheduler job started")
		task()
		jobLogger.Debug().Msg("Scheduler job completed")
	}

	_, err := s.inner.NewJob(
		gocron.CronJob(strings.TrimSpace(cronExpr), false),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return nil
}
