package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
)

const (
	// DefaultSweepCron runs the completion sweep every 15 minutes.
	DefaultSweepCron = "*/15 * * * *"

	sweepTimeout = 2 * time.Minute
)

// RegisterCompletionSweep registers the job that moves confirmed bookings
// whose window has fully passed to COMPLETED. An empty cronExpr falls back
// to DefaultSweepCron.
func (s *Scheduler) RegisterCompletionSweep(store booking.Store, clock clockwork.Clock, cronExpr string) error {
	if store == nil {
		return fmt.Errorf("completion sweep requires a store")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if strings.TrimSpace(cronExpr) == "" {
		cronExpr = DefaultSweepCron
	}

	jobName := "booking_completion_sweep"
	jobLogger := log.With().
		Str("component", "completion_sweep_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	return s.addJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		completed, err := store.CompleteElapsed(ctx, clock.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Completion sweep failed")
			return
		}
		if completed > 0 {
			jobLogger.Info().Int64("completed", completed).Msg("Bookings marked completed")
		}
	})
}
