// Package sweeper runs the periodic tile cache expiry sweep in the
// background. Expired rows are already invisible to readers (freshness is
// checked on lookup), so the sweep is purely a space reclamation job and can
// run at a relaxed cadence.
package sweeper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Sweeping is the subset of the tile service the sweeper needs.
type Sweeping interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired tile cache rows.
type Sweeper struct {
	scheduler *gocron.Scheduler
	tiles     Sweeping
	interval  time.Duration
}

// New constructs a Sweeper that runs every interval. Intervals under one
// minute are coerced to one minute.
func New(tiles Sweeping, interval time.Duration) *Sweeper {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		tiles:     tiles,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the scheduler asynchronously.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.Every(int(s.interval.Minutes())).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		deleted, err := s.tiles.SweepExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("tile cache sweep failed")
			return
		}
		if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("tile cache sweep completed")
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future runs. In-flight sweeps
// finish on their own deadline.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
