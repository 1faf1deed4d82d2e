package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/infra/metrics"
)

const (
	defaultInterval      = time.Minute
	bookingPendingMaxAge = 10 * time.Minute
	cardPendingMaxAge    = 2 * time.Hour
)

type BookingSweeper interface {
	CancelStalePending(ctx context.Context, cutoff time.Time) (int, error)
	CancelExpiredBooked(ctx context.Context) (int, error)
	FinishStaleInService(ctx context.Context) (int, error)
}

type CardSweeper interface {
	CancelStalePending(ctx context.Context, cutoff time.Time) (int, error)
	CorrectStatuses(ctx context.Context) (int, error)
}

// Sweeper runs the periodic housekeeping jobs: unpaid bookings and cards are
// cancelled, past bookings closed and card statuses brought in line with
// their validity dates.
type Sweeper struct {
	bookings BookingSweeper
	cards    CardSweeper
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewSweeper(bookings BookingSweeper, cards CardSweeper, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		bookings: bookings,
		cards:    cards,
		interval: interval,
		log:      log.With().Str("component", "Sweeper").Logger(),
		now:      time.Now,
	}
}

// Start sweeps once, then on every tick until ctx is done.
func (w *Sweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("sweeper started")
	w.RunOnce(ctx)

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("sweeper stopped")
			return
		case <-t.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job and returns the number of records each touched.
// A failing job is logged and does not stop the others.
func (w *Sweeper) RunOnce(ctx context.Context) map[string]int {
	now := w.now()
	jobs := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"booking_cancel_pending", func(ctx context.Context) (int, error) {
			return w.bookings.CancelStalePending(ctx, now.Add(-bookingPendingMaxAge))
		}},
		{"booking_cancel_expired", w.bookings.CancelExpiredBooked},
		{"booking_finish_stale", w.bookings.FinishStaleInService},
		{"card_cancel_pending", func(ctx context.Context) (int, error) {
			return w.cards.CancelStalePending(ctx, now.Add(-cardPendingMaxAge))
		}},
		{"card_correct_status", w.cards.CorrectStatuses},
	}

	done := make(map[string]int, len(jobs))
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		n, err := j.run(ctx)
		if err != nil {
			w.log.Error().Err(err).Str("job", j.name).Msg("sweep job failed")
			continue
		}
		done[j.name] = n
		metrics.AddSweeperActions(j.name, n)
		if n > 0 {
			w.log.Info().Str("job", j.name).Int("count", n).Msg("sweep job done")
		}
	}
	return done
}
