package service

import (
	"context"
	"time"

	"invoicing-backend/internal/repository"

	"github.com/rs/zerolog"
)

// OverdueSweeper periodically persists the sent -> overdue transition for
// invoices past their due date. The persisted status is the source of
// truth; Invoice.IsOverdue only covers the display window between sweeps.
type OverdueSweeper struct {
	invoices repository.InvoiceRepository
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewOverdueSweeper(invoices repository.InvoiceRepository, interval time.Duration, logger zerolog.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &OverdueSweeper{
		invoices: invoices,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled, sweeping once immediately and
// then on every tick.
func (s *OverdueSweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and logs the outcome.
func (s *OverdueSweeper) Sweep(ctx context.Context) {
	updated, err := s.invoices.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	if updated > 0 {
		s.logger.Info().Int64("invoices", updated).Msg("marked invoices overdue")
	}
}
