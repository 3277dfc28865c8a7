package background

import (
	"context"
	"log/slog"
	"time"
)

// OverdueMarker flips pending cotisations from past months to overdue.
type OverdueMarker interface {
	MarkOverdue(currentMois string) (int64, error)
}

// OverdueSweeper periodically marks unpaid cotisations from past months as
// overdue. Request paths never change statut this way; the sweep is the only
// writer of "en_retard".
type OverdueSweeper struct {
	cotisations OverdueMarker
	logger      *slog.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(cotisations OverdueMarker, logger *slog.Logger, interval time.Duration) *OverdueSweeper {
	return &OverdueSweeper{
		cotisations: cotisations,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *OverdueSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.stopCh:
			s.logger.Info("overdue sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("overdue sweeper context cancelled")
			return
		}
	}
}

func (s *OverdueSweeper) runSweep() {
	currentMois := time.Now().Format("2006-01")

	updated, err := s.cotisations.MarkOverdue(currentMois)
	if err != nil {
		s.logger.Error("overdue sweep failed", slog.Any("error", err))
		return
	}

	if updated > 0 {
		s.logger.Info("overdue sweep completed",
			slog.String("current_mois", currentMois),
			slog.Int64("marked", updated))
	}
}

// Stop signals the sweeper to stop
func (s *OverdueSweeper) Stop() {
	close(s.stopCh)
}
