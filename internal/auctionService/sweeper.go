package auction

import (
	"auction-engine/utils"
	"context"
	"time"
)

// Sweeper periodically settles expired auctions. Settlement is guarded by
// the conditional OPEN -> SETTLING transition, so the sweep may run
// redundantly alongside opportunistic checks on read without harm.
type Sweeper struct {
	service  *AuctionService
	interval time.Duration
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(service *AuctionService, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("expiry sweeper started", map[string]any{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("expiry sweeper stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce settles everything currently due. Errors on individual auctions
// are logged and do not stop the sweep; the next tick retries them.
func (s *Sweeper) SweepOnce() {
	due, err := s.service.repo.ListDueForSettlement(s.service.now().UTC())
	if err != nil {
		utils.Error("sweep failed to list due auctions", map[string]any{"error": err.Error()})
		return
	}

	for _, id := range due {
		if err := s.service.SettleExpired(id); err != nil {
			utils.Error("sweep failed to settle auction", map[string]any{
				"auction_id": id,
				"error":      err.Error(),
			})
		}
	}
}
