package auction

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	settlement "auction-engine/internal/settlementService"
	"auction-engine/utils"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// State is the read-model for one auction, as exposed to callers.
type State struct {
	Auction       model.Auction
	TimeRemaining time.Duration
}

// AuctionService owns the auction lifecycle: creation, the OPEN -> SETTLING
// -> {WON, UNSOLD} state machine, and the expiry-driven settlement walk.
//
// Settlement is serialized per auction: the sweeper and opportunistic
// settle-on-read checks may both arrive, but only one settler at a time walks
// the candidate list, so a settler can never debit or grant after another has
// already moved the auction to a terminal status.
type AuctionService struct {
	repo        repository.AuctionDB
	settlements *settlement.SettlementService
	now         func() time.Time

	settleMu    sync.Mutex
	settleLocks map[string]*sync.Mutex
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, settlements *settlement.SettlementService) *AuctionService {
	return &AuctionService{
		repo:        repo,
		settlements: settlements,
		now:         time.Now,
		settleLocks: make(map[string]*sync.Mutex),
	}
}

// settleLock returns the per-auction settlement mutex, creating it on first
// use.
func (s *AuctionService) settleLock(auctionID string) *sync.Mutex {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	mu, ok := s.settleLocks[auctionID]
	if !ok {
		mu = &sync.Mutex{}
		s.settleLocks[auctionID] = mu
	}
	return mu
}

// CreateAuction opens a new auction for a submitted content post.
func (s *AuctionService) CreateAuction(submitterID, title string, minimumBid int64, endsAt time.Time) (model.Auction, error) {
	if submitterID == "" {
		return model.Auction{}, fmt.Errorf("auction: %w - empty submitter ID", auctionerrors.ErrInvalidBid)
	}
	if minimumBid <= 0 {
		return model.Auction{}, fmt.Errorf("auction: %w - non-positive minimum bid", auctionerrors.ErrInvalidAmount)
	}
	if !endsAt.After(s.now()) {
		return model.Auction{}, fmt.Errorf("auction: %w - deadline not in the future", auctionerrors.ErrInvalidAmount)
	}

	a := model.Auction{
		AuctionID:   utils.GenerateID(),
		SubmitterID: submitterID,
		Title:       title,
		Status:      model.StatusOpen,
		MinimumBid:  minimumBid,
		EndsAt:      endsAt.UTC(),
	}
	if err := s.repo.CreateAuction(a); err != nil {
		return model.Auction{}, fmt.Errorf("auction: failed to create: %w", err)
	}
	return a, nil
}

// Extend moves the deadline forward. This is the only path that changes
// EndsAt and exists for explicit admin action; nothing extends implicitly.
func (s *AuctionService) Extend(auctionID string, endsAt time.Time) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("auction: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	a, err := s.repo.ExtendAuction(auctionID, endsAt.UTC())
	if err != nil {
		return model.Auction{}, fmt.Errorf("auction: failed to extend %s: %w", auctionID, err)
	}
	return a, nil
}

// GetState returns the auction's current status, highest bid and time
// remaining. Reading an expired OPEN auction opportunistically triggers
// settlement; the conditional transition keeps that safe under any number of
// concurrent readers and sweepers.
func (s *AuctionService) GetState(auctionID string) (State, error) {
	if auctionID == "" {
		return State{}, fmt.Errorf("auction: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	a, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return State{}, fmt.Errorf("auction: failed to get %s: %w", auctionID, err)
	}

	now := s.now().UTC()
	if a.Status == model.StatusOpen && !now.Before(a.EndsAt) {
		if err := s.SettleExpired(auctionID); err != nil {
			utils.Error("opportunistic settlement failed", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
		}
		if a, err = s.repo.GetAuction(auctionID); err != nil {
			return State{}, fmt.Errorf("auction: failed to reload %s: %w", auctionID, err)
		}
	}

	remaining := a.EndsAt.Sub(now)
	if a.Status != model.StatusOpen || remaining < 0 {
		remaining = 0
	}
	return State{Auction: a, TimeRemaining: remaining}, nil
}

// SettleExpired drives one auction through settlement. The OPEN -> SETTLING
// conditional transition fires exactly once; every other caller either
// returns immediately or resumes an interrupted SETTLING run, where the
// settlement record and grant uniqueness keep all effects single-shot.
//
// The per-auction lock keeps the whole walk exclusive: without it a second
// settler resuming a SETTLING auction could still be mid-walk when the first
// one exhausts the candidates and marks the auction UNSOLD, and a top-up
// landing in that window would let the late settler debit a terminally
// unsold auction.
func (s *AuctionService) SettleExpired(auctionID string) error {
	mu := s.settleLock(auctionID)
	mu.Lock()
	defer mu.Unlock()

	if a, err := s.repo.GetAuction(auctionID); err != nil {
		return fmt.Errorf("auction: failed to get %s: %w", auctionID, err)
	} else if a.Status == model.StatusOpen && s.now().UTC().Before(a.EndsAt) {
		return nil
	}

	moved, err := s.repo.TransitionStatus(auctionID, model.StatusOpen, model.StatusSettling)
	if err != nil {
		return fmt.Errorf("auction: transition %s to settling: %w", auctionID, err)
	}
	if !moved {
		a, err := s.repo.GetAuction(auctionID)
		if err != nil {
			return fmt.Errorf("auction: failed to get %s: %w", auctionID, err)
		}
		if a.Status != model.StatusSettling {
			return nil
		}
		// resume an interrupted settlement
	}

	a, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return fmt.Errorf("auction: failed to get %s: %w", auctionID, err)
	}

	if a.BidCount == 0 {
		if _, err := s.repo.TransitionStatus(auctionID, model.StatusSettling, model.StatusUnsold); err != nil {
			return fmt.Errorf("auction: transition %s to unsold: %w", auctionID, err)
		}
		utils.Info("auction closed without bids", map[string]any{"auction_id": auctionID})
		return nil
	}

	// Bids are non-binding at placement time, so the nominal winner's funds
	// are not guaranteed at close. Walk the accepted bids from the top down
	// until one candidate's live balance covers their bid.
	candidates, err := s.settlementCandidates(auctionID)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		grant, err := s.settlements.Settle(auctionID, c.BuyerID, c.Amount)
		if errors.Is(err, auctionerrors.ErrInsufficientFunds) {
			utils.Info("settlement candidate cannot cover bid", map[string]any{
				"auction_id": auctionID,
				"buyer_id":   c.BuyerID,
				"amount":     c.Amount,
			})
			continue
		}
		if err != nil {
			return fmt.Errorf("auction: settle %s: %w", auctionID, err)
		}

		if _, err := s.repo.TransitionStatus(auctionID, model.StatusSettling, model.StatusWon); err != nil {
			return fmt.Errorf("auction: transition %s to won: %w", auctionID, err)
		}
		utils.Info("auction won", map[string]any{
			"auction_id": auctionID,
			"buyer_id":   grant.BuyerID,
			"grant_id":   grant.GrantID,
		})
		return nil
	}

	if _, err := s.repo.TransitionStatus(auctionID, model.StatusSettling, model.StatusUnsold); err != nil {
		return fmt.Errorf("auction: transition %s to unsold: %w", auctionID, err)
	}
	utils.Warn("no bidder could cover their bid, auction unsold", map[string]any{
		"auction_id": auctionID,
		"bid_count":  a.BidCount,
	})
	return nil
}

// settlementCandidates returns the accepted bids in descending amount order.
// Ties keep placement order, though accepted amounts strictly increase so
// ties only arise across reloads.
func (s *AuctionService) settlementCandidates(auctionID string) ([]model.Bid, error) {
	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction: failed to load ledger for %s: %w", auctionID, err)
	}

	accepted := bids[:0:0]
	for _, b := range bids {
		if b.Accepted {
			accepted = append(accepted, b)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Amount > accepted[j].Amount })
	return accepted, nil
}
