package bidding

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/utils"
	"errors"
	"fmt"
	"time"
)

// Retry bounds for lost conditional updates. A conflict means another bid
// won the race, so the re-read usually rejects with BidTooLow instead of
// retrying again.
const (
	maxPlaceRetries = 5
	retryBackoff    = 2 * time.Millisecond
)

// Placement is the outcome of a bid attempt. HighestBid/HighestBidder always
// reflect the current true top of the ledger, so a rejected caller can see
// what they must beat.
type Placement struct {
	Bid           model.Bid
	Accepted      bool
	HighestBid    int64
	HighestBidder string
}

// BiddingService owns the bid ledger: validation, linearizable acceptance,
// and outbid dispatch.
type BiddingService struct {
	repo       repository.AuctionDB
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, dispatcher notify.Dispatcher) *BiddingService {
	return &BiddingService{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// PlaceBid validates and records a buyer's bid against an auction. Accepted
// bids update the highest bid through a conditional update retried on
// conflict; too-low and too-late bids are appended to the ledger with
// Accepted=false and returned as expected rejections, never dropped.
func (s *BiddingService) PlaceBid(auctionID, buyerID string, amount int64) (Placement, error) {
	if auctionID == "" || buyerID == "" {
		return Placement{}, fmt.Errorf("bidding: %w - missing auctionID or buyerID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return Placement{}, fmt.Errorf("bidding: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	for attempt := 0; ; attempt++ {
		a, err := s.repo.GetAuction(auctionID)
		if err != nil {
			return Placement{}, fmt.Errorf("bidding: failed to load auction %s: %w", auctionID, err)
		}

		now := s.now().UTC()
		if a.Status != model.StatusOpen || !now.Before(a.EndsAt) {
			return s.reject(a, buyerID, amount, now, auctionerrors.ErrAuctionClosed)
		}
		if tooLow(a, amount) {
			return s.reject(a, buyerID, amount, now, auctionerrors.ErrBidTooLow)
		}

		bid := model.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BuyerID:   buyerID,
			Amount:    amount,
			PlacedAt:  now,
			Accepted:  true,
		}

		prevBidder, err := s.repo.ApplyBid(bid, a.CurrentHighestBid, a.BidCount)
		switch {
		case err == nil:
			// Outbid dispatch happens-after the bid is recorded and never
			// blocks the caller. Self-outbidding raises the bar without an
			// alert.
			if prevBidder != "" && prevBidder != buyerID {
				s.dispatcher.NotifyOutbid(prevBidder, auctionID)
			}
			return Placement{Bid: bid, Accepted: true, HighestBid: amount, HighestBidder: buyerID}, nil

		case errors.Is(err, auctionerrors.ErrConcurrentUpdate):
			if attempt >= maxPlaceRetries {
				return Placement{}, fmt.Errorf("bidding: auction %s too contended: %w", auctionID, err)
			}
			time.Sleep(retryBackoff << attempt)

		case errors.Is(err, auctionerrors.ErrAuctionClosed):
			return s.reject(a, buyerID, amount, now, auctionerrors.ErrAuctionClosed)

		default:
			return Placement{}, fmt.Errorf("bidding: failed to apply bid on auction %s: %w", auctionID, err)
		}
	}
}

// tooLow applies the acceptance rule: the first bid must meet the minimum,
// every later bid must strictly exceed the standing highest.
func tooLow(a model.Auction, amount int64) bool {
	if a.BidCount == 0 {
		return amount < a.MinimumBid
	}
	return amount <= a.CurrentHighestBid
}

// reject appends the audit row and returns the rejection together with the
// current true highest bid.
func (s *BiddingService) reject(a model.Auction, buyerID string, amount int64, now time.Time, cause error) (Placement, error) {
	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: a.AuctionID,
		BuyerID:   buyerID,
		Amount:    amount,
		PlacedAt:  now,
		Accepted:  false,
	}
	if err := s.repo.RecordRejectedBid(bid); err != nil {
		utils.Warn("failed to record rejected bid", map[string]any{
			"auction_id": a.AuctionID,
			"buyer_id":   buyerID,
			"error":      err.Error(),
		})
	}

	p := Placement{
		Bid:           bid,
		HighestBid:    a.CurrentHighestBid,
		HighestBidder: a.CurrentHighestBidder,
	}
	return p, fmt.Errorf("bidding: auction %s highest bid is %d: %w", a.AuctionID, a.CurrentHighestBid, cause)
}

// GetBidsForAuction returns the full ledger for an auction, rejected rows
// included, in placement order.
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("bidding: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("bidding: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}
