package models

import "time"

// AuctionStatus is the lifecycle state of an auction. Transitions are
// one-directional: OPEN -> SETTLING -> {WON, UNSOLD}.
type AuctionStatus string

const (
	StatusOpen     AuctionStatus = "OPEN"
	StatusSettling AuctionStatus = "SETTLING"
	StatusWon      AuctionStatus = "WON"
	StatusUnsold   AuctionStatus = "UNSOLD"
)

// Terminal reports whether the status allows no further transitions.
func (s AuctionStatus) Terminal() bool {
	return s == StatusWon || s == StatusUnsold
}

// Auction is the bidding lifecycle attached to one submitted content post.
// All monetary fields are integer minor currency units (cents).
type Auction struct {
	AuctionID            string        `json:"auction_id"`
	SubmitterID          string        `json:"submitter_id"`
	Title                string        `json:"title"`
	Status               AuctionStatus `json:"status"`
	MinimumBid           int64         `json:"minimum_bid"`
	CurrentHighestBid    int64         `json:"current_highest_bid"`
	CurrentHighestBidder string        `json:"current_highest_bidder,omitempty"`
	BidCount             int           `json:"bid_count"`
	EndsAt               time.Time     `json:"ends_at"`
}

// Bid is a buyer's offer against an auction, immutable once recorded.
// Rejected bids stay in the ledger with Accepted=false for audit.
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BuyerID   string    `json:"buyer_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	Accepted  bool      `json:"accepted"`
}

// Wallet is a buyer's spendable credit balance. Balance never goes negative;
// TotalSpent only grows. Created on first top-up.
type Wallet struct {
	BuyerID    string `json:"buyer_id"`
	Balance    int64  `json:"balance"`
	TotalSpent int64  `json:"total_spent"`
}

// ContentGrant is a scoped, expiring, download-limited right to retrieve the
// winning media. At most one exists per auction.
type ContentGrant struct {
	GrantID       string    `json:"grant_id"`
	AuctionID     string    `json:"auction_id"`
	BuyerID       string    `json:"buyer_id"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxDownloads  int       `json:"max_downloads"`
	DownloadsUsed int       `json:"downloads_used"`
}

// SettlementRecord marks the one applied debit for a settled auction. It is
// the idempotency anchor for settlement retries: once it exists, re-invoking
// settlement must not debit again, only complete a missing grant.
type SettlementRecord struct {
	AuctionID string    `json:"auction_id"`
	BuyerID   string    `json:"buyer_id"`
	Amount    int64     `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}
