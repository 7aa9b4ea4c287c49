package helpers

// Request/Response DTOs. Amounts cross the wire as integer minor currency
// units; *_display fields carry the scaled two-decimal string for UIs.

type PlaceBidRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	BuyerID   string `json:"buyer_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	Accepted          bool   `json:"accepted"`
	BidID             string `json:"bid_id,omitempty"`
	NewHighest        int64  `json:"new_highest"`
	NewHighestDisplay string `json:"new_highest_display"`
	Reason            string `json:"reason,omitempty"`
}

type CreateAuctionRequest struct {
	SubmitterID string `json:"submitter_id" binding:"required"`
	Title       string `json:"title"`
	MinimumBid  int64  `json:"minimum_bid" binding:"required,gt=0"`
	EndsAt      string `json:"ends_at" binding:"required"` // RFC 3339
}

type ExtendAuctionRequest struct {
	EndsAt string `json:"ends_at" binding:"required"` // RFC 3339
}

type AuctionStateResponse struct {
	AuctionID         string `json:"auction_id"`
	Title             string `json:"title,omitempty"`
	Status            string `json:"status"`
	MinimumBid        int64  `json:"minimum_bid"`
	HighestBid        int64  `json:"highest_bid"`
	HighestBidDisplay string `json:"highest_bid_display"`
	HighestBidder     string `json:"highest_bidder,omitempty"`
	BidCount          int    `json:"bid_count"`
	EndsAt            string `json:"ends_at"`
	TimeRemainingSec  int64  `json:"time_remaining_sec"`
}

type TopUpRequest struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

type WalletResponse struct {
	BuyerID           string `json:"buyer_id"`
	Balance           int64  `json:"balance"`
	BalanceDisplay    string `json:"balance_display"`
	TotalSpent        int64  `json:"total_spent"`
	TotalSpentDisplay string `json:"total_spent_display"`
}

type GrantResponse struct {
	GrantID            string `json:"grant_id"`
	AuctionID          string `json:"auction_id"`
	BuyerID            string `json:"buyer_id"`
	ExpiresAt          string `json:"expires_at"`
	DownloadsRemaining int    `json:"downloads_remaining"`
}

type DownloadAccessResponse struct {
	Token              string `json:"token"`
	AuctionID          string `json:"auction_id"`
	ExpiresAt          string `json:"expires_at"`
	DownloadsRemaining int    `json:"downloads_remaining"`
}
