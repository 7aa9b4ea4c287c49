package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	auction "auction-engine/internal/auctionService"
	bidding "auction-engine/internal/biddingService"
	model "auction-engine/internal/models"
	settlement "auction-engine/internal/settlementService"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_services.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(auctionID, buyerID string, amount int64) (bidding.Placement, error)
	GetBidsForAuction(auctionID string) ([]model.Bid, error)
}

type AuctionServiceInterface interface {
	CreateAuction(submitterID, title string, minimumBid int64, endsAt time.Time) (model.Auction, error)
	Extend(auctionID string, endsAt time.Time) (model.Auction, error)
	GetState(auctionID string) (auction.State, error)
}

type WalletServiceInterface interface {
	Credit(buyerID string, amount int64, idempotencyKey string) (model.Wallet, error)
	GetWallet(buyerID string) (model.Wallet, error)
}

type SettlementServiceInterface interface {
	ConsumeGrant(grantID string) (settlement.DownloadAccess, error)
	GrantForAuction(auctionID string) (model.ContentGrant, error)
}

type AuctionHandler struct {
	bidding     BiddingServiceInterface
	auctions    AuctionServiceInterface
	wallets     WalletServiceInterface
	settlements SettlementServiceInterface
}

func NewAuctionHandler(bidding BiddingServiceInterface, auctions AuctionServiceInterface, wallets WalletServiceInterface, settlements SettlementServiceInterface) *AuctionHandler {
	return &AuctionHandler{
		bidding:     bidding,
		auctions:    auctions,
		wallets:     wallets,
		settlements: settlements,
	}
}

// RecordBidHandler handles POST /bids
func (h *AuctionHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	placement, err := h.bidding.PlaceBid(req.AuctionID, req.BuyerID, req.Amount)
	if err != nil {
		// Too-low and too-late bids are expected outcomes: the response
		// carries the current true highest bid so the caller knows what to
		// beat. Everything else is a real failure.
		reason := rejectionReason(err)
		if reason == "" {
			status, message := helpers.MapErrorToHTTP(err)
			utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
			utils.Error("RecordBidHandler: failed to place bid", map[string]any{
				"auction_id": req.AuctionID,
				"buyer_id":   req.BuyerID,
				"error":      err.Error(),
			})
			return
		}

		status, _ := helpers.MapErrorToHTTP(err)
		resp := helpers.BidResponse{
			Accepted:          false,
			NewHighest:        placement.HighestBid,
			NewHighestDisplay: helpers.DisplayAmount(placement.HighestBid),
			Reason:            reason,
		}
		utils.JSONResponse(c, status, resp, "bid rejected")
		utils.Info("RecordBidHandler: bid rejected", map[string]any{
			"auction_id": req.AuctionID,
			"buyer_id":   req.BuyerID,
			"amount":     req.Amount,
			"reason":     reason,
		})
		return
	}

	resp := helpers.BidResponse{
		Accepted:          true,
		BidID:             placement.Bid.BidID,
		NewHighest:        placement.HighestBid,
		NewHighestDisplay: helpers.DisplayAmount(placement.HighestBid),
	}
	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     placement.Bid.BidID,
		"auction_id": req.AuctionID,
		"buyer_id":   req.BuyerID,
		"amount":     req.Amount,
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return "BidTooLow"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return "AuctionClosed"
	default:
		return ""
	}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", fmt.Errorf("ends_at: %w", err))
		return
	}

	a, err := h.auctions.CreateAuction(req.SubmitterID, req.Title, req.MinimumBid, endsAt)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CreateAuctionHandler: failed to create auction", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, a, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":  a.AuctionID,
		"minimum_bid": a.MinimumBid,
		"ends_at":     a.EndsAt.Format(time.RFC3339),
	})
}

// ExtendAuctionHandler handles POST /auctions/:auction_id/extend
func (h *AuctionHandler) ExtendAuctionHandler(c *gin.Context) {
	var req helpers.ExtendAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ExtendAuctionHandler", err)
		return
	}

	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		helpers.HandleBindError(c, "ExtendAuctionHandler", fmt.Errorf("ends_at: %w", err))
		return
	}

	auctionID := c.Param("auction_id")
	a, err := h.auctions.Extend(auctionID, endsAt)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ExtendAuctionHandler: failed to extend auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction extended successfully")
	helpers.LogSuccess("ExtendAuctionHandler", "auction extended successfully", map[string]any{
		"auction_id": a.AuctionID,
		"ends_at":    a.EndsAt.Format(time.RFC3339),
	})
}

// GetAuctionStateHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionStateHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.auctions.GetState(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionStateHandler: error retrieving auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	a := state.Auction
	resp := helpers.AuctionStateResponse{
		AuctionID:         a.AuctionID,
		Title:             a.Title,
		Status:            string(a.Status),
		MinimumBid:        a.MinimumBid,
		HighestBid:        a.CurrentHighestBid,
		HighestBidDisplay: helpers.DisplayAmount(a.CurrentHighestBid),
		HighestBidder:     a.CurrentHighestBidder,
		BidCount:          a.BidCount,
		EndsAt:            a.EndsAt.UTC().Format(time.RFC3339),
		TimeRemainingSec:  int64(state.TimeRemaining.Seconds()),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auction state retrieved successfully")
}

// GetAuctionBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetAuctionBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.bidding.GetBidsForAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionBidsHandler: error retrieving bids", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}
	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetAuctionBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetWalletHandler handles GET /wallets/:buyer_id
func (h *AuctionHandler) GetWalletHandler(c *gin.Context) {
	buyerID := c.Param("buyer_id")
	w, err := h.wallets.GetWallet(buyerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWalletHandler: error retrieving wallet", map[string]any{
			"buyer_id": buyerID,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, walletResponse(w), "wallet retrieved successfully")
}

// TopUpHandler handles POST /wallets/:buyer_id/topup. It is the inbound
// surface for the external payment-gateway collaborator; the idempotency key
// guards against duplicated callbacks.
func (h *AuctionHandler) TopUpHandler(c *gin.Context) {
	var req helpers.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "TopUpHandler", err)
		return
	}

	buyerID := c.Param("buyer_id")
	w, err := h.wallets.Credit(buyerID, req.Amount, req.IdempotencyKey)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("TopUpHandler: failed to credit wallet", map[string]any{
			"buyer_id": buyerID,
			"error":    err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, walletResponse(w), "wallet credited successfully")
	helpers.LogSuccess("TopUpHandler", "wallet credited successfully", map[string]any{
		"buyer_id": buyerID,
		"amount":   req.Amount,
	})
}

// ConsumeGrantHandler handles POST /grants/:grant_id/download
func (h *AuctionHandler) ConsumeGrantHandler(c *gin.Context) {
	grantID := c.Param("grant_id")
	access, err := h.settlements.ConsumeGrant(grantID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Info("ConsumeGrantHandler: grant access denied", map[string]any{
			"grant_id": grantID,
			"error":    err.Error(),
		})
		return
	}

	resp := helpers.DownloadAccessResponse{
		Token:              access.Token,
		AuctionID:          access.AuctionID,
		ExpiresAt:          access.ExpiresAt.UTC().Format(time.RFC3339),
		DownloadsRemaining: access.DownloadsRemaining,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "download access granted")
	helpers.LogSuccess("ConsumeGrantHandler", "download access granted", map[string]any{
		"grant_id":   grantID,
		"auction_id": access.AuctionID,
		"remaining":  access.DownloadsRemaining,
	})
}

// GetAuctionGrantHandler handles GET /auctions/:auction_id/grant
func (h *AuctionHandler) GetAuctionGrantHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	g, err := h.settlements.GrantForAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Info("GetAuctionGrantHandler: no grant for auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.GrantResponse{
		GrantID:            g.GrantID,
		AuctionID:          g.AuctionID,
		BuyerID:            g.BuyerID,
		ExpiresAt:          g.ExpiresAt.UTC().Format(time.RFC3339),
		DownloadsRemaining: g.MaxDownloads - g.DownloadsUsed,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "grant retrieved successfully")
}

func walletResponse(w model.Wallet) helpers.WalletResponse {
	return helpers.WalletResponse{
		BuyerID:           w.BuyerID,
		Balance:           w.Balance,
		BalanceDisplay:    helpers.DisplayAmount(w.Balance),
		TotalSpent:        w.TotalSpent,
		TotalSpentDisplay: helpers.DisplayAmount(w.TotalSpent),
	}
}
