package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	auction "auction-engine/internal/auctionService"
	bidding "auction-engine/internal/biddingService"
	model "auction-engine/internal/models"
	settlement "auction-engine/internal/settlementService"
	"auction-engine/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type handlerMocks struct {
	bidding     *MockBiddingServiceInterface
	auctions    *MockAuctionServiceInterface
	wallets     *MockWalletServiceInterface
	settlements *MockSettlementServiceInterface
}

func setupRouter(t *testing.T) (*gin.Engine, handlerMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mocks := handlerMocks{
		bidding:     NewMockBiddingServiceInterface(ctrl),
		auctions:    NewMockAuctionServiceInterface(ctrl),
		wallets:     NewMockWalletServiceInterface(ctrl),
		settlements: NewMockSettlementServiceInterface(ctrl),
	}
	h := NewAuctionHandler(mocks.bidding, mocks.auctions, mocks.wallets, mocks.settlements)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", h.RecordBidHandler)
	router.GET("/auctions/:auction_id", h.GetAuctionStateHandler)
	router.GET("/auctions/:auction_id/grant", h.GetAuctionGrantHandler)
	router.GET("/wallets/:buyer_id", h.GetWalletHandler)
	router.POST("/wallets/:buyer_id/topup", h.TopUpHandler)
	router.POST("/grants/:grant_id/download", h.ConsumeGrantHandler)
	return router, mocks
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

// Test RecordBidHandler
func TestRecordBidHandler(t *testing.T) {
	t.Run("success_valid_bid", func(t *testing.T) {
		router, mocks := setupRouter(t)

		bidID := uuid.NewString()
		mocks.bidding.EXPECT().
			PlaceBid("auction1", "buyer1", int64(600)).
			Return(bidding.Placement{
				Bid:           model.Bid{BidID: bidID, AuctionID: "auction1", BuyerID: "buyer1", Amount: 600, Accepted: true},
				Accepted:      true,
				HighestBid:    600,
				HighestBidder: "buyer1",
			}, nil)

		w, envelope := doJSON(t, router, http.MethodPost, "/bids", helpers.PlaceBidRequest{
			AuctionID: "auction1",
			BuyerID:   "buyer1",
			Amount:    600,
		})

		require.Equal(t, http.StatusCreated, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, true, data["accepted"])
		require.Equal(t, bidID, data["bid_id"])
		require.Equal(t, float64(600), data["new_highest"])
		require.Equal(t, "6.00", data["new_highest_display"])
	})

	t.Run("bid_too_low_returns_current_highest", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.bidding.EXPECT().
			PlaceBid("auction1", "buyer2", int64(500)).
			Return(bidding.Placement{
				Accepted:      false,
				HighestBid:    500,
				HighestBidder: "buyer1",
			}, fmt.Errorf("bidding: %w", auctionerrors.ErrBidTooLow))

		w, envelope := doJSON(t, router, http.MethodPost, "/bids", helpers.PlaceBidRequest{
			AuctionID: "auction1",
			BuyerID:   "buyer2",
			Amount:    500,
		})

		require.Equal(t, http.StatusConflict, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, false, data["accepted"])
		require.Equal(t, "BidTooLow", data["reason"])
		require.Equal(t, float64(500), data["new_highest"])
	})

	t.Run("auction_closed", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.bidding.EXPECT().
			PlaceBid("auction1", "buyer2", int64(700)).
			Return(bidding.Placement{HighestBid: 600}, fmt.Errorf("bidding: %w", auctionerrors.ErrAuctionClosed))

		w, envelope := doJSON(t, router, http.MethodPost, "/bids", helpers.PlaceBidRequest{
			AuctionID: "auction1",
			BuyerID:   "buyer2",
			Amount:    700,
		})

		require.Equal(t, http.StatusGone, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, "AuctionClosed", data["reason"])
	})

	t.Run("invalid_json", func(t *testing.T) {
		router, _ := setupRouter(t)

		w, envelope := doJSON(t, router, http.MethodPost, "/bids", `{invalid json}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid request payload", envelope["message"])
	})

	t.Run("missing_fields", func(t *testing.T) {
		router, _ := setupRouter(t)

		w, _ := doJSON(t, router, http.MethodPost, "/bids", helpers.PlaceBidRequest{BuyerID: "buyer1", Amount: 600})
		require.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = doJSON(t, router, http.MethodPost, "/bids", helpers.PlaceBidRequest{AuctionID: "auction1", BuyerID: "buyer1"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Test GetAuctionStateHandler
func TestGetAuctionStateHandler(t *testing.T) {
	t.Run("open_auction", func(t *testing.T) {
		router, mocks := setupRouter(t)

		ends := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
		mocks.auctions.EXPECT().
			GetState("auction1").
			Return(auction.State{
				Auction: model.Auction{
					AuctionID:            "auction1",
					Status:               model.StatusOpen,
					MinimumBid:           500,
					CurrentHighestBid:    600,
					CurrentHighestBidder: "buyer1",
					BidCount:             2,
					EndsAt:               ends,
				},
				TimeRemaining: 30 * time.Minute,
			}, nil)

		w, envelope := doJSON(t, router, http.MethodGet, "/auctions/auction1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, "OPEN", data["status"])
		require.Equal(t, float64(600), data["highest_bid"])
		require.Equal(t, "6.00", data["highest_bid_display"])
		require.Equal(t, "buyer1", data["highest_bidder"])
		require.Equal(t, float64(1800), data["time_remaining_sec"])
	})

	t.Run("not_found", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.auctions.EXPECT().
			GetState("missing").
			Return(auction.State{}, fmt.Errorf("auction: %w", auctionerrors.ErrAuctionNotFound))

		w, _ := doJSON(t, router, http.MethodGet, "/auctions/missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test TopUpHandler
func TestTopUpHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.wallets.EXPECT().
			Credit("buyer1", int64(1000), "cb-1").
			Return(model.Wallet{BuyerID: "buyer1", Balance: 1000}, nil)

		w, envelope := doJSON(t, router, http.MethodPost, "/wallets/buyer1/topup", helpers.TopUpRequest{
			Amount:         1000,
			IdempotencyKey: "cb-1",
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, float64(1000), data["balance"])
		require.Equal(t, "10.00", data["balance_display"])
	})

	t.Run("missing_idempotency_key", func(t *testing.T) {
		router, _ := setupRouter(t)

		w, _ := doJSON(t, router, http.MethodPost, "/wallets/buyer1/topup", helpers.TopUpRequest{Amount: 1000})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Test GetWalletHandler
func TestGetWalletHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.wallets.EXPECT().
			GetWallet("buyer1").
			Return(model.Wallet{BuyerID: "buyer1", Balance: 400, TotalSpent: 600}, nil)

		w, envelope := doJSON(t, router, http.MethodGet, "/wallets/buyer1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, float64(400), data["balance"])
		require.Equal(t, float64(600), data["total_spent"])
		require.Equal(t, "6.00", data["total_spent_display"])
	})

	t.Run("not_found", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.wallets.EXPECT().
			GetWallet("nobody").
			Return(model.Wallet{}, fmt.Errorf("wallet: %w", auctionerrors.ErrWalletNotFound))

		w, _ := doJSON(t, router, http.MethodGet, "/wallets/nobody", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test GetAuctionGrantHandler
func TestGetAuctionGrantHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, mocks := setupRouter(t)

		grantID := uuid.NewString()
		mocks.settlements.EXPECT().
			GrantForAuction("auction1").
			Return(model.ContentGrant{
				GrantID:       grantID,
				AuctionID:     "auction1",
				BuyerID:       "buyerA",
				ExpiresAt:     time.Now().UTC().Add(72 * time.Hour),
				MaxDownloads:  3,
				DownloadsUsed: 1,
			}, nil)

		w, envelope := doJSON(t, router, http.MethodGet, "/auctions/auction1/grant", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, grantID, data["grant_id"])
		require.Equal(t, "buyerA", data["buyer_id"])
		require.Equal(t, float64(2), data["downloads_remaining"])
	})

	t.Run("no_grant_yet", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.settlements.EXPECT().
			GrantForAuction("auction1").
			Return(model.ContentGrant{}, fmt.Errorf("settlement: %w", auctionerrors.ErrGrantNotFound))

		w, _ := doJSON(t, router, http.MethodGet, "/auctions/auction1/grant", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Test ConsumeGrantHandler
func TestConsumeGrantHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, mocks := setupRouter(t)

		token := uuid.NewString()
		mocks.settlements.EXPECT().
			ConsumeGrant("grant1").
			Return(settlement.DownloadAccess{
				Token:              token,
				AuctionID:          "auction1",
				ExpiresAt:          time.Now().UTC().Add(5 * time.Minute),
				DownloadsRemaining: 2,
			}, nil)

		w, envelope := doJSON(t, router, http.MethodPost, "/grants/grant1/download", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := envelope["data"].(map[string]any)
		require.Equal(t, token, data["token"])
		require.Equal(t, float64(2), data["downloads_remaining"])
	})

	t.Run("exhausted", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.settlements.EXPECT().
			ConsumeGrant("grant1").
			Return(settlement.DownloadAccess{}, fmt.Errorf("settlement: %w", auctionerrors.ErrGrantExhausted))

		w, _ := doJSON(t, router, http.MethodPost, "/grants/grant1/download", nil)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		router, mocks := setupRouter(t)

		mocks.settlements.EXPECT().
			ConsumeGrant("grant1").
			Return(settlement.DownloadAccess{}, fmt.Errorf("settlement: %w", auctionerrors.ErrGrantExpired))

		w, _ := doJSON(t, router, http.MethodPost, "/grants/grant1/download", nil)
		require.Equal(t, http.StatusGone, w.Code)
	})
}
