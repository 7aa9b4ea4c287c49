package server

import (
	handler "auction-engine/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(h *handler.AuctionHandler) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	bids := router.Group("/bids")
	{
		bids.POST("", h.RecordBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("", h.CreateAuctionHandler)
		auctions.GET("/:auction_id", h.GetAuctionStateHandler)
		auctions.GET("/:auction_id/bids", h.GetAuctionBidsHandler)
		auctions.GET("/:auction_id/grant", h.GetAuctionGrantHandler)
		auctions.POST("/:auction_id/extend", h.ExtendAuctionHandler)
	}

	wallets := router.Group("/wallets")
	{
		wallets.GET("/:buyer_id", h.GetWalletHandler)
		wallets.POST("/:buyer_id/topup", h.TopUpHandler)
	}

	grants := router.Group("/grants")
	{
		grants.POST("/:grant_id/download", h.ConsumeGrantHandler)
	}

	return router
}
