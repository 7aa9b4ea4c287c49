package main

import (
	auction "auction-engine/internal/auctionService"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/config"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	settlement "auction-engine/internal/settlementService"
	wallet "auction-engine/internal/walletService"
	"auction-engine/services/auction/handler"
	"auction-engine/utils"

	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Getenv("AUCTION_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	utils.SetLevel(cfg.LogLevel)

	repo := repository.NewMemoryRepo()

	dispatcher := notify.NewAsyncDispatcher(notify.LogSender{}, cfg.Notify.QueueSize)
	defer dispatcher.Close()

	walletSvc := wallet.NewWalletService(repo)
	biddingSvc := bidding.NewBiddingService(repo, dispatcher)
	settlementSvc := settlement.NewSettlementService(walletSvc, repo, repo, dispatcher, settlement.GrantPolicy{
		MaxDownloads: cfg.Grant.MaxDownloads,
		TTL:          cfg.Grant.TTL.Duration,
		AccessTTL:    cfg.Grant.AccessTTL.Duration,
	})
	auctionSvc := auction.NewAuctionService(repo, settlementSvc)
	sweeper := auction.NewSweeper(auctionSvc, cfg.Sweep.Interval.Duration)

	seedDemoAuctions(auctionSvc)

	h := handler.NewAuctionHandler(biddingSvc, auctionSvc, walletSvc, settlementSvc)
	router := server.SetupRouter(h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Fatal("server exited with error", map[string]any{"error": err.Error()})
	}
	utils.Info("server stopped", nil)
}

// seedDemoAuctions parses AUCTION_DEMO_SEED as a duration and seeds a few
// sample auctions when set, which keeps local runs usable without an admin
// client.
func seedDemoAuctions(svc *auction.AuctionService) {
	raw := os.Getenv("AUCTION_DEMO_SEED")
	if raw == "" {
		return
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		utils.Warn("ignoring invalid AUCTION_DEMO_SEED", map[string]any{"value": raw})
		return
	}

	seeds := []struct {
		submitterID string
		title       string
		minimumBid  int64
	}{
		{"submitter1", "rooftop skyline set", 500},
		{"submitter2", "backstage footage", 1000},
		{"submitter3", "night market series", 750},
	}
	for _, s := range seeds {
		if _, err := svc.CreateAuction(s.submitterID, s.title, s.minimumBid, time.Now().Add(dur)); err != nil {
			utils.Warn("failed to seed demo auction", map[string]any{"title": s.title, "error": err.Error()})
		}
	}
}
