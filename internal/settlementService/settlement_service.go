package settlement

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	wallet "auction-engine/internal/walletService"
	"auction-engine/utils"
	"fmt"
	"time"
)

// GrantPolicy configures the exclusivity window handed to an auction winner.
type GrantPolicy struct {
	MaxDownloads int
	TTL          time.Duration
	AccessTTL    time.Duration // lifetime of a single download token
}

// DownloadAccess is the short-lived reference handed out per consumed
// download. The token maps to the underlying media at the delivery edge.
type DownloadAccess struct {
	Token              string    `json:"token"`
	AuctionID          string    `json:"auction_id"`
	ExpiresAt          time.Time `json:"expires_at"`
	DownloadsRemaining int       `json:"downloads_remaining"`
}

// SettlementService charges the winner and issues the content grant at
// auction close, exactly once per auction regardless of retries.
type SettlementService struct {
	wallets    *wallet.WalletService
	auctions   repository.AuctionDB
	grants     repository.GrantDB
	dispatcher notify.Dispatcher
	policy     GrantPolicy
	now        func() time.Time
}

// NewSettlementService creates a new SettlementService instance
func NewSettlementService(wallets *wallet.WalletService, auctions repository.AuctionDB, grants repository.GrantDB, dispatcher notify.Dispatcher, policy GrantPolicy) *SettlementService {
	return &SettlementService{
		wallets:    wallets,
		auctions:   auctions,
		grants:     grants,
		dispatcher: dispatcher,
		policy:     policy,
		now:        time.Now,
	}
}

// Settle debits the buyer and issues the grant. On ErrInsufficientFunds the
// caller (the state machine) falls back to the next covering bidder; Settle
// itself never retries against other buyers.
//
// Re-entry is idempotent: if the auction already carries a settlement record
// the debit is skipped and only the missing grant is completed, for the
// recorded winner even when the caller passed a different candidate.
func (s *SettlementService) Settle(auctionID, buyerID string, amount int64) (model.ContentGrant, error) {
	rec, applied, err := s.wallets.Debit(auctionID, buyerID, amount)
	if err != nil {
		return model.ContentGrant{}, fmt.Errorf("settlement: auction %s: %w", auctionID, err)
	}

	now := s.now().UTC()
	grant := model.ContentGrant{
		GrantID:      utils.GenerateID(),
		AuctionID:    auctionID,
		BuyerID:      rec.BuyerID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.policy.TTL),
		MaxDownloads: s.policy.MaxDownloads,
	}
	stored, created, err := s.grants.CreateGrant(grant)
	if err != nil {
		return model.ContentGrant{}, fmt.Errorf("settlement: auction %s: failed to create grant: %w", auctionID, err)
	}

	if created {
		s.dispatcher.NotifyWon(rec.BuyerID, auctionID)
		if a, err := s.auctions.GetAuction(auctionID); err == nil && a.SubmitterID != "" {
			s.dispatcher.NotifySold(a.SubmitterID, auctionID, rec.Amount)
		}
	}

	utils.Info("auction settled", map[string]any{
		"auction_id":    auctionID,
		"buyer_id":      rec.BuyerID,
		"amount":        rec.Amount,
		"debit_applied": applied,
		"grant_id":      stored.GrantID,
	})
	return stored, nil
}

// ConsumeGrant spends one download and returns a short-lived access token.
func (s *SettlementService) ConsumeGrant(grantID string) (DownloadAccess, error) {
	if grantID == "" {
		return DownloadAccess{}, fmt.Errorf("settlement: %w - empty grant ID", auctionerrors.ErrGrantNotFound)
	}

	now := s.now().UTC()
	g, err := s.grants.ConsumeGrant(grantID, now)
	if err != nil {
		return DownloadAccess{}, fmt.Errorf("settlement: consume grant %s: %w", grantID, err)
	}

	return DownloadAccess{
		Token:              utils.GenerateID(),
		AuctionID:          g.AuctionID,
		ExpiresAt:          now.Add(s.policy.AccessTTL),
		DownloadsRemaining: g.MaxDownloads - g.DownloadsUsed,
	}, nil
}

// GetGrant returns a snapshot of the grant.
func (s *SettlementService) GetGrant(grantID string) (model.ContentGrant, error) {
	g, err := s.grants.GetGrant(grantID)
	if err != nil {
		return model.ContentGrant{}, fmt.Errorf("settlement: get grant %s: %w", grantID, err)
	}
	return g, nil
}

// GrantForAuction resolves the grant a settled auction produced. This is how
// a winner discovers their grant ID after the won notification.
func (s *SettlementService) GrantForAuction(auctionID string) (model.ContentGrant, error) {
	g, err := s.grants.GrantByAuction(auctionID)
	if err != nil {
		return model.ContentGrant{}, fmt.Errorf("settlement: grant for auction %s: %w", auctionID, err)
	}
	return g, nil
}
