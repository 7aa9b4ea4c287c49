package repository

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"fmt"
	"sync"
	"time"
)

// AuctionDB is the auction/bid storage surface used by the bidding service
// and the auction state machine.
type AuctionDB interface {
	CreateAuction(a model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ExtendAuction(auctionID string, endsAt time.Time) (model.Auction, error)
	ListDueForSettlement(now time.Time) ([]string, error)
	TransitionStatus(auctionID string, from, to model.AuctionStatus) (bool, error)
	ApplyBid(bid model.Bid, expectedHighest int64, expectedCount int) (prevBidder string, err error)
	RecordRejectedBid(bid model.Bid) error
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
}

// WalletDB is the wallet/settlement storage surface used by the wallet
// service. The settlement record lives here because the debit and its record
// must be one atomic step.
type WalletDB interface {
	GetWallet(buyerID string) (model.Wallet, error)
	Credit(buyerID string, amount int64, idempotencyKey string) (model.Wallet, error)
	SettleDebit(auctionID, buyerID string, amount int64) (rec model.SettlementRecord, applied bool, err error)
	GetSettlement(auctionID string) (model.SettlementRecord, bool)
}

// GrantDB is the content-grant storage surface used by the settlement
// service.
type GrantDB interface {
	CreateGrant(g model.ContentGrant) (model.ContentGrant, bool, error)
	GetGrant(grantID string) (model.ContentGrant, error)
	GrantByAuction(auctionID string) (model.ContentGrant, error)
	ConsumeGrant(grantID string, now time.Time) (model.ContentGrant, error)
}

// auctionRecord owns one auction's mutable state. All reads and conditional
// writes against the auction and its bid ledger take rec.mu, which is what
// makes bid acceptance linearizable per auction.
type auctionRecord struct {
	mu      sync.Mutex
	auction model.Auction
	bids    []model.Bid
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB,
// WalletDB and GrantDB.
//
// Locking: the outer mutexes guard the maps; each auction record carries its
// own lock. Wallets and settlement records share walletsMu so a debit and its
// settlement record commit as one atomic step, and so per-buyer mutations are
// linearizable. No code path acquires two of these sections at once.
type MemoryRepo struct {
	auctionsMu sync.RWMutex
	auctions   map[string]*auctionRecord

	walletsMu   sync.Mutex
	wallets     map[string]*model.Wallet
	topUpKeys   map[string]struct{} // buyerID + "\x00" + idempotency key
	settlements map[string]model.SettlementRecord

	grantsMu       sync.Mutex
	grants         map[string]*model.ContentGrant
	grantByAuction map[string]string
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:       make(map[string]*auctionRecord),
		wallets:        make(map[string]*model.Wallet),
		topUpKeys:      make(map[string]struct{}),
		settlements:    make(map[string]model.SettlementRecord),
		grants:         make(map[string]*model.ContentGrant),
		grantByAuction: make(map[string]string),
	}
}

func (r *MemoryRepo) record(auctionID string) (*auctionRecord, error) {
	r.auctionsMu.RLock()
	defer r.auctionsMu.RUnlock()

	rec, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return rec, nil
}

// CreateAuction registers a new auction in OPEN state.
func (r *MemoryRepo) CreateAuction(a model.Auction) error {
	r.auctionsMu.Lock()
	defer r.auctionsMu.Unlock()

	if _, ok := r.auctions[a.AuctionID]; ok {
		return fmt.Errorf("auction %s: %w", a.AuctionID, auctionerrors.ErrDuplicateAuction)
	}
	r.auctions[a.AuctionID] = &auctionRecord{auction: a}
	return nil
}

// GetAuction returns a snapshot of the auction row.
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	rec, err := r.record(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.auction, nil
}

// ExtendAuction moves EndsAt forward. Only OPEN auctions can be extended and
// the new deadline must not shorten the auction.
func (r *MemoryRepo) ExtendAuction(auctionID string, endsAt time.Time) (model.Auction, error) {
	rec, err := r.record(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.auction.Status != model.StatusOpen {
		return model.Auction{}, fmt.Errorf("extend auction %s: %w", auctionID, auctionerrors.ErrAuctionClosed)
	}
	if endsAt.Before(rec.auction.EndsAt) {
		return model.Auction{}, fmt.Errorf("extend auction %s: new deadline precedes current: %w", auctionID, auctionerrors.ErrInvalidAmount)
	}
	rec.auction.EndsAt = endsAt
	return rec.auction, nil
}

// ListDueForSettlement returns the IDs of OPEN auctions whose deadline has
// passed, plus any auction stuck in SETTLING from an interrupted run, so the
// sweeper can resume it.
func (r *MemoryRepo) ListDueForSettlement(now time.Time) ([]string, error) {
	r.auctionsMu.RLock()
	defer r.auctionsMu.RUnlock()

	var due []string
	for id, rec := range r.auctions {
		rec.mu.Lock()
		expired := rec.auction.Status == model.StatusOpen && !now.Before(rec.auction.EndsAt)
		if expired || rec.auction.Status == model.StatusSettling {
			due = append(due, id)
		}
		rec.mu.Unlock()
	}
	return due, nil
}

// TransitionStatus performs the atomic conditional transition "set status to
// `to` where status = `from`". It returns false without error when the
// precondition no longer holds, which is the exactly-once guard for
// concurrent expiry checkers.
func (r *MemoryRepo) TransitionStatus(auctionID string, from, to model.AuctionStatus) (bool, error) {
	rec, err := r.record(auctionID)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.auction.Status != from {
		return false, nil
	}
	if from.Terminal() {
		return false, nil
	}
	rec.auction.Status = to
	return true, nil
}

// ApplyBid is the conditional update that accepts a bid: "set highest bid to
// bid.Amount where highest = expectedHighest and count = expectedCount". On a
// lost race it returns ErrConcurrentUpdate and the caller re-reads and
// retries. On success the bid row is appended, the auction header updated,
// and the previously highest bidder returned for outbid dispatch.
func (r *MemoryRepo) ApplyBid(bid model.Bid, expectedHighest int64, expectedCount int) (string, error) {
	rec, err := r.record(bid.AuctionID)
	if err != nil {
		return "", err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	a := &rec.auction
	if a.Status != model.StatusOpen || !bid.PlacedAt.Before(a.EndsAt) {
		return "", fmt.Errorf("apply bid on auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionClosed)
	}
	if a.CurrentHighestBid != expectedHighest || a.BidCount != expectedCount {
		return "", fmt.Errorf("apply bid on auction %s: %w", bid.AuctionID, auctionerrors.ErrConcurrentUpdate)
	}

	prev := a.CurrentHighestBidder
	rec.bids = append(rec.bids, bid)
	a.CurrentHighestBid = bid.Amount
	a.CurrentHighestBidder = bid.BuyerID
	a.BidCount++
	return prev, nil
}

// RecordRejectedBid appends a non-accepted bid row for audit. Rejections are
// never silently dropped from the ledger.
func (r *MemoryRepo) RecordRejectedBid(bid model.Bid) error {
	rec, err := r.record(bid.AuctionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.bids = append(rec.bids, bid)
	return nil
}

// GetBidsByAuction returns a copy of the full ledger, accepted and rejected
// rows alike, in placement order.
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	rec, err := r.record(auctionID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]model.Bid(nil), rec.bids...), nil
}

// GetWallet returns a snapshot of the buyer's wallet. The value may be stale
// by the time the caller acts on it; debits re-validate under the lock.
func (r *MemoryRepo) GetWallet(buyerID string) (model.Wallet, error) {
	r.walletsMu.Lock()
	defer r.walletsMu.Unlock()

	w, ok := r.wallets[buyerID]
	if !ok {
		return model.Wallet{}, fmt.Errorf("wallet %s: %w", buyerID, auctionerrors.ErrWalletNotFound)
	}
	return *w, nil
}

// Credit applies an external top-up. The idempotency key protects against
// duplicate payment-gateway callbacks: a key seen before is a no-op that
// returns the current wallet. Creates the wallet on first top-up.
func (r *MemoryRepo) Credit(buyerID string, amount int64, idempotencyKey string) (model.Wallet, error) {
	r.walletsMu.Lock()
	defer r.walletsMu.Unlock()

	key := buyerID + "\x00" + idempotencyKey
	w, ok := r.wallets[buyerID]
	if !ok {
		w = &model.Wallet{BuyerID: buyerID}
		r.wallets[buyerID] = w
	}
	if _, seen := r.topUpKeys[key]; seen {
		return *w, nil
	}
	r.topUpKeys[key] = struct{}{}
	w.Balance += amount
	return *w, nil
}

// SettleDebit atomically applies the settlement debit for an auction and
// records it. If a settlement record already exists the existing record is
// returned with applied=false and no wallet is touched, which is what makes
// settlement retries debit exactly once.
func (r *MemoryRepo) SettleDebit(auctionID, buyerID string, amount int64) (model.SettlementRecord, bool, error) {
	r.walletsMu.Lock()
	defer r.walletsMu.Unlock()

	if rec, ok := r.settlements[auctionID]; ok {
		return rec, false, nil
	}

	w, ok := r.wallets[buyerID]
	if !ok {
		// A buyer who never topped up cannot cover any bid.
		return model.SettlementRecord{}, false, fmt.Errorf("settle auction %s: buyer %s: %w", auctionID, buyerID, auctionerrors.ErrInsufficientFunds)
	}
	if w.Balance < amount {
		return model.SettlementRecord{}, false, fmt.Errorf("settle auction %s: buyer %s balance %d below %d: %w", auctionID, buyerID, w.Balance, amount, auctionerrors.ErrInsufficientFunds)
	}

	w.Balance -= amount
	w.TotalSpent += amount
	rec := model.SettlementRecord{
		AuctionID: auctionID,
		BuyerID:   buyerID,
		Amount:    amount,
		SettledAt: time.Now().UTC(),
	}
	r.settlements[auctionID] = rec
	return rec, true, nil
}

// GetSettlement returns the recorded settlement for an auction, if any.
func (r *MemoryRepo) GetSettlement(auctionID string) (model.SettlementRecord, bool) {
	r.walletsMu.Lock()
	defer r.walletsMu.Unlock()

	rec, ok := r.settlements[auctionID]
	return rec, ok
}

// CreateGrant stores the grant for an auction. If the auction already has a
// grant the existing one is returned with created=false, keeping the
// one-grant-per-auction invariant under settlement retries.
func (r *MemoryRepo) CreateGrant(g model.ContentGrant) (model.ContentGrant, bool, error) {
	r.grantsMu.Lock()
	defer r.grantsMu.Unlock()

	if existingID, ok := r.grantByAuction[g.AuctionID]; ok {
		return *r.grants[existingID], false, nil
	}
	stored := g
	r.grants[g.GrantID] = &stored
	r.grantByAuction[g.AuctionID] = g.GrantID
	return stored, true, nil
}

// GetGrant returns a snapshot of the grant.
func (r *MemoryRepo) GetGrant(grantID string) (model.ContentGrant, error) {
	r.grantsMu.Lock()
	defer r.grantsMu.Unlock()

	g, ok := r.grants[grantID]
	if !ok {
		return model.ContentGrant{}, fmt.Errorf("grant %s: %w", grantID, auctionerrors.ErrGrantNotFound)
	}
	return *g, nil
}

// GrantByAuction resolves the grant issued for an auction, if any.
func (r *MemoryRepo) GrantByAuction(auctionID string) (model.ContentGrant, error) {
	r.grantsMu.Lock()
	defer r.grantsMu.Unlock()

	grantID, ok := r.grantByAuction[auctionID]
	if !ok {
		return model.ContentGrant{}, fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrGrantNotFound)
	}
	return *r.grants[grantID], nil
}

// ConsumeGrant atomically checks the expiry and download cap and increments
// the usage counter.
func (r *MemoryRepo) ConsumeGrant(grantID string, now time.Time) (model.ContentGrant, error) {
	r.grantsMu.Lock()
	defer r.grantsMu.Unlock()

	g, ok := r.grants[grantID]
	if !ok {
		return model.ContentGrant{}, fmt.Errorf("grant %s: %w", grantID, auctionerrors.ErrGrantNotFound)
	}
	if !now.Before(g.ExpiresAt) {
		return model.ContentGrant{}, fmt.Errorf("grant %s: %w", grantID, auctionerrors.ErrGrantExpired)
	}
	if g.DownloadsUsed >= g.MaxDownloads {
		return model.ContentGrant{}, fmt.Errorf("grant %s: %w", grantID, auctionerrors.ErrGrantExhausted)
	}
	g.DownloadsUsed++
	return *g, nil
}
