package wallet

import (
	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"fmt"
)

// WalletService owns the credit balances. Credits come from the external
// payment-gateway collaborator; debits happen only through settlement.
type WalletService struct {
	repo repository.WalletDB
}

// NewWalletService creates a new WalletService instance
func NewWalletService(repo repository.WalletDB) *WalletService {
	return &WalletService{repo: repo}
}

// Credit applies a top-up. The idempotency key is mandatory: payment-gateway
// callbacks retry, and the same key applied twice must be a no-op after the
// first success.
func (s *WalletService) Credit(buyerID string, amount int64, idempotencyKey string) (model.Wallet, error) {
	if buyerID == "" || idempotencyKey == "" {
		return model.Wallet{}, fmt.Errorf("wallet: %w - missing buyerID or idempotency key", auctionerrors.ErrInvalidAmount)
	}
	if amount <= 0 {
		return model.Wallet{}, fmt.Errorf("wallet: %w - non-positive credit amount", auctionerrors.ErrInvalidAmount)
	}

	w, err := s.repo.Credit(buyerID, amount, idempotencyKey)
	if err != nil {
		return model.Wallet{}, fmt.Errorf("wallet: failed to credit buyer %s: %w", buyerID, err)
	}
	return w, nil
}

// Debit removes credits for a settled auction. It is the only path that
// spends a balance and is invoked solely by the settlement service. The
// auction ID keys the debit: a second call for the same auction returns the
// already-recorded settlement with applied=false instead of debiting again.
func (s *WalletService) Debit(auctionID, buyerID string, amount int64) (model.SettlementRecord, bool, error) {
	if auctionID == "" || buyerID == "" {
		return model.SettlementRecord{}, false, fmt.Errorf("wallet: %w - missing auctionID or buyerID", auctionerrors.ErrInvalidAmount)
	}
	if amount <= 0 {
		return model.SettlementRecord{}, false, fmt.Errorf("wallet: %w - non-positive debit amount", auctionerrors.ErrInvalidAmount)
	}

	rec, applied, err := s.repo.SettleDebit(auctionID, buyerID, amount)
	if err != nil {
		return model.SettlementRecord{}, false, fmt.Errorf("wallet: debit for auction %s: %w", auctionID, err)
	}
	return rec, applied, nil
}

// GetWallet returns a read-only snapshot. Callers must not assume the value
// is still current by the time they act on it; Debit re-validates the live
// balance under the lock.
func (s *WalletService) GetWallet(buyerID string) (model.Wallet, error) {
	if buyerID == "" {
		return model.Wallet{}, fmt.Errorf("wallet: %w - empty buyer ID", auctionerrors.ErrInvalidAmount)
	}

	w, err := s.repo.GetWallet(buyerID)
	if err != nil {
		return model.Wallet{}, fmt.Errorf("wallet: failed to get wallet for buyer %s: %w", buyerID, err)
	}
	return w, nil
}
