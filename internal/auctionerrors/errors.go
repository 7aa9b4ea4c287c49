package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrGrantNotFound    = errors.New("grant not found")
	ErrDuplicateAuction = errors.New("auction already exists")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrAuctionClosed     = errors.New("auction is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrGrantExpired      = errors.New("grant expired")
	ErrGrantExhausted    = errors.New("grant download limit reached")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// ErrConcurrentUpdate signals a lost conditional update. It is transient and
// retried internally; callers of the public services never see it for a bid
// that was in fact valid.
var ErrConcurrentUpdate = errors.New("concurrent update conflict")
