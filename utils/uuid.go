package utils

import (
	"github.com/google/uuid"
)

// GenerateID mints the random identifiers used for auctions, bids, grants
// and download tokens.
func GenerateID() string {
	return uuid.NewString()
}
