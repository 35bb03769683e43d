package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Messaging and billing constants
const (
	// KESCurrency is the ledger currency (Kenyan shilling, stored in cents)
	KESCurrency = "KES"

	// DefaultMessageCost is the fallback per-message cost in cents when the
	// deployment does not configure one
	DefaultMessageCost uint64 = 500

	// MaxMessageLength caps outbound SMS bodies before the transport call
	MaxMessageLength = 480
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
