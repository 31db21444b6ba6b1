package domain

import (
	"errors"
	"time"
)

// ProviderOlmed is the provider key under which the shared ERP
// credential is cached.
const ProviderOlmed = "olmed"

var (
	ErrTokenNotFound = errors.New("no valid token for provider")
	ErrLoginFailed   = errors.New("login failed")
)

// TokenInfo is a snapshot of the shared expiring credential. The token
// store owns the current instance per provider; callers only read
// copies or trigger a wholesale replace.
type TokenInfo struct {
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid reports whether the token is usable at now.
func (t TokenInfo) Valid(now time.Time) bool {
	return t.Token != "" && t.ExpiresAt.After(now)
}

// ExpiresWithin reports whether the token expires before now+window.
// Used to refresh proactively instead of racing the expiry.
func (t TokenInfo) ExpiresWithin(now time.Time, window time.Duration) bool {
	return !t.ExpiresAt.After(now.Add(window))
}
