package session

import "time"

// DefaultLifetime is applied when a token response carries no lifetime.
const DefaultLifetime = 15 * time.Minute

// StoredTokens is the persisted token record of a client.
type StoredTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	// ExpiresAt is an absolute instant in epoch milliseconds.
	ExpiresAt int64 `json:"expiresAt"`
}

// StoredUser is the cached profile of the signed in user.
type StoredUser struct {
	Sub       string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// TokenInput is what a login or signup hands to StoreTokens.
type TokenInput struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	// ExpiresIn is the lifetime in seconds. Zero or less means not supplied.
	ExpiresIn int
}
