package authapi

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// the signature is never checked here, so every common algorithm is accepted
var tokenSigAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.HS256, jose.HS384, jose.HS512,
	jose.EdDSA,
}

// TokenLifetime reads the exp claim of a JWS access token without verifying it and
// returns how long the token has left at now, which is zero or negative once the
// token expired. It reports false for opaque tokens and tokens without exp.
func TokenLifetime(token string, now time.Time) (time.Duration, bool) {
	parsed, err := jwt.ParseSigned(token, tokenSigAlgs)
	if err != nil {
		return 0, false
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return 0, false
	}

	if claims.Expiry == nil {
		return 0, false
	}

	return claims.Expiry.Time().Sub(now), true
}
