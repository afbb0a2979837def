package guard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenHint is what the edge can read from a token without the signing
// key: structural validity and the embedded expiry. It is a hint only,
// real verification happens at the backend on every API call.
type tokenHint struct {
	valid   bool
	expired bool
}

type edgeClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// hintFromToken parses raw without signature verification. A token that
// does not even parse is treated the same as no token at all; a token
// that parses but carries a past exp is reported expired so the edge
// can clear the stale cookies.
func hintFromToken(raw string, now time.Time) tokenHint {
	if raw == "" {
		return tokenHint{}
	}
	var claims edgeClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return tokenHint{}
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return tokenHint{valid: true, expired: true}
	}
	return tokenHint{valid: true}
}
