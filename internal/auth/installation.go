package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// InstallationTokenExpired peeks at a delegated installation token's expiry
// claim without verifying the signature (the tracker verifies it; we only
// want to fail fast with a permission error instead of burning a network
// round-trip on a token we already know is dead). Tokens that do not parse
// as JWTs or carry no expiry are left for the tracker to judge.
func InstallationTokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now)
}
