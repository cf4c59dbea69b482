package trust

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ElevationClaims is the payload of a signed elevation token, minted by an
// operator out of band to raise a session's trust level without a server
// restart.
type ElevationClaims struct {
	SessionID     string `json:"session_id"`
	GrantedLevel  string `json:"granted_level"`
	jwt.RegisteredClaims
}

// MintElevationToken signs a token granting level to sessionID until ttl
// elapses.
func MintElevationToken(key []byte, sessionID string, level Level, ttl time.Duration) (string, error) {
	claims := ElevationClaims{
		SessionID:    sessionID,
		GrantedLevel: level.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    "codomyrmex-mcp",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ApplyElevationToken validates tokenString and, if it is well-formed,
// unexpired, and addressed to tctx.SessionID, raises tctx to the granted
// level until the token's expiry.
func ApplyElevationToken(key []byte, tctx *Context, tokenString string) error {
	claims := &ElevationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method)
		}
		return key, nil
	})
	if err != nil {
		return fmt.Errorf("parse elevation token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("elevation token is invalid")
	}
	if claims.SessionID != tctx.SessionID {
		return fmt.Errorf("elevation token is not addressed to this session")
	}

	level, err := ParseLevel(claims.GrantedLevel)
	if err != nil {
		return fmt.Errorf("elevation token: %w", err)
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	tctx.Elevate(level, expiry)
	return nil
}
