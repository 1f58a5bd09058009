package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const visitorTokenType = "visitor"

// VisitorClaims identifies one storefront visitor (one browser tab)
type VisitorClaims struct {
	Type      string `json:"type"`
	VisitorID string `json:"visitor_id"`
	jwt.RegisteredClaims
}

// VisitorTokenManager signs and validates visitor tokens
type VisitorTokenManager struct {
	secret []byte
	expiry time.Duration
	clock  clock.Clock
}

// NewVisitorTokenManager creates a new VisitorTokenManager
func NewVisitorTokenManager(secret string, expiry time.Duration, c clock.Clock) *VisitorTokenManager {
	if c == nil {
		c = clock.New()
	}
	return &VisitorTokenManager{
		secret: []byte(secret),
		expiry: expiry,
		clock:  c,
	}
}

// Issue creates a token for a fresh visitor id and returns both
func (tm *VisitorTokenManager) Issue() (token string, visitorID string, err error) {
	visitorID = uuid.New().String()
	token, err = tm.sign(visitorID)
	if err != nil {
		return "", "", err
	}
	return token, visitorID, nil
}

// Refresh signs a new token with a full lifetime for an existing visitor id
func (tm *VisitorTokenManager) Refresh(visitorID string) (string, error) {
	return tm.sign(visitorID)
}

// NeedsRefresh reports whether less than half of the token lifetime is left
func (tm *VisitorTokenManager) NeedsRefresh(claims *VisitorClaims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(tm.clock.Now()) < tm.expiry/2
}

func (tm *VisitorTokenManager) sign(visitorID string) (string, error) {
	now := tm.clock.Now()

	claims := &VisitorClaims{
		Type:      visitorTokenType,
		VisitorID: visitorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign visitor token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns its claims
func (tm *VisitorTokenManager) Validate(tokenString string) (*VisitorClaims, error) {
	claims := &VisitorClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.clock.Now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != visitorTokenType || claims.VisitorID == "" {
		return nil, fmt.Errorf("invalid token: not a visitor token")
	}

	return claims, nil
}

// MaxAge is the cookie lifetime in seconds
func (tm *VisitorTokenManager) MaxAge() int {
	return int(tm.expiry / time.Second)
}
