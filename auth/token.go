package auth

import (
	"fmt"
	"geochat/domain"
	"geochat/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "geochat"

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsStaff   bool      `json:"is_staff"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenIssuer signs HS256 access and refresh tokens with a single secret.
type TokenIssuer struct {
	secret          []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	now             func() time.Time
}

func NewTokenIssuer(secret string, accessDuration, refreshDuration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:          []byte(secret),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		now:             time.Now,
	}
}

// Issue creates a fresh access/refresh pair for the user.
func (t *TokenIssuer) Issue(user domain.User) (TokenPair, error) {
	access, err := t.sign(user, AccessToken, t.accessDuration)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(user, RefreshToken, t.refreshDuration)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (t *TokenIssuer) sign(user domain.User, tokenType TokenType, duration time.Duration) (string, error) {
	now := t.now()
	claims := &CustomClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsStaff:   user.IsStaff,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

// Validate checks signature, expiration and the expected token type.
// Every failure is reported as errors.ErrInvalidToken.
func (t *TokenIssuer) Validate(tokenString string, expected TokenType) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.TokenType != expected {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
