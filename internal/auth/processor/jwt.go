package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"push-server/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "push-server"
	tokenAudience = "push-dashboard"
)

var (
	ErrInvalidJWTToken = errors.New("invalid jwt token")
	ErrParseJWTToken   = errors.New("failed to parse jwt token")
	ErrExpiredToken    = errors.New("token expired")
	ErrFailedSignIn    = errors.New("failed to sign token")
	ErrMissingSecret   = errors.New("jwt secret is not configured")
)

// AuthProcessor issues and validates dashboard operator tokens
type AuthProcessor struct {
	secret []byte
	logger *observability.Logger
	now    func() time.Time
}

func New(jwtSecret string, logger *observability.Logger) AuthProcessor {
	return AuthProcessor{
		secret: []byte(jwtSecret),
		logger: logger,
		now:    time.Now,
	}
}

type BaseClaims struct {
	ExpirationTime *jwt.NumericDate `json:"exp"`
	IssuedAt       *jwt.NumericDate `json:"iat"`
	NotBefore      *jwt.NumericDate `json:"nbf"`
	Issuer         string           `json:"iss"`
	Subject        string           `json:"sub"`
	Audience       jwt.ClaimStrings `json:"aud"`
}

func (b *BaseClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return b.ExpirationTime, nil
}

func (b *BaseClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return b.IssuedAt, nil
}

func (b *BaseClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return b.NotBefore, nil
}

func (b *BaseClaims) GetIssuer() (string, error) {
	return b.Issuer, nil
}

func (b *BaseClaims) GetSubject() (string, error) {
	return b.Subject, nil
}

func (b *BaseClaims) GetAudience() (jwt.ClaimStrings, error) {
	return b.Audience, nil
}

// IssueToken signs a dashboard token for subject valid for ttl
func (p *AuthProcessor) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := p.now()
	claims := &BaseClaims{
		ExpirationTime: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:       jwt.NewNumericDate(now),
		Issuer:         tokenIssuer,
		Subject:        subject,
		Audience:       jwt.ClaimStrings{tokenAudience},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		p.logger.Error(ctx, "failed to sign token", err)
		return "", ErrFailedSignIn
	}
	return tokenString, nil
}

func (p *AuthProcessor) ValidateJWTToken(ctx context.Context, token string) (BaseClaims, error) {
	var baseClaims BaseClaims
	t, err := jwt.ParseWithClaims(token, &baseClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger.InfoWithError(ctx, "token expired", err)
			return BaseClaims{}, ErrExpiredToken
		}
		p.logger.InfoWithError(ctx, "failed to parse token", err)
		return BaseClaims{}, ErrParseJWTToken
	}
	if !t.Valid {
		return BaseClaims{}, ErrInvalidJWTToken
	}

	claims, ok := t.Claims.(*BaseClaims)
	if !ok {
		return BaseClaims{}, ErrParseJWTToken
	}
	return *claims, nil
}
