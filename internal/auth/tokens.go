// Package auth issues and verifies the JWT access/refresh pair and hashes
// passwords.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedran77/agora/internal/config"
	"github.com/vedran77/agora/internal/domain"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// RefreshStore persists the single live refresh token of each user.
type RefreshStore interface {
	SaveRefreshToken(ctx context.Context, userID int64, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, userID int64) (string, error)
	DeleteRefreshToken(ctx context.Context, userID int64) error
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

func NewIssuer(cfg config.AuthConfig, store RefreshStore) *Issuer {
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		store:      store,
		now:        time.Now,
	}
}

// Issue signs a fresh access/refresh pair and stores the refresh token,
// replacing any earlier one.
func (i *Issuer) Issue(ctx context.Context, userID int64) (*Tokens, error) {
	access, err := i.sign(userID, typeAccess, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := i.sign(userID, typeRefresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	if err := i.store.SaveRefreshToken(ctx, userID, refresh, i.refreshTTL); err != nil {
		return nil, fmt.Errorf("saving refresh token: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccess returns the user id carried by a valid access token.
func (i *Issuer) ParseAccess(token string) (int64, error) {
	return i.parse(token, typeAccess)
}

// Refresh rotates both tokens. The presented refresh token must be the one
// currently stored for its user.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	userID, err := i.parse(refreshToken, typeRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := i.store.RefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored == "" || stored != refreshToken {
		return nil, domain.ErrInvalidToken
	}
	return i.Issue(ctx, userID)
}

func (i *Issuer) Revoke(ctx context.Context, userID int64) error {
	return i.store.DeleteRefreshToken(ctx, userID)
}

func (i *Issuer) sign(userID int64, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

func (i *Issuer) parse(token, typ string) (int64, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid || c.Type != typ {
		return 0, domain.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidToken
	}
	return userID, nil
}
