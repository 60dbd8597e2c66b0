package demoauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenConfig configures the HS256 issuer.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Claims are carried by both token types; Type tells them apart.
type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer mints and parses credential pairs.
type Issuer struct {
	config TokenConfig
	now    func() time.Time
}

// NewIssuer validates cfg.
func NewIssuer(cfg TokenConfig) (*Issuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "demoauth"
	}
	return &Issuer{config: cfg, now: time.Now}, nil
}

// Issue returns a fresh access/refresh pair for user.
func (i *Issuer) Issue(user goSession.User) (goSession.Credentials, error) {
	access, err := i.sign(user, tokenTypeAccess, i.config.AccessTTL)
	if err != nil {
		return goSession.Credentials{}, err
	}
	refresh, err := i.sign(user, tokenTypeRefresh, i.config.RefreshTTL)
	if err != nil {
		return goSession.Credentials{}, err
	}
	return goSession.Credentials{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(user goSession.User, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UID:  user.ID,
		Role: user.Role.String(),
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
}

// ParseAccess verifies an access token and returns its claims. Refresh
// tokens are rejected.
func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(i.config.Leeway))
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return claims, nil
}
