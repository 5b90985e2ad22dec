// Package auth issues and validates the signed, time-limited tokens used
// for API access, account activation and password reset.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType scopes a token to one purpose. A token presented for another
// purpose is rejected as invalid.
type TokenType string

const (
	TypeAccess     TokenType = "access"
	TypeRefresh    TokenType = "refresh"
	TypeActivation TokenType = "activation"
	TypeReset      TokenType = "reset"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, unknown
	// algorithms and tokens of the wrong type.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token has expired")
)

// Claims is the payload carried by every token.
type Claims struct {
	UserID    int64     `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	Email     string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TTLs holds the lifetime of each token type.
type TTLs struct {
	Access     time.Duration
	Refresh    time.Duration
	Activation time.Duration
	Reset      time.Duration
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttls   TTLs
	now    func() time.Time
}

// NewIssuer creates an Issuer with the given signing secret and lifetimes.
func NewIssuer(secret string, ttls TTLs) *Issuer {
	return &Issuer{secret: []byte(secret), ttls: ttls, now: time.Now}
}

func (i *Issuer) ttl(typ TokenType) (time.Duration, error) {
	switch typ {
	case TypeAccess:
		return i.ttls.Access, nil
	case TypeRefresh:
		return i.ttls.Refresh, nil
	case TypeActivation:
		return i.ttls.Activation, nil
	case TypeReset:
		return i.ttls.Reset, nil
	}
	return 0, fmt.Errorf("unknown token type %q", typ)
}

// Issue signs a token of the given type for an account.
func (i *Issuer) Issue(userID int64, email string, typ TokenType) (string, error) {
	ttl, err := i.ttl(typ)
	if err != nil {
		return "", err
	}
	now := i.now()
	claims := Claims{
		UserID:    userID,
		TokenType: typ,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies a token and checks that it has the expected type.
func (i *Issuer) Parse(token string, typ TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != typ || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Pair is the result of a JWT login.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IssuePair signs an access and a refresh token for an account.
func (i *Issuer) IssuePair(userID int64, email string) (Pair, error) {
	access, err := i.Issue(userID, email, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.Issue(userID, email, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (i *Issuer) Refresh(refresh string) (string, error) {
	claims, err := i.Parse(refresh, TypeRefresh)
	if err != nil {
		return "", err
	}
	return i.Issue(claims.UserID, claims.Email, TypeAccess)
}

// Verify reports whether token is a valid access or refresh token.
func (i *Issuer) Verify(token string) error {
	_, err := i.Parse(token, TypeAccess)
	if errors.Is(err, ErrTokenInvalid) {
		_, err = i.Parse(token, TypeRefresh)
	}
	return err
}
