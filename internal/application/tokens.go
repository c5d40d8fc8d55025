package application

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token issued for one purpose is rejected for the other.
const (
	TokenPurposeConfirm = "account_confirmation"
	TokenPurposeReset   = "password_reset"
)

const tokenIssuer = "table-reservations"

type accountClaims struct {
	// Stamp binds the token to the account's password hash so a reset
	// token stops working once the password changes.
	Stamp string `json:"stamp,omitempty"`
	jwt.RegisteredClaims
}

// AccountTokens signs and verifies the HS256 tokens mailed to account holders
// for email confirmation and password reset.
type AccountTokens struct {
	secret []byte
	now    func() time.Time
}

// NewAccountTokens constructs a signer. now defaults to time.Now.
func NewAccountTokens(secret string, now func() time.Time) *AccountTokens {
	if now == nil {
		now = time.Now
	}
	return &AccountTokens{secret: []byte(secret), now: now}
}

// Issue signs a token for the account valid for ttl.
func (t *AccountTokens) Issue(purpose string, account Account, ttl time.Duration) (string, error) {
	if t == nil || len(t.secret) == 0 {
		return "", errors.New("account token secret not configured")
	}
	issuedAt := t.now()
	claims := accountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   account.ID,
			Audience:  jwt.ClaimStrings{purpose},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	if purpose == TokenPurposeReset {
		claims.Stamp = passwordStamp(account.PasswordHash)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign account token: %w", err)
	}
	return signed, nil
}

// Parse verifies token for purpose and returns the account id and stamp it carries.
func (t *AccountTokens) Parse(purpose, token string) (accountID, stamp string, err error) {
	if t == nil || len(t.secret) == 0 {
		return "", "", errors.New("account token secret not configured")
	}

	claims := &accountClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(purpose),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Stamp, nil
}

func passwordStamp(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
