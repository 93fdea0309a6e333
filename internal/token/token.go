// Package token issues and verifies the signed, time-limited tokens carried
// by vote-confirmation links. A token encodes the identity of one pending
// vote (vote id, poll id, voter email) and is signed with HMAC-SHA256 so
// the confirmation endpoint can trust the link without any server-side
// token storage. Expiry is part of the token itself: the deadline is the
// vote's creation time plus the configured TTL (1 hour by default).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by Verify. Callers should branch on these to
// distinguish "link expired, vote again" from "link forged or mangled".
var (
	// ErrExpired means the token was well-formed and correctly signed but
	// its validity window has passed.
	ErrExpired = errors.New("confirmation token expired")

	// ErrInvalid means the token could not be parsed or its signature did
	// not verify.
	ErrInvalid = errors.New("confirmation token invalid")
)

// Claims is the JWT payload of a confirmation link.
type Claims struct {
	VoteID uint   `json:"vote_id"`
	PollID string `json:"poll_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies confirmation tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer signing with secret; tokens expire ttl after
// their issue time. A non-positive ttl falls back to one hour.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the validity window applied to issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign produces a confirmation token for the given vote. issuedAt should be
// the vote's creation time so the validity window starts when the vote row
// was inserted, not when the email was rendered.
func (i *Issuer) Sign(voteID uint, pollID, email string, issuedAt time.Time) (string, error) {
	claims := Claims{
		VoteID: voteID,
		PollID: pollID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign confirmation token: %w", err)
	}
	return s, nil
}

// Verify parses and validates a confirmation token. It returns ErrExpired
// when the validity window has passed and ErrInvalid for any other parse,
// signature, or algorithm failure.
func (i *Issuer) Verify(s string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(s, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if claims.VoteID == 0 || claims.PollID == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}
