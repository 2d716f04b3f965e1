package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"doglog/pkg/domain"
)

const minHMACSecret = 16

// Claims mirrors the Firebase ID token claims the service reads.
type Claims struct {
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier accepts HS256 tokens signed with a shared secret. It stands in
// for Firebase in local development and tests.
type HMACVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewHMACVerifier returns a verifier for secret. When issuer is set, tokens
// must carry it.
func NewHMACVerifier(secret []byte, issuer string) (*HMACVerifier, error) {
	if len(secret) < minHMACSecret {
		return nil, fmt.Errorf("hmac secret must be at least %d bytes", minHMACSecret)
	}
	return &HMACVerifier{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Verify implements Verifier.
func (v *HMACVerifier) Verify(_ context.Context, idToken string) (domain.User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(idToken, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, errors.New("token has no subject"))
	}
	return domain.User{
		UID:           claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// Issue signs a token for user valid for ttl.
func (v *HMACVerifier) Issue(user domain.User, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email:         user.Email,
		Name:          user.DisplayName,
		Picture:       user.PhotoURL,
		EmailVerified: user.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
