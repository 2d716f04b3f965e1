// Package auth verifies bearer ID tokens and carries the authenticated user
// through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"doglog/internal/config"
	"doglog/pkg/domain"
)

// ErrUnauthenticated is returned for missing, malformed or rejected tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier turns an ID token into the user it was issued to.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (domain.User, error)
}

// NewVerifier builds the verifier named by cfg.Driver.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Driver {
	case "", config.AuthFirebase:
		return NewFirebaseVerifier(ctx, FirebaseConfig{ProjectID: cfg.ProjectID, CredentialsFile: cfg.CredentialsFile})
	case config.AuthHMAC:
		return NewHMACVerifier([]byte(cfg.HMACSecret), cfg.Issuer)
	default:
		return nil, fmt.Errorf("unknown auth driver %q", cfg.Driver)
	}
}

type userKey struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(domain.User)
	return user, ok && user.UID != ""
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthenticated)
	}
	return token, nil
}

// ErrorFunc writes an authentication failure.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware verifies the bearer token of every request and stores the user
// in the request context. Failures go to onError; errors wrap ErrUnauthenticated.
func Middleware(v Verifier, onError ErrorFunc) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			user, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					err = fmt.Errorf("%w: %v", ErrUnauthenticated, err)
				}
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
