package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"doglog/pkg/domain"
)

// FirebaseConfig selects the Firebase project whose ID tokens are accepted.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// idTokenVerifier is the part of *fbauth.Client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes a Firebase app and its auth client.
// Public signing keys are fetched on first verification.
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig, opts ...option.ClientOption) (*FirebaseVerifier, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify implements Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (domain.User, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return userFromFirebase(token), nil
}

func userFromFirebase(token *fbauth.Token) domain.User {
	user := domain.User{UID: token.UID}
	user.Email, _ = token.Claims["email"].(string)
	user.DisplayName, _ = token.Claims["name"].(string)
	user.PhotoURL, _ = token.Claims["picture"].(string)
	user.EmailVerified, _ = token.Claims["email_verified"].(bool)
	return user
}
