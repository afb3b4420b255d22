package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrEmailExists    = errors.New("email already in use")
)

// IdentityProvider is the managed identity service behind sign-in.
type IdentityProvider interface {
	// LookupEmail returns the uid registered for email, or ErrUserNotFound.
	LookupEmail(ctx context.Context, email string) (string, error)
	// MintSessionCookie exchanges a client ID token for a session cookie.
	MintSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	// VerifySessionCookie returns the uid a session cookie belongs to, or
	// ErrInvalidSession. Revoked sessions are rejected.
	VerifySessionCookie(ctx context.Context, cookie string) (string, error)
}

// Firebase adapts a Firebase Auth client to IdentityProvider.
type Firebase struct {
	client *fbauth.Client
}

func NewFirebase(client *fbauth.Client) *Firebase {
	return &Firebase{client: client}
}

func (f *Firebase) LookupEmail(ctx context.Context, email string) (string, error) {
	rec, err := f.client.GetUserByEmail(ctx, email)
	if fbauth.IsUserNotFound(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", email, err)
	}
	return rec.UID, nil
}

func (f *Firebase) MintSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	cookie, err := f.client.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", fmt.Errorf("creating session cookie: %w", err)
	}
	return cookie, nil
}

func (f *Firebase) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	tok, err := f.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return tok.UID, nil
}
