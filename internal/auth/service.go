package auth

import (
	"context"
	"errors"
	"log"

	"github.com/ai-interviewer/interviewer/internal/store"
)

// UserStore holds the profile documents of registered users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
	CreateUser(ctx context.Context, id, name, email string) error
}

// Result is what the auth endpoints report back to the form.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SignUpParams struct {
	UID   string
	Name  string
	Email string
}

type SignInParams struct {
	Email   string
	IDToken string
}

const (
	msgUserExists   = "User already exists. Please sign in instead"
	msgSignUpOK     = "Account created successfully. Please sign in!"
	msgSignUpFailed = "Failed to create an account."
	msgEmailInUse   = "This email is already in use."
	msgNoSuchUser   = "User does not exist. Create an account."
	msgSignInFailed = "Failed to log into account. Please try again."
	msgSignInOK     = "Signed in successfully."
)

// Service implements sign-up, sign-in and session lookup on top of the
// identity provider and the user store.
type Service struct {
	idp   IdentityProvider
	users UserStore
	cache *Cache
}

// NewService builds a Service. cache may be nil.
func NewService(idp IdentityProvider, users UserStore, cache *Cache) *Service {
	return &Service{idp: idp, users: users, cache: cache}
}

// SignUp records the profile of a user the identity provider has already
// registered under p.UID.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) Result {
	_, err := s.users.GetUser(ctx, p.UID)
	switch {
	case err == nil:
		return Result{Success: false, Message: msgUserExists}
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("[Auth] Error creating a user: %v", err)
		return Result{Success: false, Message: msgSignUpFailed}
	}

	if err := s.checkEmail(ctx, p.UID, p.Email); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return Result{Success: false, Message: msgEmailInUse}
		}
		log.Printf("[Auth] Error creating a user: %v", err)
		return Result{Success: false, Message: msgSignUpFailed}
	}

	if err := s.users.CreateUser(ctx, p.UID, p.Name, p.Email); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Result{Success: false, Message: msgUserExists}
		}
		log.Printf("[Auth] Error creating a user: %v", err)
		return Result{Success: false, Message: msgSignUpFailed}
	}
	return Result{Success: true, Message: msgSignUpOK}
}

// checkEmail fails with ErrEmailExists when email belongs to an identity
// other than uid. An email the provider does not know is accepted.
func (s *Service) checkEmail(ctx context.Context, uid, email string) error {
	owner, err := s.idp.LookupEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return err
	case owner != uid:
		return ErrEmailExists
	}
	return nil
}

// SignIn checks that p.Email is registered and exchanges p.IDToken for a
// session cookie value. The cookie value is empty unless Result.Success.
func (s *Service) SignIn(ctx context.Context, p SignInParams) (Result, string) {
	if _, err := s.idp.LookupEmail(ctx, p.Email); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Result{Success: false, Message: msgNoSuchUser}, ""
		}
		log.Printf("[Auth] Sign in lookup failed: %v", err)
		return Result{Success: false, Message: msgSignInFailed}, ""
	}

	cookie, err := s.idp.MintSessionCookie(ctx, p.IDToken, SessionDuration)
	if err != nil {
		log.Printf("[Auth] Sign in failed: %v", err)
		return Result{Success: false, Message: msgSignInFailed}, ""
	}
	return Result{Success: true, Message: msgSignInOK}, cookie
}

// SignOut forgets any cached verification for cookie. Clearing the browser
// cookie is up to the caller.
func (s *Service) SignOut(ctx context.Context, cookie string) {
	if cookie == "" {
		return
	}
	if err := s.cache.Delete(ctx, cookie); err != nil {
		log.Printf("[Auth] Failed to evict session: %v", err)
	}
}

// CurrentUser resolves a session cookie to its user. An empty, invalid or
// expired cookie, or a session whose user has no profile, yields nil with no
// error.
func (s *Service) CurrentUser(ctx context.Context, cookie string) (*store.User, error) {
	if cookie == "" {
		return nil, nil
	}

	uid, ok, err := s.cache.Get(ctx, cookie)
	if err != nil {
		log.Printf("[Auth] Session cache read failed: %v", err)
	}
	if !ok {
		uid, err = s.idp.VerifySessionCookie(ctx, cookie)
		if err != nil {
			log.Printf("[Auth] %v", err)
			return nil, nil
		}
		if err := s.cache.Set(ctx, cookie, uid); err != nil {
			log.Printf("[Auth] Session cache write failed: %v", err)
		}
	}

	u, err := s.users.GetUser(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) IsAuthenticated(ctx context.Context, cookie string) bool {
	u, err := s.CurrentUser(ctx, cookie)
	if err != nil {
		log.Printf("[Auth] Resolving current user: %v", err)
		return false
	}
	return u != nil
}
