// Package identity signs people in and tells the rest of the app who is signed in.
//
// A [Provider] exposes the current identity and a subscription for changes. [Bind] forwards those changes into
// a [session.Hub], which is the only place the tier is recomputed.
package identity

import (
	"context"
	"errors"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailInUse        = errors.New("email already in use")
	ErrWeakPassword      = errors.New("password must be at least 6 characters")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrNotConfigured     = errors.New("sign-in provider not configured")
)

// Provider is the identity collaborator.
type Provider interface {
	Current() *access.Identity
	Subscribe(fn func(*access.Identity)) func()
	SignIn(ctx context.Context, email, password string) (*access.Identity, error)
	SignUp(ctx context.Context, email, password string) (*access.Identity, error)
	SignOut(ctx context.Context) error
}

// Bind pushes the provider's current identity into hub and keeps it updated until the returned func is called.
func Bind(p Provider, hub *session.Hub) func() {
	hub.SetIdentity(p.Current())
	return p.Subscribe(hub.SetIdentity)
}

// Notice turns a sign-in failure into the message shown to the user.
func Notice(err error) *shared.Notice {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidCredential):
		return shared.NewNotice("Sign In Failed", "The email or password is incorrect.")
	case errors.Is(err, ErrEmailInUse):
		return shared.NewNotice("Sign Up Failed", "An account with this email already exists.")
	case errors.Is(err, ErrWeakPassword):
		return shared.NewNotice("Sign Up Failed", "Password should be at least 6 characters.")
	case errors.Is(err, ErrInvalidEmail):
		return shared.NewNotice("Sign Up Failed", "Please enter a valid email address.")
	case errors.Is(err, ErrNotConfigured):
		return shared.NewNotice("Sign In Unavailable", "This sign-in method is not configured.")
	case errors.Is(err, shared.ErrNotAuthenticated):
		return shared.NewNotice("Not Signed In", "There is no account to sign out of.")
	default:
		return shared.NewNotice("Authentication Error", "Something went wrong. Please try again.")
	}
}
