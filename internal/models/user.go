package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var _ Model = (*User)(nil)

// Sign-in providers recorded on a [User].
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User is a local account able to sign in with a password or an OAuth provider.
type User struct {
	id           string
	sequence     int
	email        string
	provider     string
	passwordHash string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewUser creates a user with a normalized email and fresh timestamps.
func NewUser(sequence int, email, provider, passwordHash string) *User {
	now := time.Now()
	return &User{
		sequence:     sequence,
		email:        NormalizeEmail(email),
		provider:     provider,
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Email() string         { return u.email }
func (u *User) Provider() string      { return u.provider }
func (u *User) PasswordHash() string  { return u.passwordHash }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)           { u.id = id }
func (u *User) SetSequence(seq int)       { u.sequence = seq }
func (u *User) SetCreatedAt(t time.Time)  { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)  { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time) { u.deletedAt = t }

// SetPasswordHash replaces the stored hash and marks the account as password-capable.
func (u *User) SetPasswordHash(hash string) {
	u.passwordHash = hash
	u.provider = ProviderPassword
}

// Validate checks the email and provider.
func (u *User) Validate() error {
	if u.email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email %q: %w", u.email, err)
	}
	switch u.provider {
	case ProviderPassword:
		if u.passwordHash == "" {
			return fmt.Errorf("password hash is required for password accounts")
		}
	case ProviderGoogle, ProviderFacebook:
	default:
		return fmt.Errorf("unknown provider %q", u.provider)
	}
	return nil
}
