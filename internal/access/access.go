// Package access classifies the current visitor into a usage [Tier].
//
// Tiers are derived, never stored: [Resolve] recomputes one from the identity signal, the guest URL flag
// and the stored pro flag every time any of them changes. The resolver is pure and does not touch storage.
package access

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/bowlstone/internal/shared"
)

// GuestParam is the URL query parameter that selects guest mode.
const GuestParam = "guest"

// GuestLimit is the maximum number of tasks a plain guest can carry.
const GuestLimit = 2

// Tier is the effective usage tier.
type Tier int

const (
	// Member is any authenticated identity, or unauthenticated local use without the guest flag.
	Member Tier = iota
	// Owner is the configured distinguished account.
	Owner
	// Guest is an unauthenticated visitor reached through the guest flag.
	Guest
	// GuestPro is a guest who completed the one-time unlock payment.
	GuestPro
)

func (t Tier) String() string {
	switch t {
	case Member:
		return "member"
	case Owner:
		return "owner"
	case Guest:
		return "guest"
	case GuestPro:
		return "guest_pro"
	default:
		return ""
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name written by [Tier.MarshalText].
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "member":
		*t = Member
	case "owner":
		*t = Owner
	case "guest":
		*t = Guest
	case "guest_pro":
		*t = GuestPro
	default:
		return fmt.Errorf("%w: unknown tier %q", shared.ErrInvalidInput, text)
	}
	return nil
}

// IsGuest reports whether the tier came from the guest flag.
func (t Tier) IsGuest() bool {
	return t == Guest || t == GuestPro
}

// Capacity returns the maximum carried task count and whether a limit applies at all.
func (t Tier) Capacity() (int, bool) {
	if t == Guest {
		return GuestLimit, true
	}
	return 0, false
}

// Persists reports whether board changes are written to durable storage.
//
// Guests never persist, so a guest session on a shared browser cannot overwrite an account's saved list.
func (t Tier) Persists() bool {
	return !t.IsGuest()
}

// Identity is the opaque "who is signed in" signal from an identity provider.
type Identity struct {
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
}

// Signals are the raw inputs to [Resolve].
type Signals struct {
	Identity  *Identity
	GuestFlag bool
	ProFlag   bool
}

// Resolve classifies signals into a [Tier], in priority order:
//  1. identity whose email matches ownerEmail → [Owner]
//  2. any other identity → [Member]
//  3. guest flag and pro flag → [GuestPro]
//  4. guest flag → [Guest]
//  5. otherwise → [Member] (classic local mode)
func Resolve(s Signals, ownerEmail string) Tier {
	if s.Identity != nil {
		if IsOwner(s.Identity, ownerEmail) {
			return Owner
		}
		return Member
	}

	switch {
	case s.GuestFlag && s.ProFlag:
		return GuestPro
	case s.GuestFlag:
		return Guest
	default:
		return Member
	}
}

// IsOwner reports whether id carries the configured owner address. An empty owner address matches nobody.
func IsOwner(id *Identity, ownerEmail string) bool {
	owner := strings.TrimSpace(ownerEmail)
	if id == nil || owner == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(id.Email), owner)
}

// ParseGuestFlag reads the guest flag from a URL query. Only the literal "true" enables it.
func ParseGuestFlag(q url.Values) bool {
	return q.Get(GuestParam) == "true"
}
