// Package session holds the resolved session context and redistributes it whenever one of its inputs changes.
//
// A [Hub] is the single subscription point for identity changes: providers push the signed-in identity into
// the hub and every component interested in the effective [access.Tier] subscribes to the hub instead of
// subscribing to the identity provider directly.
package session

import (
	"sync"

	"github.com/desertthunder/bowlstone/internal/access"
)

// Context is the resolved session context.
type Context struct {
	Identity  *access.Identity `json:"identity,omitempty"`
	GuestFlag bool             `json:"guest"`
	ProFlag   bool             `json:"pro"`
	Tier      access.Tier      `json:"tier"`
}

// Resolve builds a [Context] from raw signals.
func Resolve(signals access.Signals, ownerEmail string) Context {
	return Context{
		Identity:  signals.Identity,
		GuestFlag: signals.GuestFlag,
		ProFlag:   signals.ProFlag,
		Tier:      access.Resolve(signals, ownerEmail),
	}
}

// Signals returns the raw inputs this context was resolved from.
func (c Context) Signals() access.Signals {
	return access.Signals{Identity: c.Identity, GuestFlag: c.GuestFlag, ProFlag: c.ProFlag}
}

// Hub recomputes the [Context] on every signal change and hands it to subscribers.
//
// Deliveries are serialized in update order, so the last context a subscriber sees is always [Hub.Current].
// Subscribers may call [Hub.Current] but must not change the hub's signals.
type Hub struct {
	deliver     sync.Mutex
	mu          sync.Mutex
	ownerEmail  string
	signals     access.Signals
	current     Context
	nextID      int
	subscribers map[int]func(Context)
}

// NewHub creates a hub with the initial signals already resolved.
func NewHub(ownerEmail string, initial access.Signals) *Hub {
	return &Hub{
		ownerEmail:  ownerEmail,
		signals:     initial,
		current:     Resolve(initial, ownerEmail),
		subscribers: make(map[int]func(Context)),
	}
}

// Current returns the latest resolved context.
func (h *Hub) Current() Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe registers fn to receive every future context. The returned func removes the subscription.
func (h *Hub) Subscribe(fn func(Context)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}
}

// SetIdentity records the signed-in identity, or nil after sign-out.
func (h *Hub) SetIdentity(id *access.Identity) {
	h.update(func(s *access.Signals) { s.Identity = id })
}

// SetGuest records the guest URL flag.
func (h *Hub) SetGuest(guest bool) {
	h.update(func(s *access.Signals) { s.GuestFlag = guest })
}

// SetPro records the stored pro flag.
func (h *Hub) SetPro(pro bool) {
	h.update(func(s *access.Signals) { s.ProFlag = pro })
}

// update applies fn to the signals and notifies subscribers outside the state lock. The delivery lock is
// held across the whole update so concurrent setters cannot reorder notifications.
func (h *Hub) update(fn func(*access.Signals)) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	fn(&h.signals)
	h.current = Resolve(h.signals, h.ownerEmail)
	ctx := h.current
	subs := make([]func(Context), 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub(ctx)
	}
}
