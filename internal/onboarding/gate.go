package onboarding

import (
	"context"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
)

// Gate runs [Step] against a durable store and one session's store.
type Gate struct {
	durable storage.Store
	session storage.Store
	logger  *log.Logger

	mu    sync.Mutex
	model Model
}

// NewGate creates a gate for one session.
func NewGate(durable, session storage.Store, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gate{durable: durable, session: session, logger: logger}
}

// Open applies the stored flags for tier and reports whether the dialog should show.
func (g *Gate) Open(ctx context.Context, tier access.Tier) bool {
	ev := Loaded{
		Tier:        tier,
		SessionSeen: g.read(ctx, g.session),
		DurableSeen: g.read(ctx, g.durable),
	}
	return g.step(ctx, ev).Open
}

// Confirm handles "Don't Show Again".
func (g *Gate) Confirm(ctx context.Context, tier access.Tier) {
	g.step(ctx, Confirmed{Tier: tier})
}

// Close hides the dialog without recording anything.
func (g *Gate) Close() {
	g.step(context.Background(), Closed{})
}

// Model returns the current gate state.
func (g *Gate) Model() Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model
}

func (g *Gate) step(ctx context.Context, ev Event) Model {
	g.mu.Lock()
	next, effect := Step(g.model, ev)
	g.model = next
	g.mu.Unlock()

	if effect.WriteSession {
		g.write(ctx, g.session, "session")
	}
	if effect.WriteDurable {
		g.write(ctx, g.durable, "durable")
	}
	return next
}

func (g *Gate) read(ctx context.Context, s storage.Store) bool {
	raw, ok, err := s.Get(ctx, persist.KeyHelpSeen)
	if err != nil {
		g.logger.Warn("failed to read help flag", "error", err)
		return false
	}
	seen, _ := strconv.ParseBool(raw)
	return ok && seen
}

func (g *Gate) write(ctx context.Context, s storage.Store, scope string) {
	if err := s.Set(ctx, persist.KeyHelpSeen, strconv.FormatBool(true)); err != nil {
		g.logger.Warn("failed to write help flag", "scope", scope, "error", err)
	}
}
