package onboarding

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
	tu "github.com/desertthunder/bowlstone/internal/testing"
)

func TestStep(t *testing.T) {
	tt := []struct {
		name   string
		event  Event
		want   Model
		effect Effect
	}{
		{name: "owner", event: Loaded{Tier: access.Owner}, want: Model{State: Seen}, effect: Effect{WriteDurable: true}},
		{name: "owner with session flag unset", event: Loaded{Tier: access.Owner, SessionSeen: false, DurableSeen: false}, want: Model{State: Seen}, effect: Effect{WriteDurable: true}},
		{name: "new guest", event: Loaded{Tier: access.Guest}, want: Model{State: Seen, Open: true}, effect: Effect{WriteSession: true}},
		{name: "returning guest", event: Loaded{Tier: access.Guest, SessionSeen: true}, want: Model{State: Seen}},
		{name: "guest ignores durable flag", event: Loaded{Tier: access.GuestPro, DurableSeen: true}, want: Model{State: Seen, Open: true}, effect: Effect{WriteSession: true}},
		{name: "new member", event: Loaded{Tier: access.Member}, want: Model{State: Unseen, Open: true}},
		{name: "member ignores session flag", event: Loaded{Tier: access.Member, SessionSeen: true}, want: Model{State: Unseen, Open: true}},
		{name: "returning member", event: Loaded{Tier: access.Member, DurableSeen: true}, want: Model{State: Seen}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, effect := Step(Model{}, tc.event)
			if got != tc.want {
				t.Errorf("model = %+v, want %+v", got, tc.want)
			}
			if effect != tc.effect {
				t.Errorf("effect = %+v, want %+v", effect, tc.effect)
			}
		})
	}

	t.Run("member confirm", func(t *testing.T) {
		got, effect := Step(Model{State: Unseen, Open: true}, Confirmed{Tier: access.Member})
		if got != (Model{State: Seen}) || !effect.WriteDurable {
			t.Errorf("unexpected transition %+v %+v", got, effect)
		}
	})

	t.Run("guest confirm writes nothing durable", func(t *testing.T) {
		got, effect := Step(Model{State: Seen, Open: true}, Confirmed{Tier: access.Guest})
		if got.Open || effect != (Effect{}) {
			t.Errorf("unexpected transition %+v %+v", got, effect)
		}
	})

	t.Run("close keeps the state", func(t *testing.T) {
		got, effect := Step(Model{State: Unseen, Open: true}, Closed{})
		if got != (Model{State: Unseen}) || effect != (Effect{}) {
			t.Errorf("unexpected transition %+v %+v", got, effect)
		}
	})
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	seen := func(s storage.Store) bool {
		v, _, _ := s.Get(ctx, persist.KeyHelpSeen)
		return v == "true"
	}

	t.Run("owner never sees the dialog", func(t *testing.T) {
		durable, sess := storage.NewMemory(), storage.NewMemory()
		_ = sess.Set(ctx, persist.KeyHelpSeen, "false")
		g := NewGate(durable, sess, logger)

		if g.Open(ctx, access.Owner) {
			t.Error("dialog opened for owner")
		}
		if g.Model().State != Seen {
			t.Error("expected owner to be seen")
		}
		if !seen(durable) {
			t.Error("expected durable flag to be written")
		}
	})

	t.Run("guest sees it once per session", func(t *testing.T) {
		durable := storage.NewMemory()
		sess := storage.NewMemory()

		if !NewGate(durable, sess, logger).Open(ctx, access.Guest) {
			t.Fatal("expected dialog to open")
		}
		if !seen(sess) {
			t.Error("expected session flag to be written on open")
		}
		if seen(durable) {
			t.Error("guest wrote the durable flag")
		}
		if NewGate(durable, sess, logger).Open(ctx, access.Guest) {
			t.Error("dialog opened twice in one session")
		}
		if !NewGate(durable, storage.NewMemory(), logger).Open(ctx, access.Guest) {
			t.Error("expected dialog again in a new session")
		}
	})

	t.Run("member sees it until confirming", func(t *testing.T) {
		durable := storage.NewMemory()

		g := NewGate(durable, storage.NewMemory(), logger)
		if !g.Open(ctx, access.Member) {
			t.Fatal("expected dialog to open")
		}
		g.Close()
		if seen(durable) {
			t.Error("closing wrote the durable flag")
		}

		g = NewGate(durable, storage.NewMemory(), logger)
		if !g.Open(ctx, access.Member) {
			t.Fatal("expected dialog to open again")
		}
		g.Confirm(ctx, access.Member)
		if g.Model().Open || !seen(durable) {
			t.Error("expected confirm to close and persist")
		}

		if NewGate(durable, storage.NewMemory(), logger).Open(ctx, access.Member) {
			t.Error("dialog opened after confirming")
		}
	})

	t.Run("storage failures are swallowed", func(t *testing.T) {
		durable := tu.NewFlakyStore()
		durable.FailGet = true
		durable.FailSet = true
		g := NewGate(durable, storage.NewMemory(), logger)

		if !g.Open(ctx, access.Member) {
			t.Error("expected unreadable flag to count as unseen")
		}
		g.Confirm(ctx, access.Member)
		if g.Model().State != Seen {
			t.Error("expected in-memory state to be seen")
		}
	})
}

func TestHelp(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		md := HelpMarkdown(false)
		for _, s := range HelpSteps {
			if !strings.Contains(md, s.Title) {
				t.Errorf("missing step %q", s.Title)
			}
		}
		if !strings.Contains(md, "Don't Show Again") {
			t.Error("expected member footer")
		}
		if !strings.Contains(HelpMarkdown(true), "Sign up") {
			t.Error("expected guest footer")
		}
	})

	t.Run("render", func(t *testing.T) {
		out, err := RenderHelp(true, 60, "notty")
		if err != nil {
			t.Fatalf("RenderHelp failed: %v", err)
		}
		if !strings.Contains(out, "Settle In") {
			t.Errorf("expected rendered help to contain the first step, got:\n%s", out)
		}
	})
}
