package session

import (
	"sync"
	"testing"

	"github.com/desertthunder/bowlstone/internal/access"
)

func TestHub(t *testing.T) {
	owner := "owner@example.com"

	t.Run("resolves initial signals", func(t *testing.T) {
		hub := NewHub(owner, access.Signals{GuestFlag: true})
		if hub.Current().Tier != access.Guest {
			t.Errorf("expected guest tier, got %v", hub.Current().Tier)
		}
	})

	t.Run("redistributes on every change", func(t *testing.T) {
		hub := NewHub(owner, access.Signals{GuestFlag: true})

		var seen []access.Tier
		unsubscribe := hub.Subscribe(func(c Context) { seen = append(seen, c.Tier) })

		hub.SetPro(true)
		hub.SetIdentity(&access.Identity{Email: owner})
		hub.SetIdentity(nil)
		hub.SetGuest(false)

		want := []access.Tier{access.GuestPro, access.Owner, access.GuestPro, access.Member}
		if len(seen) != len(want) {
			t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
		}
		for i := range want {
			if seen[i] != want[i] {
				t.Errorf("notification %d = %v, want %v", i, seen[i], want[i])
			}
		}

		unsubscribe()
		hub.SetGuest(true)
		if len(seen) != len(want) {
			t.Error("expected no notifications after unsubscribe")
		}
		if hub.Current().Tier != access.GuestPro {
			t.Errorf("expected guest_pro, got %v", hub.Current().Tier)
		}
	})

	t.Run("concurrent setters deliver in order", func(t *testing.T) {
		hub := NewHub(owner, access.Signals{})

		var mu sync.Mutex
		var last access.Tier
		var mismatches int
		hub.Subscribe(func(c Context) {
			mu.Lock()
			defer mu.Unlock()
			if hub.Current() != c {
				mismatches++
			}
			last = c.Tier
		})

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hub.SetGuest(i%2 == 0)
			}()
		}
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		if last != hub.Current().Tier {
			t.Errorf("last delivered tier %v, current %v", last, hub.Current().Tier)
		}
		if mismatches != 0 {
			t.Errorf("%d deliveries were not the current context", mismatches)
		}
	})

	t.Run("Signals round trip", func(t *testing.T) {
		signals := access.Signals{Identity: &access.Identity{Email: "a@example.com"}, ProFlag: true}
		ctx := Resolve(signals, owner)
		if ctx.Signals() != signals {
			t.Errorf("expected %+v, got %+v", signals, ctx.Signals())
		}
		if ctx.Tier != access.Member {
			t.Errorf("expected member, got %v", ctx.Tier)
		}
	})
}
