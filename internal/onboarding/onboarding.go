// Package onboarding decides when the help dialog opens and remembers that it has been seen.
//
// The "seen" flag lives in a different scope per tier:
//
//	Owner            always seen, the dialog never opens
//	Guest, GuestPro  session scope, marked seen as soon as the dialog opens
//	Member           durable scope, marked seen only on "Don't Show Again"
package onboarding

import "github.com/desertthunder/bowlstone/internal/access"

// State is the onboarding flag.
type State int

const (
	Unseen State = iota
	Seen
)

func (s State) String() string {
	if s == Seen {
		return "seen"
	}
	return "unseen"
}

// Model is the gate state: the flag and whether the dialog is showing.
type Model struct {
	State State
	Open  bool
}

// Event drives [Step].
type Event interface{ isEvent() }

// Loaded fires when a session starts, carrying the stored flags.
type Loaded struct {
	Tier        access.Tier
	SessionSeen bool
	DurableSeen bool
}

// Confirmed fires on "Don't Show Again".
type Confirmed struct {
	Tier access.Tier
}

// Closed fires when the dialog is dismissed without confirming.
type Closed struct{}

func (Loaded) isEvent()    {}
func (Confirmed) isEvent() {}
func (Closed) isEvent()    {}

// Effect lists the flag writes a transition requires.
type Effect struct {
	WriteSession bool
	WriteDurable bool
}

// Step returns the next model and the writes to perform.
func Step(m Model, e Event) (Model, Effect) {
	switch ev := e.(type) {
	case Loaded:
		switch {
		case ev.Tier == access.Owner:
			return Model{State: Seen}, Effect{WriteDurable: true}
		case ev.Tier.IsGuest():
			if ev.SessionSeen {
				return Model{State: Seen}, Effect{}
			}
			return Model{State: Seen, Open: true}, Effect{WriteSession: true}
		default:
			if ev.DurableSeen {
				return Model{State: Seen}, Effect{}
			}
			return Model{State: Unseen, Open: true}, Effect{}
		}
	case Confirmed:
		if ev.Tier.IsGuest() {
			return Model{State: m.State}, Effect{}
		}
		return Model{State: Seen}, Effect{WriteDurable: true}
	case Closed:
		return Model{State: m.State}, Effect{}
	default:
		return m, Effect{}
	}
}
