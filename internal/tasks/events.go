package tasks

// Event is a discrete user-triggered change to a board.
type Event interface {
	Kind() Kind
}

// Kind enumerates the board events.
type Kind int

const (
	KindAdd Kind = iota
	KindReorder
	KindFocus
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindReorder:
		return "reorder"
	case KindFocus:
		return "focus"
	case KindComplete:
		return "complete"
	default:
		return ""
	}
}

// AddTask appends a new stone. ID is generated when empty.
type AddTask struct {
	Text string
	ID   string
}

// Reorder moves TaskID to the position immediately preceding BeforeID.
type Reorder struct {
	TaskID   string
	BeforeID string
}

// Focus moves TaskID from the stones into the bowl.
type Focus struct {
	TaskID string
}

// CompleteFocused discards the task in the bowl.
type CompleteFocused struct{}

func (AddTask) Kind() Kind         { return KindAdd }
func (Reorder) Kind() Kind         { return KindReorder }
func (Focus) Kind() Kind           { return KindFocus }
func (CompleteFocused) Kind() Kind { return KindComplete }
