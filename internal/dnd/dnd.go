// Package dnd drives the board from pick-up and release gestures.
//
// A [Controller] owns one board and the session context it is edited under. Each operation runs the task
// reducer, and every committed change is handed to a [Saver]. Gestures that change nothing are never saved.
package dnd

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/metrics"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/tasks"
)

// GuestLimitNotice is shown when a guest tries to add past the limit.
var GuestLimitNotice = shared.Notice{
	Title:       "Guest Limit Reached",
	Description: "Please create an account to add more stones.",
}

// Saver receives every committed board. Implementations must not block.
type Saver interface {
	Save(b models.Board, tier access.Tier)
}

// Loader reads the stored board for a tier.
type Loader interface {
	Load(ctx context.Context, tier access.Tier) models.Board
}

// Outcome reports what an operation did.
type Outcome struct {
	Changed bool           `json:"changed"`
	Notice  *shared.Notice `json:"notice,omitempty"`
}

// Options configures a [Controller]. Every field is optional.
type Options struct {
	Saver   Saver
	Loader  Loader
	Logger  *log.Logger
	Metrics *metrics.Metrics
	NewID   tasks.IDFunc
}

// Controller applies gestures and buttons to a board.
type Controller struct {
	mu        sync.Mutex
	board     models.Board
	sc        session.Context
	focusMode bool

	reducer tasks.Reducer
	saver   Saver
	loader  Loader
	logger  *log.Logger
	metrics *metrics.Metrics
}

// New creates a controller over board, edited under sc.
func New(board models.Board, sc session.Context, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Controller{
		board:   board.Clone(),
		sc:      sc,
		reducer: tasks.Reducer{NewID: opts.NewID},
		saver:   opts.Saver,
		loader:  opts.Loader,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Board returns a copy of the current board.
func (c *Controller) Board() models.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Clone()
}

// Session returns the session context the board is edited under.
func (c *Controller) Session() session.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sc
}

// SetContext switches to a new session context.
//
// Capacity follows the new tier immediately. The board is reloaded from storage whenever the tier starts or
// stops persisting, and whenever a plain guest tier is entered, so a guest never carries more than the
// guest load and a saved board is never overwritten by a guest one. A guest unlocking pro keeps the board
// it has.
func (c *Controller) SetContext(sc session.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.sc.Tier
	c.sc = sc
	if c.loader != nil && needsReload(prev, sc.Tier) {
		c.board = c.loader.Load(context.Background(), sc.Tier)
		c.logger.Info("board reloaded for new tier", "from", prev, "to", sc.Tier, "stones", len(c.board.Stones))
	}
}

func needsReload(from, to access.Tier) bool {
	if from.Persists() != to.Persists() {
		return true
	}
	return to == access.Guest && from != access.Guest
}

// SetFocusMode toggles the fixed focus display, which disables the bowl as a drop target.
func (c *Controller) SetFocusMode(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focusMode = on
}

// SlotDisabled reports whether a drop on the bowl would be rejected.
func (c *Controller) SlotDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotDisabled()
}

func (c *Controller) slotDisabled() bool {
	return c.focusMode || c.board.Bowl != nil
}

// LimitReached reports whether the current tier has no room for another stone.
func (c *Controller) LimitReached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !tasks.CanAdd(c.board, c.sc.Tier)
}

// Add appends a stone. Blank text is ignored and a full guest board yields [GuestLimitNotice].
func (c *Controller) Add(text string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !tasks.CanAdd(c.board, c.sc.Tier) {
		c.metrics.IncrementCapacityRefusals()
		c.logger.Info("add refused", "tier", c.sc.Tier, "load", c.board.Load())
		notice := GuestLimitNotice
		return Outcome{Notice: &notice}
	}

	if !c.apply(tasks.AddTask{Text: text}) {
		return Outcome{}
	}
	c.metrics.IncrementTasksAdded()
	return Outcome{Changed: true}
}

// Drop applies a released gesture.
//
//   - over the bowl: focus the task, unless the bowl is disabled
//   - over another stone: move the task just before it
//   - over nothing or over itself: nothing happens
func (c *Controller) Drop(g Gesture) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ev tasks.Event
	switch {
	case g.ActiveID == "":
	case g.Over.Kind == TargetSlot:
		if c.slotDisabled() {
			c.metrics.IncrementDrops(metrics.DropRejected)
			c.logger.Debug("drop on disabled bowl", "task", g.ActiveID, "focus_mode", c.focusMode)
			return Outcome{}
		}
		ev = tasks.Focus{TaskID: g.ActiveID}
	case g.Over.Kind == TargetTask && g.Over.ID != g.ActiveID:
		ev = tasks.Reorder{TaskID: g.ActiveID, BeforeID: g.Over.ID}
	}

	if ev == nil || !c.apply(ev) {
		c.metrics.IncrementDrops(metrics.DropNoop)
		return Outcome{}
	}

	if ev.Kind() == tasks.KindFocus {
		c.metrics.IncrementDrops(metrics.DropFocused)
	} else {
		c.metrics.IncrementDrops(metrics.DropReorder)
	}
	return Outcome{Changed: true}
}

// Swap moves taskID into the bowl even when it is occupied, sending the current bowl task back to the stones.
func (c *Controller) Swap(taskID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.apply(tasks.Focus{TaskID: taskID}) {
		return Outcome{}
	}
	c.metrics.IncrementDrops(metrics.DropFocused)
	return Outcome{Changed: true}
}

// Complete discards the bowl task.
func (c *Controller) Complete() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.apply(tasks.CompleteFocused{}) {
		return Outcome{}
	}
	c.metrics.IncrementCompletions()
	return Outcome{Changed: true}
}

// apply runs ev and, if the board changed, commits and saves it. Callers hold c.mu.
func (c *Controller) apply(ev tasks.Event) bool {
	next, changed := c.reducer.Reduce(c.board, ev, c.sc.Tier)
	if !changed {
		return false
	}

	c.board = next
	c.logger.Debug("board changed", "event", ev.Kind(), "tier", c.sc.Tier, "stones", len(next.Stones), "bowl", next.Bowl != nil)
	if c.saver != nil {
		c.saver.Save(next.Clone(), c.sc.Tier)
	}
	return true
}
