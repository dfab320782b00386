package tasks

import (
	"slices"
	"strings"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// IDFunc generates ids for new tasks.
type IDFunc func() string

// Reducer applies events to boards. The zero value generates ids with [shared.GenerateID].
type Reducer struct {
	NewID IDFunc
}

// Reduce applies e with the default reducer.
func Reduce(b models.Board, e Event, tier access.Tier) (models.Board, bool) {
	return Reducer{}.Reduce(b, e, tier)
}

// Reduce returns the board after e and whether anything changed.
//
// The input board is never mutated. When nothing changes the input is returned as is.
func (r Reducer) Reduce(b models.Board, e Event, tier access.Tier) (models.Board, bool) {
	switch ev := e.(type) {
	case AddTask:
		return r.add(b, ev, tier)
	case Reorder:
		return reorder(b, ev.TaskID, ev.BeforeID)
	case Focus:
		return focus(b, ev.TaskID)
	case CompleteFocused:
		return complete(b)
	default:
		return b, false
	}
}

// CanAdd reports whether tier has room for one more task on b.
func CanAdd(b models.Board, tier access.Tier) bool {
	limit, bounded := tier.Capacity()
	return !bounded || b.Load() < limit
}

func (r Reducer) add(b models.Board, ev AddTask, tier access.Tier) (models.Board, bool) {
	text := strings.TrimSpace(ev.Text)
	if text == "" || !CanAdd(b, tier) {
		return b, false
	}

	id := ev.ID
	if id == "" {
		id = r.newID()
	}
	if b.IndexOf(id) >= 0 || (b.Bowl != nil && b.Bowl.ID == id) {
		return b, false
	}

	out := b.Clone()
	out.Stones = append(out.Stones, models.Task{ID: id, Text: text})
	return out, true
}

func (r Reducer) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return shared.GenerateID()
}

func reorder(b models.Board, taskID, beforeID string) (models.Board, bool) {
	if taskID == beforeID {
		return b, false
	}
	from, to := b.IndexOf(taskID), b.IndexOf(beforeID)
	if from < 0 || to < 0 || from == to-1 {
		return b, false
	}

	out := b.Clone()
	moved := out.Stones[from]
	out.Stones = slices.Delete(out.Stones, from, from+1)
	if from < to {
		to--
	}
	out.Stones = slices.Insert(out.Stones, to, moved)
	return out, true
}

func focus(b models.Board, taskID string) (models.Board, bool) {
	i := b.IndexOf(taskID)
	if i < 0 {
		return b, false
	}

	out := b.Clone()
	picked := out.Stones[i]
	out.Stones = slices.Delete(out.Stones, i, i+1)
	if out.Bowl != nil {
		out.Stones = append(out.Stones, *out.Bowl)
	}
	out.Bowl = &picked
	return out, true
}

func complete(b models.Board) (models.Board, bool) {
	if b.Bowl == nil {
		return b, false
	}
	out := b.Clone()
	out.Bowl = nil
	return out, true
}
