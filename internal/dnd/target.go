package dnd

import (
	"fmt"

	"github.com/desertthunder/bowlstone/internal/shared"
)

// TargetKind is what a gesture was released over.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetSlot
	TargetTask
)

func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "none"
	case TargetSlot:
		return "slot"
	case TargetTask:
		return "task"
	default:
		return ""
	}
}

func (k TargetKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TargetKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "none":
		*k = TargetNone
	case "slot", "bowl":
		*k = TargetSlot
	case "task", "stone":
		*k = TargetTask
	default:
		return fmt.Errorf("%w: unknown drop target %q", shared.ErrInvalidInput, text)
	}
	return nil
}

// Target is a drop location. ID is set for [TargetTask].
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// Slot is the bowl as a drop target.
func Slot() Target { return Target{Kind: TargetSlot} }

// OnTask is the position of task id as a drop target.
func OnTask(id string) Target { return Target{Kind: TargetTask, ID: id} }

// Gesture is a completed pick-up and release.
type Gesture struct {
	ActiveID string `json:"active_id"`
	Over     Target `json:"over"`
}
