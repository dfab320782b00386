// package models defines the data model for the bowl and stone task tool
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Task is a single pending item ("stone").
type Task struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Board holds the ordered stone list and the single focus slot ("bowl").
//
// The bowl's task is never also present in Stones and no two tasks share an id.
type Board struct {
	Stones []Task `json:"stones"`
	Bowl   *Task  `json:"bowl"`
}

// SeedStones returns the built-in example list shown to first-time users.
func SeedStones() []Task {
	return []Task{
		{ID: "1", Text: "Respond to important emails"},
		{ID: "2", Text: "Prepare presentation for tomorrow"},
		{ID: "3", Text: "Go for a 15-minute walk"},
		{ID: "4", Text: "Meditate for 5 minutes"},
		{ID: "5", Text: "Plan dinner for tonight"},
	}
}

// SeedBoard returns a board with the seed list and an empty bowl.
func SeedBoard() Board {
	return Board{Stones: SeedStones()}
}

// Clone returns a deep copy so callers can never alias another board's slice or bowl.
func (b Board) Clone() Board {
	out := Board{Stones: make([]Task, len(b.Stones))}
	copy(out.Stones, b.Stones)
	if b.Bowl != nil {
		bowl := *b.Bowl
		out.Bowl = &bowl
	}
	return out
}

// Load is the number of tasks the board carries: every stone plus the bowl, if occupied.
func (b Board) Load() int {
	if b.Bowl != nil {
		return len(b.Stones) + 1
	}
	return len(b.Stones)
}

// IndexOf returns the position of id in Stones, or -1.
func (b Board) IndexOf(id string) int {
	for i, t := range b.Stones {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the board invariants.
func (b Board) Validate() error {
	seen := make(map[string]bool, b.Load())
	for _, t := range b.Stones {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
	}

	if b.Bowl != nil {
		if err := b.Bowl.Validate(); err != nil {
			return err
		}
		if seen[b.Bowl.ID] {
			return fmt.Errorf("bowl task %q is also in the stone list", b.Bowl.ID)
		}
	}

	return nil
}

// Validate checks that the task has an id and non-blank text.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("task %q has no text", t.ID)
	}
	return nil
}

// Equal reports whether two boards hold the same tasks in the same order.
func (b Board) Equal(other Board) bool {
	if len(b.Stones) != len(other.Stones) {
		return false
	}
	for i := range b.Stones {
		if b.Stones[i] != other.Stones[i] {
			return false
		}
	}
	switch {
	case b.Bowl == nil && other.Bowl == nil:
		return true
	case b.Bowl == nil || other.Bowl == nil:
		return false
	default:
		return *b.Bowl == *other.Bowl
	}
}
