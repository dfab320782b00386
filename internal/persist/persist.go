// Package persist mirrors the board and the pro flag into a durable [storage.Store].
//
// Reads never fail: missing or malformed data falls back to the seed list and an empty bowl.
// Writes are skipped for guest tiers so a guest session can never overwrite a saved list on a shared machine.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
)

// Storage keys.
const (
	KeyStones   = "stones"
	KeyBowl     = "bowl"
	KeyPro      = "isPro"
	KeyHelpSeen = "hasSeenHelpDialog"
	KeyIdentity = "identity"
)

var errMalformed = errors.New("malformed board data")

// Adapter reads and writes the board mirror.
type Adapter struct {
	store  storage.Store
	logger *log.Logger
}

// New creates an [Adapter] over the durable store.
func New(store storage.Store, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Adapter{store: store, logger: logger}
}

// Load returns the stored board for tier.
//
// A plain guest sees at most the first [access.GuestLimit] stones and no bowl. The store is never written.
func (a *Adapter) Load(ctx context.Context, tier access.Tier) models.Board {
	b, err := a.read(ctx)
	if err != nil {
		a.logger.Warn("using default board", "tier", tier, "error", err)
		b = models.SeedBoard()
	}

	b = sanitize(b)
	if tier == access.Guest {
		b.Bowl = nil
		if len(b.Stones) > access.GuestLimit {
			b.Stones = b.Stones[:access.GuestLimit]
		}
	}
	return b
}

func (a *Adapter) read(ctx context.Context) (models.Board, error) {
	b := models.Board{}

	raw, ok, err := a.store.Get(ctx, KeyStones)
	if err != nil {
		return b, err
	}
	if !ok {
		b.Stones = models.SeedStones()
	} else if err := json.Unmarshal([]byte(raw), &b.Stones); err != nil {
		return b, fmt.Errorf("%w: %s: %v", errMalformed, KeyStones, err)
	} else if b.Stones == nil {
		return b, fmt.Errorf("%w: %s is null", errMalformed, KeyStones)
	}

	raw, ok, err = a.store.Get(ctx, KeyBowl)
	if err != nil {
		return b, err
	}
	if ok {
		var bowl *models.Task
		if err := json.Unmarshal([]byte(raw), &bowl); err != nil {
			return b, fmt.Errorf("%w: %s: %v", errMalformed, KeyBowl, err)
		}
		b.Bowl = bowl
	}

	return b, nil
}

// sanitize drops tasks without an id or text, repeated ids, and any stone duplicating the bowl task.
func sanitize(b models.Board) models.Board {
	if b.Bowl != nil && b.Bowl.Validate() != nil {
		b.Bowl = nil
	}

	seen := make(map[string]bool, len(b.Stones)+1)
	if b.Bowl != nil {
		seen[b.Bowl.ID] = true
	}

	stones := make([]models.Task, 0, len(b.Stones))
	for _, t := range b.Stones {
		if t.Validate() != nil || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		stones = append(stones, t)
	}
	b.Stones = stones
	return b
}

// Save writes the board for tier. Guest tiers are a no-op.
//
// An empty bowl removes the bowl key, so a later [Adapter.Load] sees the slot as absent.
func (a *Adapter) Save(ctx context.Context, b models.Board, tier access.Tier) error {
	if !tier.Persists() {
		return nil
	}

	stones := b.Stones
	if stones == nil {
		stones = []models.Task{}
	}
	data, err := json.Marshal(stones)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	if err := a.store.Set(ctx, KeyStones, string(data)); err != nil {
		return err
	}

	if b.Bowl == nil {
		return a.store.Remove(ctx, KeyBowl)
	}

	data, err = json.Marshal(b.Bowl)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageWrite, err)
	}
	return a.store.Set(ctx, KeyBowl, string(data))
}

// ProFlag reports whether the one-time unlock was recorded. Read failures count as not unlocked.
func (a *Adapter) ProFlag(ctx context.Context) bool {
	raw, ok, err := a.store.Get(ctx, KeyPro)
	if err != nil {
		a.logger.Warn("failed to read pro flag", "error", err)
		return false
	}
	if !ok {
		return false
	}
	pro, err := strconv.ParseBool(raw)
	return err == nil && pro
}

// SetProFlag records the one-time unlock.
func (a *Adapter) SetProFlag(ctx context.Context) error {
	return a.store.Set(ctx, KeyPro, strconv.FormatBool(true))
}
