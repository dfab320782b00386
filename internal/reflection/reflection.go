// Package reflection produces the short daily reflection shown under the bowl.
//
// Generation is best effort. [Daily] bounds every call by a timeout and falls back to [Fallback], so a slow or
// failing generator can never hold up the board.
package reflection

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Fallback is shown whenever generation fails or times out.
const Fallback = "The journey of a thousand miles begins with a single step."

// Prompt asks the model for the reflection.
const Prompt = "Generate a short, calming haiku or a brief Taoist reflection. " +
	"The theme should be about focus, stillness, completing one task at a time, or the quiet strength of a stone. " +
	"The reflection should be no more than three lines."

// MaxLines is the number of lines kept from generated text.
const MaxLines = 3

// ErrEmpty is returned by generators that produced no text.
var ErrEmpty = errors.New("generator returned no text")

// Generator produces one reflection.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// Reflection is the text to show and whether it came from the generator.
type Reflection struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

// Daily asks gen for a reflection, waiting at most timeout.
//
// The generator runs in its own goroutine so one that ignores its context still cannot block the caller.
func Daily(ctx context.Context, gen Generator, timeout time.Duration) Reflection {
	if gen == nil {
		return Reflection{Text: Fallback}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := gen.Generate(ctx)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		text := Clean(r.text)
		if r.err != nil || text == "" {
			return Reflection{Text: Fallback}
		}
		return Reflection{Text: text, Generated: true}
	case <-ctx.Done():
		return Reflection{Text: Fallback}
	}
}

// Clean trims surrounding whitespace and quotes and keeps at most [MaxLines] non-blank lines.
func Clean(text string) string {
	text = strings.Trim(strings.TrimSpace(text), `"`)

	var lines []string
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == MaxLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// Static picks one of a fixed set of reflections.
type Static []string

// Builtin is the reflection set used when no model is configured.
var Builtin = Static{
	Fallback,
	"A stone in the stream\nthe water moves around it\nstillness is its strength",
	"Do one thing.\nWhen it is done, do the next.",
	"Empty the bowl, then fill it.\nThe hand holds one stone at a time.",
	"The sage does not hurry,\nyet everything is accomplished.",
}

func (s Static) Generate(context.Context) (string, error) {
	if len(s) == 0 {
		return "", ErrEmpty
	}
	return s[rand.IntN(len(s))], nil
}

// Cache fetches a reflection once and serves it to every later caller.
type Cache struct {
	gen     Generator
	timeout time.Duration
	logger  *log.Logger

	once  sync.Once
	value Reflection
}

// NewCache wraps gen. logger may be nil.
func NewCache(gen Generator, timeout time.Duration, logger *log.Logger) *Cache {
	return &Cache{gen: gen, timeout: timeout, logger: logger}
}

// Get returns the cached reflection, fetching it on first use.
func (c *Cache) Get(ctx context.Context) Reflection {
	c.once.Do(func() {
		c.value = Daily(ctx, c.gen, c.timeout)
		if c.logger != nil && !c.value.Generated {
			c.logger.Warn("using fallback reflection")
		}
	})
	return c.value
}
