// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/storage"
)

// ErrInjected is returned by the failing doubles in this package.
var ErrInjected = errors.New("injected failure")

// FlakyStore is a [storage.Memory] that can be told to fail reads or writes.
type FlakyStore struct {
	*storage.Memory

	mu      sync.Mutex
	FailGet bool
	FailSet bool
	Writes  int
}

// NewFlakyStore creates a working store. Flip FailGet or FailSet to inject failures.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Memory: storage.NewMemory()}
}

func (s *FlakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.FailGet
	s.mu.Unlock()
	if fail {
		return "", false, ErrInjected
	}
	return s.Memory.Get(ctx, key)
}

func (s *FlakyStore) Set(ctx context.Context, key, value string) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s *FlakyStore) Remove(ctx context.Context, key string) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Memory.Remove(ctx, key)
}

// WriteCount returns the number of attempted writes.
func (s *FlakyStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Writes
}

func (s *FlakyStore) write() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	if s.FailSet {
		return ErrInjected
	}
	return nil
}

// Snapshot is one recorded save.
type Snapshot struct {
	Board models.Board
	Tier  access.Tier
}

// RecordingSaver records every board handed to it.
type RecordingSaver struct {
	mu    sync.Mutex
	saves []Snapshot
}

func (r *RecordingSaver) Save(b models.Board, tier access.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, Snapshot{Board: b.Clone(), Tier: tier})
}

// Saves returns a copy of the recorded saves.
func (r *RecordingSaver) Saves() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.saves...)
}

// StubGenerator returns canned reflection text after an optional delay.
type StubGenerator struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

func (g *StubGenerator) Generate(ctx context.Context) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.Text, g.Err
}

// Calls returns how many times Generate ran.
func (g *StubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// StubGateway is a [payment.Gateway] returning canned results.
type StubGateway struct {
	Order      payment.Order
	CreateErr  error
	CaptureErr error

	mu       sync.Mutex
	captured []string
}

func (g *StubGateway) CreateOrder(context.Context) (payment.Order, error) {
	return g.Order, g.CreateErr
}

func (g *StubGateway) CaptureOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captured = append(g.captured, orderID)
	return g.CaptureErr
}

// Captured returns the order ids passed to CaptureOrder.
func (g *StubGateway) Captured() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.captured...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

// MustChdir changes into dir and changes back when the test ends.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	prev := MustGetwd(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
