package persist

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
)

const writeTimeout = 5 * time.Second

// Writer persists a board snapshot. [Adapter] implements it.
type Writer interface {
	Save(ctx context.Context, b models.Board, tier access.Tier) error
}

type snapshot struct {
	board models.Board
	tier  access.Tier
}

// AsyncSaver writes board snapshots in the background.
//
// Snapshots coalesce: only the latest pending one is written. Writes are paced by a token bucket and a failed
// write is logged and dropped, the in-memory board stays authoritative.
type AsyncSaver struct {
	writer  Writer
	limiter *rate.Limiter
	logger  *log.Logger

	// OnError is called after a failed write.
	OnError func(error)

	mu      sync.Mutex
	pending *snapshot
	closed  bool

	kick  chan struct{}
	flush chan chan struct{}
	quit  chan struct{}
	done  chan struct{}
	stop  context.CancelFunc
	ctx   context.Context
}

// NewAsyncSaver starts a saver writing at most perSecond snapshots per second. Non-positive rates are unlimited.
func NewAsyncSaver(w Writer, perSecond float64, logger *log.Logger) *AsyncSaver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &AsyncSaver{
		writer:  w,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		kick:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		stop:    cancel,
		ctx:     ctx,
	}
	go s.run()
	return s
}

// Save queues a snapshot and returns immediately. Tiers that do not persist are ignored.
func (s *AsyncSaver) Save(b models.Board, tier access.Tier) {
	if !tier.Persists() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("save after close dropped", "tier", tier)
		return
	}
	s.pending = &snapshot{board: b.Clone(), tier: tier}
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush writes the pending snapshot, if any, and waits for it or for ctx.
func (s *AsyncSaver) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case s.flush <- ack:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes the pending snapshot and stops the background writer.
func (s *AsyncSaver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stop()
	close(s.quit)
	<-s.done
	return nil
}

func (s *AsyncSaver) run() {
	defer close(s.done)
	for {
		select {
		case <-s.kick:
			// Close cancels the wait so shutdown never blocks on the limiter.
			_ = s.limiter.Wait(s.ctx)
			s.write()
		case ack := <-s.flush:
			s.write()
			close(ack)
		case <-s.quit:
			s.write()
			return
		}
	}
}

func (s *AsyncSaver) write() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.writer.Save(ctx, snap.board, snap.tier); err != nil {
		s.logger.Warn("failed to save board", "tier", snap.tier, "stones", len(snap.board.Stones), "error", err)
		if s.OnError != nil {
			s.OnError(err)
		}
		return
	}
	s.logger.Debug("board saved", "tier", snap.tier, "stones", len(snap.board.Stones))
}
