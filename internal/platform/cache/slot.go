package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/resilience"
)

// ErrCacheUnavailable marks a backend that could not be read or written.
var ErrCacheUnavailable = crerr.New("cache unavailable")

// Status reports how a Get was served.
type Status string

const (
	StatusHit    Status = "HIT"
	StatusMiss   Status = "MISS"
	StatusBypass Status = "BYPASS"
)

const slotKey = "slot"

// Entry is the cached value with the instant it was produced.
type Entry[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Backend stores the single entry. Load reports ok=false when empty.
type Backend[T any] interface {
	Load(ctx context.Context) (Entry[T], bool, error)
	Store(ctx context.Context, entry Entry[T]) error
	Clear(ctx context.Context) error
}

type Loader[T any] func(ctx context.Context) (T, error)

type options struct {
	clock    clockwork.Clock
	logger   *logging.Logger
	observer func(Status)
}

type Option func(*options)

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver is called once per Get with the resulting status.
func WithObserver(fn func(Status)) Option {
	return func(o *options) { o.observer = fn }
}

// Slot is a single-value TTL cache. Concurrent misses share one loader call.
type Slot[T any] struct {
	backend  Backend[T]
	ttl      time.Duration
	clock    clockwork.Clock
	logger   *logging.Logger
	observer func(Status)
	flight   resilience.SingleFlight[flightResult[T]]
}

type flightResult[T any] struct {
	entry  Entry[T]
	status Status
}

func NewSlot[T any](ttl time.Duration, backend Backend[T], opts ...Option) *Slot[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	if backend == nil {
		backend = NewMemoryBackend[T]()
	}

	return &Slot[T]{
		backend:  backend,
		ttl:      ttl,
		clock:    o.clock,
		logger:   o.logger,
		observer: o.observer,
	}
}

func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the cached entry while fresh, otherwise runs loader once for
// all concurrent callers and stores the result. When the backend fails the
// loader result is returned with StatusBypass and nothing is stored.
func (s *Slot[T]) Get(ctx context.Context, loader Loader[T]) (Entry[T], Status, error) {
	if loader == nil {
		return Entry[T]{}, "", fmt.Errorf("loader is required")
	}

	entry, ok, err := s.backend.Load(ctx)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "cache backend read failed, bypassing", "error", err)
		return s.finish(s.loadShared(ctx, loader, false))
	case ok && s.fresh(entry):
		s.logger.DebugContext(ctx, "cache hit", "age", s.clock.Since(entry.FetchedAt))
		return s.finish(flightResult[T]{entry: entry, status: StatusHit}, nil)
	}

	return s.finish(s.loadShared(ctx, loader, true))
}

// Peek returns the current entry without loading. Stale entries are
// reported with fresh=false.
func (s *Slot[T]) Peek(ctx context.Context) (entry Entry[T], present, fresh bool, err error) {
	entry, present, err = s.backend.Load(ctx)
	if err != nil || !present {
		return Entry[T]{}, false, false, err
	}
	return entry, true, s.fresh(entry), nil
}

// Invalidate empties the slot so the next Get loads.
func (s *Slot[T]) Invalidate(ctx context.Context) error {
	return s.backend.Clear(ctx)
}

func (s *Slot[T]) fresh(entry Entry[T]) bool {
	return s.clock.Since(entry.FetchedAt) < s.ttl
}

func (s *Slot[T]) loadShared(ctx context.Context, loader Loader[T], store bool) (flightResult[T], error) {
	res, err, _ := s.flight.Do(slotKey, func() (flightResult[T], error) {
		if store {
			if cached, ok, loadErr := s.backend.Load(ctx); loadErr == nil && ok && s.fresh(cached) {
				return flightResult[T]{entry: cached, status: StatusHit}, nil
			}
		}

		value, err := loader(ctx)
		if err != nil {
			return flightResult[T]{}, err
		}
		entry := Entry[T]{Value: value, FetchedAt: s.clock.Now()}
		if !store {
			return flightResult[T]{entry: entry, status: StatusBypass}, nil
		}

		if err := s.backend.Store(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "cache backend write failed", "error", err)
			return flightResult[T]{entry: entry, status: StatusBypass}, nil
		}
		return flightResult[T]{entry: entry, status: StatusMiss}, nil
	})
	if err != nil {
		return flightResult[T]{}, err
	}
	return res, nil
}

func (s *Slot[T]) finish(res flightResult[T], err error) (Entry[T], Status, error) {
	if err != nil {
		return Entry[T]{}, "", err
	}
	if s.observer != nil {
		s.observer(res.status)
	}
	return res.entry, res.status, nil
}

// IsUnavailable reports whether err came from a failing backend.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}
