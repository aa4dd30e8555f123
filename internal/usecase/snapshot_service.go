package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/cache"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultBuildTimeout = 10 * time.Second

// CacheStatus is reported to clients with every snapshot.
type CacheStatus string

const (
	CacheHit      CacheStatus = "HIT"
	CacheMiss     CacheStatus = "MISS"
	CacheFallback CacheStatus = "FALLBACK"
)

type SnapshotBuilder interface {
	Build(ctx context.Context) BuildResult
}

type SnapshotResult struct {
	Snapshot    *tournament.Snapshot
	Provenance  tournament.Provenance
	CacheStatus CacheStatus
	FetchedAt   time.Time
}

// SnapshotStatus describes the cached snapshot without loading a new one.
type SnapshotStatus struct {
	Cached     bool              `json:"cached"`
	Fresh      bool              `json:"fresh"`
	Degraded   bool              `json:"degraded"`
	FetchedAt  *time.Time        `json:"fetchedAt,omitempty"`
	AgeSeconds float64           `json:"ageSeconds"`
	TTLSeconds float64           `json:"ttlSeconds"`
	Provenance map[string]string `json:"provenance"`
	Sources    []string          `json:"sources"`
}

type SnapshotServiceConfig struct {
	BuildTimeout time.Duration
	// Sources is the configured priority list, reported by Status.
	Sources []string
}

type SnapshotService struct {
	slot    *cache.Slot[BuildResult]
	builder SnapshotBuilder
	cfg     SnapshotServiceConfig
	clock   clockwork.Clock
	logger  *logging.Logger
}

func NewSnapshotService(
	slot *cache.Slot[BuildResult],
	builder SnapshotBuilder,
	cfg SnapshotServiceConfig,
	clock clockwork.Clock,
	logger *logging.Logger,
) *SnapshotService {
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = defaultBuildTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotService{
		slot:    slot,
		builder: builder,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
}

// Get serves the cached snapshot while fresh and rebuilds it otherwise.
// Concurrent callers during a rebuild share one build.
func (s *SnapshotService) Get(ctx context.Context) (SnapshotResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Get")
	defer span.End()

	entry, status, err := s.slot.Get(ctx, s.load)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("%w: load snapshot: %v", ErrDependencyUnavailable, err)
	}

	result := SnapshotResult{
		Snapshot:    entry.Value.Snapshot,
		Provenance:  entry.Value.Provenance,
		CacheStatus: cacheStatus(status, entry.Value.Provenance),
		FetchedAt:   entry.FetchedAt,
	}
	span.SetAttributes(attribute.String("snapshot.cache", string(result.CacheStatus)))
	if result.CacheStatus == CacheFallback {
		s.logger.WarnContext(ctx, "serving degraded snapshot", "provenance", result.Provenance.String())
	}
	return result, nil
}

// Refresh drops the cached snapshot and builds a new one.
func (s *SnapshotService) Refresh(ctx context.Context) (SnapshotResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Refresh")
	defer span.End()

	if err := s.slot.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "invalidate snapshot cache failed", "error", err)
	}
	s.logger.InfoContext(ctx, "snapshot refresh requested")
	return s.Get(ctx)
}

func (s *SnapshotService) Status(ctx context.Context) (SnapshotStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Status")
	defer span.End()

	out := SnapshotStatus{
		TTLSeconds: s.slot.TTL().Seconds(),
		Provenance: map[string]string{},
		Sources:    append([]string{}, s.cfg.Sources...),
	}

	entry, present, fresh, err := s.slot.Peek(ctx)
	if err != nil {
		return SnapshotStatus{}, fmt.Errorf("%w: read snapshot cache: %v", ErrDependencyUnavailable, err)
	}
	if !present {
		return out, nil
	}

	fetchedAt := entry.FetchedAt
	out.Cached = true
	out.Fresh = fresh
	out.Degraded = entry.Value.Provenance.UsedStatic()
	out.FetchedAt = &fetchedAt
	out.AgeSeconds = s.clock.Since(fetchedAt).Seconds()
	for section, source := range entry.Value.Provenance {
		out.Provenance[string(section)] = source
	}
	return out, nil
}

// load runs detached from the caller so one cancelled request cannot
// abort a build other callers are waiting on.
func (s *SnapshotService) load(ctx context.Context) (BuildResult, error) {
	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BuildTimeout)
	defer cancel()

	started := s.clock.Now()
	result := s.builder.Build(buildCtx)
	s.logger.InfoContext(ctx, "snapshot built",
		"provenance", result.Provenance.String(),
		"duration", s.clock.Since(started),
	)
	return result, nil
}

func cacheStatus(status cache.Status, prov tournament.Provenance) CacheStatus {
	if status == cache.StatusHit {
		return CacheHit
	}
	if prov.UsedStatic() {
		return CacheFallback
	}
	return CacheMiss
}
