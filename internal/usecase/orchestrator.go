package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultSourceTimeout = 4 * time.Second

// Source fetch outcomes reported to SourceMetrics.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// ReferenceData is the bundled snapshot used when no source supplies a section.
type ReferenceData interface {
	Snapshot() *tournament.Snapshot
	Partial() tournament.PartialSnapshot
}

type SourceMetrics interface {
	ObserveSourceFetch(source, outcome string)
	ObserveSectionProvenance(section tournament.Section, source string)
}

type noopSourceMetrics struct{}

func (noopSourceMetrics) ObserveSourceFetch(string, string) {}

func (noopSourceMetrics) ObserveSectionProvenance(tournament.Section, string) {}

type OrchestratorConfig struct {
	SourceTimeout  time.Duration
	SourceTimeouts map[string]time.Duration
	Workers        int
	UpcomingLimit  int
}

// BuildResult is one assembled snapshot with the origin of every section.
type BuildResult struct {
	Snapshot   *tournament.Snapshot  `json:"snapshot"`
	Provenance tournament.Provenance `json:"provenance"`
	BuiltAt    time.Time             `json:"builtAt"`
}

type Orchestrator struct {
	sources   []tournament.Source
	reference ReferenceData
	cfg       OrchestratorConfig
	pool      *ants.Pool
	clock     clockwork.Clock
	logger    *logging.Logger
	metrics   SourceMetrics
}

// NewOrchestrator takes sources in priority order, highest first.
func NewOrchestrator(
	sources []tournament.Source,
	reference ReferenceData,
	cfg OrchestratorConfig,
	clock clockwork.Clock,
	logger *logging.Logger,
	metrics SourceMetrics,
) (*Orchestrator, error) {
	if reference == nil || reference.Snapshot() == nil {
		return nil, fmt.Errorf("reference snapshot is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = noopSourceMetrics{}
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = defaultSourceTimeout
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = tournament.DefaultUpcomingLimit
	}

	// Room for two builds in flight.
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2 * len(sources)
	}
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create source worker pool: %w", err)
	}

	return &Orchestrator{
		sources:   append([]tournament.Source(nil), sources...),
		reference: reference,
		cfg:       cfg,
		pool:      pool,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

func (o *Orchestrator) SourceNames() []string {
	out := make([]string, 0, len(o.sources))
	for _, src := range o.sources {
		out = append(out, src.Name())
	}
	return out
}

type fetchOutcome struct {
	partial tournament.PartialSnapshot
	err     error
	outcome string
}

type pendingFetch struct {
	source tournament.Source
	ctx    context.Context
	done   chan fetchOutcome
}

// await waits for the fetch or its deadline. A result that is already
// delivered wins over an expired deadline.
func (p pendingFetch) await() fetchOutcome {
	select {
	case res := <-p.done:
		return res
	case <-p.ctx.Done():
	}

	select {
	case res := <-p.done:
		return res
	default:
		return fetchOutcome{err: tournament.FetchFailed(p.source.Name(), p.ctx.Err()), outcome: OutcomeTimeout}
	}
}

// Build queries every source concurrently and merges their sections in
// priority order: a section is taken from the first source that has it.
// Once every section is filled the remaining fetches are cancelled. Missing
// sections come from the reference data. Build never fails.
func (o *Orchestrator) Build(ctx context.Context) BuildResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.Orchestrator.Build")
	defer span.End()

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make([]pendingFetch, 0, len(o.sources))
	for _, src := range o.sources {
		sctx, scancel := context.WithTimeout(fanCtx, o.timeoutFor(src.Name()))
		defer scancel()

		p := pendingFetch{source: src, ctx: sctx, done: make(chan fetchOutcome, 1)}
		if err := o.pool.Submit(func() { p.done <- o.fetch(p.ctx, p.source) }); err != nil {
			o.logger.WarnContext(ctx, "source worker pool saturated", "source", src.Name(), "error", err)
			p.done <- fetchOutcome{err: tournament.FetchFailed(src.Name(), err), outcome: OutcomeError}
		}
		pending = append(pending, p)
	}

	var acc tournament.PartialSnapshot
	prov := tournament.Provenance{}

	for _, p := range pending {
		if acc.Complete() {
			break
		}

		res := p.await()
		name := p.source.Name()
		o.metrics.ObserveSourceFetch(name, res.outcome)
		if res.err != nil {
			o.logger.WarnContext(ctx, "source fetch failed", "source", name, "outcome", res.outcome, "error", res.err)
			continue
		}

		for _, section := range tournament.AllSections {
			if acc.Has(section) || !res.partial.Has(section) {
				continue
			}
			acc.Adopt(res.partial, section)
			prov[section] = name
		}
		o.logger.DebugContext(ctx, "source merged", "source", name, "sections", res.partial.Sections())
	}
	cancel()

	if len(prov) == 0 && len(o.sources) > 0 {
		o.logger.WarnContext(ctx, "no source contributed, serving reference data", "error", tournament.ErrAllSourcesExhausted)
	}

	ref := o.reference.Partial()
	for _, section := range tournament.AllSections {
		if _, ok := prov[section]; ok {
			continue
		}
		acc.Adopt(ref, section)
		prov[section] = tournament.StaticSourceName
		o.logger.WarnContext(ctx, "section filled from reference data", "section", section)
	}

	snapshot := o.reference.Snapshot()
	if !prov.AllStatic() {
		built := tournament.Finalize(acc, o.cfg.UpcomingLimit)
		if err := built.Validate(); err != nil {
			o.logger.ErrorContext(ctx, "merged snapshot invalid, serving reference data", "provenance", prov.String(), "error", err)
			prov = staticProvenance()
		} else {
			snapshot = built
		}
	}

	for _, section := range tournament.AllSections {
		o.metrics.ObserveSectionProvenance(section, prov[section])
	}
	span.SetAttributes(attribute.String("snapshot.provenance", prov.String()))

	return BuildResult{Snapshot: snapshot, Provenance: prov, BuiltAt: o.clock.Now()}
}

func (o *Orchestrator) fetch(ctx context.Context, src tournament.Source) (res fetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			res = fetchOutcome{err: tournament.FetchFailed(src.Name(), fmt.Errorf("panic: %v", r)), outcome: OutcomePanic}
		}
	}()

	partial, err := src.FetchSnapshot(ctx)
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fetchOutcome{err: err, outcome: OutcomeTimeout}
	case err != nil:
		return fetchOutcome{err: err, outcome: OutcomeError}
	case partial.Empty():
		return fetchOutcome{partial: partial, outcome: OutcomeEmpty}
	default:
		return fetchOutcome{partial: partial, outcome: OutcomeOK}
	}
}

func (o *Orchestrator) timeoutFor(name string) time.Duration {
	if d, ok := o.cfg.SourceTimeouts[strings.ToLower(name)]; ok && d > 0 {
		return d
	}
	return o.cfg.SourceTimeout
}

func staticProvenance() tournament.Provenance {
	prov := make(tournament.Provenance, len(tournament.AllSections))
	for _, section := range tournament.AllSections {
		prov[section] = tournament.StaticSourceName
	}
	return prov
}
