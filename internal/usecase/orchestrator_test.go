package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/infrastructure/reference"
	tournamentmock "github.com/riskibarqy/ipl-snapshot/internal/mocks/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 4, 21, 15, 0, 0, 0, time.UTC)

type recordingMetrics struct {
	mu       sync.Mutex
	fetches  map[string]string
	sections map[tournament.Section]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fetches: map[string]string{}, sections: map[tournament.Section]string{}}
}

func (m *recordingMetrics) ObserveSourceFetch(source, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[source] = outcome
}

func (m *recordingMetrics) ObserveSectionProvenance(section tournament.Section, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[section] = source
}

func (m *recordingMetrics) fetch(source string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[source]
}

// funcSource adapts a function for cases a mock cannot express, such as
// ignoring cancellation.
type funcSource struct {
	name string
	fn   func(ctx context.Context) (tournament.PartialSnapshot, error)
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) FetchSnapshot(ctx context.Context) (tournament.PartialSnapshot, error) {
	return s.fn(ctx)
}

func loadReference(t *testing.T) *reference.Dataset {
	t.Helper()

	ds, err := reference.Load(testNow, normalizer.MustDefaultCanonicalizer(), tournament.DefaultScoringRules())
	if err != nil {
		t.Fatalf("load reference: %v", err)
	}
	return ds
}

func newTestOrchestrator(t *testing.T, ref ReferenceData, cfg OrchestratorConfig, metrics SourceMetrics, sources ...tournament.Source) *Orchestrator {
	t.Helper()

	o, err := NewOrchestrator(sources, ref, cfg, clockwork.NewFakeClockAt(testNow), logging.NewNop(), metrics)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}

func namedSource(t *testing.T, name string) *tournamentmock.Source {
	t.Helper()

	src := tournamentmock.NewSource(t)
	src.On("Name").Return(name).Maybe()
	return src
}

func sampleSchedule() []tournament.Match {
	canon := normalizer.MustDefaultCanonicalizer()
	mi := canon.Canonicalize("Mumbai Indians")
	csk := canon.Canonicalize("Chennai Super Kings")
	rr := canon.Canonicalize("Rajasthan Royals")
	dc := canon.Canonicalize("Delhi Capitals")
	return []tournament.Match{
		{ID: "s-1", Team1: mi, Team2: csk, Date: "2024-04-20", Time: "19:30", Venue: "Wankhede", Status: tournament.StatusCompleted, Result: "CSK won"},
		{ID: "s-2", Team1: rr, Team2: dc, Date: "2024-04-22", Time: "15:30", Venue: "Jaipur", Status: tournament.StatusUpcoming},
	}
}

func samplePoints() []tournament.PointsTableEntry {
	canon := normalizer.MustDefaultCanonicalizer()
	return []tournament.PointsTableEntry{
		{Team: canon.Canonicalize("Rajasthan Royals"), Matches: 8, Won: 7, Lost: 1, Points: 14, NetRunRate: 0.698},
		{Team: canon.Canonicalize("Kolkata Knight Riders"), Matches: 7, Won: 5, Lost: 2, Points: 10, NetRunRate: 1.206},
	}
}

func TestOrchestrator_AllSourcesFailServesReference(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	metrics := newRecordingMetrics()

	first := namedSource(t, "iplsite")
	first.On("FetchSnapshot", mock.Anything).Return(tournament.PartialSnapshot{}, tournament.FetchFailed("iplsite", errors.New("status=503"))).Once()
	second := namedSource(t, "cricapi")
	second.On("FetchSnapshot", mock.Anything).Return(tournament.PartialSnapshot{}, tournament.ParseFailed("cricapi", tournament.SectionCompleteSchedule, "bad shape")).Once()

	got := newTestOrchestrator(t, ref, OrchestratorConfig{}, metrics, first, second).Build(context.Background())

	if got.Snapshot != ref.Snapshot() {
		t.Fatalf("expected the reference snapshot itself")
	}
	if !got.Provenance.AllStatic() {
		t.Fatalf("expected static provenance, got %s", got.Provenance)
	}
	if err := got.Snapshot.Validate(); err != nil {
		t.Fatalf("reference snapshot invalid: %v", err)
	}
	if !got.BuiltAt.Equal(testNow) {
		t.Fatalf("unexpected build time %s", got.BuiltAt)
	}
	if metrics.fetch("iplsite") != OutcomeError || metrics.fetch("cricapi") != OutcomeError {
		t.Fatalf("unexpected fetch outcomes %+v", metrics.fetches)
	}
}

func TestOrchestrator_NoSourcesServesReference(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	got := newTestOrchestrator(t, ref, OrchestratorConfig{}, nil).Build(context.Background())
	if got.Snapshot != ref.Snapshot() || !got.Provenance.AllStatic() {
		t.Fatalf("expected reference snapshot, got provenance %s", got.Provenance)
	}
}

func TestOrchestrator_MergesByPriority(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	metrics := newRecordingMetrics()

	primary := tournament.PartialSnapshot{PointsTable: samplePoints()}
	primary.SetLiveMatch(nil)

	secondary := tournament.PartialSnapshot{
		CompleteSchedule: sampleSchedule(),
		UpcomingMatches:  tournament.UpcomingFrom(sampleSchedule(), 0),
		PointsTable:      samplePoints()[:1],
	}

	first := namedSource(t, "iplsite")
	first.On("FetchSnapshot", mock.Anything).Return(primary, nil).Once()
	second := namedSource(t, "cricapi")
	second.On("FetchSnapshot", mock.Anything).Return(secondary, nil).Once()

	got := newTestOrchestrator(t, ref, OrchestratorConfig{}, metrics, first, second).Build(context.Background())

	want := tournament.Provenance{
		tournament.SectionUpcomingMatches:  "cricapi",
		tournament.SectionLiveMatch:        "iplsite",
		tournament.SectionPointsTable:      "iplsite",
		tournament.SectionCompleteSchedule: "cricapi",
	}
	if got.Provenance.String() != want.String() {
		t.Fatalf("provenance=%s want %s", got.Provenance, want)
	}
	if got.Snapshot.LiveMatch != nil {
		t.Fatalf("confirmed absence of a live match must not be replaced by reference data")
	}
	if len(got.Snapshot.PointsTable) != 2 || got.Snapshot.PointsTable[0].Team.ID != "rr" {
		t.Fatalf("expected ranked primary points table, got %+v", got.Snapshot.PointsTable)
	}
	if len(got.Snapshot.UpcomingMatches) != 1 || got.Snapshot.UpcomingMatches[0].ID != "s-2" {
		t.Fatalf("unexpected upcoming %+v", got.Snapshot.UpcomingMatches)
	}
	if err := got.Snapshot.Validate(); err != nil {
		t.Fatalf("merged snapshot invalid: %v", err)
	}
	if metrics.sections[tournament.SectionPointsTable] != "iplsite" {
		t.Fatalf("unexpected section metrics %+v", metrics.sections)
	}
}

func TestOrchestrator_FillsMissingSectionsFromReference(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	only := namedSource(t, "iplsite")
	only.On("FetchSnapshot", mock.Anything).Return(tournament.PartialSnapshot{PointsTable: samplePoints()}, nil).Once()

	got := newTestOrchestrator(t, ref, OrchestratorConfig{}, nil, only).Build(context.Background())

	if got.Provenance[tournament.SectionPointsTable] != "iplsite" {
		t.Fatalf("unexpected provenance %s", got.Provenance)
	}
	if !got.Provenance.UsedStatic() || got.Provenance.AllStatic() {
		t.Fatalf("expected a partial fallback, got %s", got.Provenance)
	}
	if len(got.Snapshot.CompleteSchedule) != len(ref.Snapshot().CompleteSchedule) {
		t.Fatalf("expected reference schedule")
	}
	if got.Snapshot.LiveMatch == nil || got.Snapshot.LiveMatch.ID != ref.Snapshot().LiveMatch.ID {
		t.Fatalf("expected reference live match")
	}
}

func TestOrchestrator_CompleteSourceCancelsTheRest(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	complete := ref.Partial()

	first := namedSource(t, "iplsite")
	first.On("FetchSnapshot", mock.Anything).Return(complete, nil).Once()

	cancelled := make(chan struct{})
	slow := funcSource{name: "cricapi", fn: func(ctx context.Context) (tournament.PartialSnapshot, error) {
		<-ctx.Done()
		close(cancelled)
		return tournament.PartialSnapshot{}, ctx.Err()
	}}

	o := newTestOrchestrator(t, ref, OrchestratorConfig{SourceTimeout: time.Minute}, nil, first, slow)
	got := o.Build(context.Background())

	for _, section := range tournament.AllSections {
		if got.Provenance[section] != "iplsite" {
			t.Fatalf("section %s from %s", section, got.Provenance[section])
		}
	}
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("lower priority source was not cancelled")
	}
}

func TestOrchestrator_TimeoutAndPanicFallThrough(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	metrics := newRecordingMetrics()

	stuck := funcSource{name: "iplsite", fn: func(context.Context) (tournament.PartialSnapshot, error) {
		time.Sleep(500 * time.Millisecond)
		return tournament.PartialSnapshot{PointsTable: samplePoints()}, nil
	}}
	broken := funcSource{name: "cricapi", fn: func(context.Context) (tournament.PartialSnapshot, error) {
		panic("decoder exploded")
	}}
	last := namedSource(t, "livescore")
	last.On("FetchSnapshot", mock.Anything).Return(tournament.PartialSnapshot{CompleteSchedule: sampleSchedule()}, nil).Once()

	cfg := OrchestratorConfig{
		SourceTimeout:  time.Second,
		SourceTimeouts: map[string]time.Duration{"iplsite": 20 * time.Millisecond},
	}
	got := newTestOrchestrator(t, ref, cfg, metrics, stuck, broken, last).Build(context.Background())

	if got.Provenance[tournament.SectionCompleteSchedule] != "livescore" {
		t.Fatalf("unexpected provenance %s", got.Provenance)
	}
	if got.Provenance[tournament.SectionPointsTable] != tournament.StaticSourceName {
		t.Fatalf("timed out source must not contribute, got %s", got.Provenance)
	}
	if metrics.fetch("iplsite") != OutcomeTimeout || metrics.fetch("cricapi") != OutcomePanic || metrics.fetch("livescore") != OutcomeOK {
		t.Fatalf("unexpected outcomes %+v", metrics.fetches)
	}
}

func TestOrchestrator_InvalidMergeServesReference(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	bad := sampleSchedule()
	bad[0].Date = "20 April"

	src := namedSource(t, "iplsite")
	src.On("FetchSnapshot", mock.Anything).Return(tournament.PartialSnapshot{CompleteSchedule: bad}, nil).Once()

	got := newTestOrchestrator(t, ref, OrchestratorConfig{}, nil, src).Build(context.Background())
	if got.Snapshot != ref.Snapshot() || !got.Provenance.AllStatic() {
		t.Fatalf("expected reference fallback, got provenance %s", got.Provenance)
	}
}

func TestOrchestrator_MergeIgnoresCompletionOrder(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	metrics := newRecordingMetrics()

	slowPoints := samplePoints()
	slow := funcSource{name: "iplsite", fn: func(ctx context.Context) (tournament.PartialSnapshot, error) {
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return tournament.PartialSnapshot{}, ctx.Err()
		}
		return tournament.PartialSnapshot{PointsTable: slowPoints}, nil
	}}
	fast := funcSource{name: "cricapi", fn: func(context.Context) (tournament.PartialSnapshot, error) {
		return tournament.PartialSnapshot{
			CompleteSchedule: sampleSchedule(),
			PointsTable:      samplePoints()[:1],
		}, nil
	}}

	cfg := OrchestratorConfig{
		SourceTimeout:  time.Second,
		SourceTimeouts: map[string]time.Duration{"cricapi": 10 * time.Millisecond},
	}
	o := newTestOrchestrator(t, ref, cfg, metrics, slow, fast)

	for i := 0; i < 10; i++ {
		got := o.Build(context.Background())
		if got.Provenance[tournament.SectionPointsTable] != "iplsite" {
			t.Fatalf("build %d: points table from %s", i, got.Provenance[tournament.SectionPointsTable])
		}
		if got.Provenance[tournament.SectionCompleteSchedule] != "cricapi" {
			t.Fatalf("build %d: finished lower priority result dropped, provenance %s", i, got.Provenance)
		}
		if len(got.Snapshot.PointsTable) != len(slowPoints) {
			t.Fatalf("build %d: expected the priority points table, got %d rows", i, len(got.Snapshot.PointsTable))
		}
		if metrics.fetch("cricapi") != OutcomeOK {
			t.Fatalf("build %d: unexpected cricapi outcome %s", i, metrics.fetch("cricapi"))
		}
	}
}

func TestOrchestrator_SaturatedPoolDoesNotBlockBuild(t *testing.T) {
	t.Parallel()

	ref := loadReference(t)
	metrics := newRecordingMetrics()

	release := make(chan struct{})
	stuck := funcSource{name: "iplsite", fn: func(context.Context) (tournament.PartialSnapshot, error) {
		<-release
		return tournament.PartialSnapshot{}, nil
	}}

	cfg := OrchestratorConfig{SourceTimeout: 10 * time.Millisecond, Workers: 1}
	o := newTestOrchestrator(t, ref, cfg, metrics, stuck)
	t.Cleanup(func() { close(release) })

	if got := o.Build(context.Background()); !got.Provenance.AllStatic() {
		t.Fatalf("expected reference data, got %s", got.Provenance)
	}
	if metrics.fetch("iplsite") != OutcomeTimeout {
		t.Fatalf("unexpected first outcome %s", metrics.fetch("iplsite"))
	}

	done := make(chan BuildResult, 1)
	go func() { done <- o.Build(context.Background()) }()
	select {
	case got := <-done:
		if !got.Provenance.AllStatic() {
			t.Fatalf("expected reference data, got %s", got.Provenance)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("build blocked on a saturated worker pool")
	}
	if metrics.fetch("iplsite") != OutcomeError {
		t.Fatalf("unexpected second outcome %s", metrics.fetch("iplsite"))
	}
}
