// Package cricapi reads fixtures and live scores from the CricAPI v1 JSON API.
package cricapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
)

const (
	SourceName     = "cricapi"
	DefaultBaseURL = "https://api.cricapi.com/v1"
	DefaultSeries  = "Indian Premier League"

	seriesInfoPath    = "/series_info"
	seriesMatchesPath = "/series_matches"
	currentPath       = "/currentMatches"
	matchInfoPath     = "/match_info"

	// A fixture this far past kickoff and never flagged as started counts
	// as finished.
	staleKickoff = 12 * time.Hour
)

var ErrMissingAPIKey = errors.New("cricapi key is not configured")

// JSONFetcher decodes a GET response. upstream.Client satisfies it.
type JSONFetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, target any) error
}

type Config struct {
	APIKey string
	Series string
	Rules  tournament.ScoringRules
	Clock  clockwork.Clock
	Logger *logging.Logger
}

type Adapter struct {
	api    JSONFetcher
	canon  *normalizer.Canonicalizer
	apiKey string
	series string
	rules  tournament.ScoringRules
	clock  clockwork.Clock
	logger *logging.Logger
}

func New(api JSONFetcher, canon *normalizer.Canonicalizer, cfg Config) *Adapter {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Rules == (tournament.ScoringRules{}) {
		cfg.Rules = tournament.DefaultScoringRules()
	}
	seriesName := strings.TrimSpace(cfg.Series)
	if seriesName == "" {
		seriesName = DefaultSeries
	}
	return &Adapter{
		api:    api,
		canon:  canon,
		apiKey: strings.TrimSpace(cfg.APIKey),
		series: seriesName,
		rules:  cfg.Rules,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("source", SourceName),
	}
}

func (a *Adapter) Name() string {
	return SourceName
}

// FetchSnapshot resolves the current series, then reads its fixtures and
// the live match. The API has no standings endpoint so the points table is
// never produced here.
func (a *Adapter) FetchSnapshot(ctx context.Context) (tournament.PartialSnapshot, error) {
	if a.apiKey == "" {
		return tournament.PartialSnapshot{}, tournament.FetchFailed(SourceName, ErrMissingAPIKey)
	}

	seriesID, err := a.seriesID(ctx)
	if err != nil {
		return tournament.PartialSnapshot{}, err
	}

	now := a.clock.Now()
	var out tournament.PartialSnapshot

	schedule, scheduleErr := a.schedule(ctx, seriesID, now)
	if scheduleErr != nil {
		a.logger.WarnContext(ctx, "series matches not retrieved", "section", tournament.SectionCompleteSchedule, "error", scheduleErr)
	}

	live, liveErr := a.liveMatch(ctx, seriesID)
	if liveErr != nil {
		a.logger.WarnContext(ctx, "live match not retrieved", "section", tournament.SectionLiveMatch, "error", liveErr)
	} else {
		out.SetLiveMatch(live)
		if live != nil {
			schedule = markLive(schedule, live.Match)
		}
	}

	if scheduleErr != nil && liveErr != nil {
		return tournament.PartialSnapshot{}, tournament.FetchFailed(SourceName, errors.Join(scheduleErr, liveErr))
	}

	if len(schedule) > 0 {
		out.CompleteSchedule = tournament.SortByKickoff(schedule)
		out.UpcomingMatches = tournament.UpcomingFrom(out.CompleteSchedule, 0)
	}
	return out, nil
}

func (a *Adapter) seriesID(ctx context.Context) (string, error) {
	var resp envelope[[]series]
	if err := a.call(ctx, seriesInfoPath, url.Values{"offset": {"0"}, "search": {a.series}}, &resp); err != nil {
		return "", err
	}
	for _, s := range resp.Data {
		if s.ID != "" {
			return s.ID, nil
		}
	}
	return "", tournament.FetchFailed(SourceName, fmt.Errorf("no series matching %q", a.series))
}

func (a *Adapter) schedule(ctx context.Context, seriesID string, now time.Time) ([]tournament.Match, error) {
	var resp envelope[[]match]
	if err := a.call(ctx, seriesMatchesPath, url.Values{"id": {seriesID}}, &resp); err != nil {
		return nil, err
	}

	out := make([]tournament.Match, 0, len(resp.Data))
	for _, raw := range resp.Data {
		m, ok := a.toMatch(raw, now)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, tournament.ParseFailed(SourceName, tournament.SectionCompleteSchedule, "no usable matches in series")
	}
	return out, nil
}

// liveMatch picks the first in-progress match of the series from the
// current matches feed. nil without error means nothing is live.
func (a *Adapter) liveMatch(ctx context.Context, seriesID string) (*tournament.LiveMatch, error) {
	var current envelope[[]match]
	if err := a.call(ctx, currentPath, url.Values{"offset": {"0"}}, &current); err != nil {
		return nil, err
	}

	var candidate *match
	for i := range current.Data {
		m := current.Data[i]
		if m.SeriesID == seriesID && m.MatchStarted && !m.MatchEnded {
			candidate = &m
			break
		}
	}
	if candidate == nil {
		return nil, nil
	}

	var info envelope[match]
	if err := a.call(ctx, matchInfoPath, url.Values{"id": {candidate.ID}}, &info); err != nil {
		return nil, err
	}
	detail := info.Data
	if detail.ID == "" {
		detail = *candidate
	}

	base, ok := a.toMatch(detail, a.clock.Now())
	if !ok {
		return nil, tournament.ParseFailed(SourceName, tournament.SectionLiveMatch, "live match without teams")
	}
	base.Status = tournament.StatusLive
	base.Result = ""

	live := &tournament.LiveMatch{Match: base}
	name1, name2, _ := detail.teamNames()

	// score rows are listed in batting order, whatever the team order.
	var innings []*tournament.Score
	for _, row := range detail.Score {
		score, ok := row.score()
		if !ok {
			continue
		}
		switch {
		case live.Team1Score == nil && inningsOf(row.Inning, name1, base.Team1.Name):
			live.Team1Score = &score
		case live.Team2Score == nil && inningsOf(row.Inning, name2, base.Team2.Name):
			live.Team2Score = &score
		default:
			continue
		}
		innings = append(innings, &score)
	}
	if status := strings.TrimSpace(detail.Status); status != "" {
		live.Commentary = []tournament.Commentary{{Time: base.Time, Text: status}}
	}

	var first, second *tournament.Score
	if len(innings) > 0 {
		first = innings[0]
	}
	if len(innings) > 1 {
		second = innings[1]
	}
	normalizer.InningsRunRates(live, first, second, a.rules)
	return live, nil
}

func (a *Adapter) toMatch(raw match, now time.Time) (tournament.Match, bool) {
	name1, name2, ok := raw.teamNames()
	if !ok || raw.ID == "" {
		return tournament.Match{}, false
	}

	date, clock, ok := normalizer.ParseKickoff(raw.DateTimeGMT)
	if !ok {
		date = normalizer.ParseDate(raw.Date, now)
		clock = normalizer.UnknownClock
	}

	venue := strings.TrimSpace(raw.Venue)
	if venue == "" {
		venue = "TBA"
	}

	m := tournament.Match{
		ID:     SourceName + "-" + raw.ID,
		Team1:  a.canon.Canonicalize(name1),
		Team2:  a.canon.Canonicalize(name2),
		Date:   date,
		Time:   clock,
		Venue:  venue,
		Status: matchStatus(raw, date, clock, now),
	}
	if m.Status == tournament.StatusCompleted {
		m.Result = strings.TrimSpace(raw.Status)
	}
	return m, true
}

func matchStatus(raw match, date, clock string, now time.Time) tournament.MatchStatus {
	switch {
	case raw.MatchEnded:
		return tournament.StatusCompleted
	case raw.MatchStarted:
		return tournament.StatusLive
	}
	kickoff, err := time.ParseInLocation(normalizer.DateLayout+" "+normalizer.ClockLayout, date+" "+clock, normalizer.LeagueZone)
	if err == nil && now.Sub(kickoff) > staleKickoff {
		return tournament.StatusCompleted
	}
	return tournament.StatusUpcoming
}

type response interface {
	ok() bool
	failure() string
}

func (a *Adapter) call(ctx context.Context, path string, query url.Values, target response) error {
	query.Set("apikey", a.apiKey)
	if err := a.api.GetJSON(ctx, path, query, target); err != nil {
		return err
	}
	if !target.ok() {
		return tournament.FetchFailed(SourceName, fmt.Errorf("%s answered %s", path, target.failure()))
	}
	return nil
}

// score reads a row in either payload shape.
func (r scoreRow) score() (tournament.Score, bool) {
	if len(r.R) == 0 {
		return tournament.Score{}, false
	}
	var runs int
	if err := sonic.Unmarshal(r.R, &runs); err == nil {
		overs, ok := normalizer.OversFromNotation(r.O)
		if !ok || runs < 0 || r.W < 0 || r.W > 10 {
			return tournament.Score{}, false
		}
		return tournament.Score{Runs: runs, Wickets: r.W, Overs: overs}, true
	}
	var text string
	if err := sonic.Unmarshal(r.R, &text); err != nil {
		return tournament.Score{}, false
	}
	return normalizer.ParseScore(text)
}

func inningsOf(inning string, names ...string) bool {
	inning = strings.ToLower(inning)
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" && strings.Contains(inning, name) {
			return true
		}
	}
	return false
}

// markLive flags the schedule entry of the live match, appending it when
// the series listing does not have it yet.
func markLive(schedule []tournament.Match, live tournament.Match) []tournament.Match {
	for i := range schedule {
		if schedule[i].ID == live.ID {
			schedule[i].Status = tournament.StatusLive
			schedule[i].Result = ""
			return schedule
		}
	}
	if len(schedule) == 0 {
		return schedule
	}
	return append(schedule, live)
}
