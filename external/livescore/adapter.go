// Package livescore reads the single current match from a public live score
// feed. It only ever contributes the live section.
package livescore

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
)

const (
	SourceName     = "livescore"
	DefaultBaseURL = "https://cricket-api-production.up.railway.app"

	scorePath = "/score"
)

var (
	leagueTitle = regexp.MustCompile(`(?i)\bIPL\b|Indian Premier League`)
	versus      = regexp.MustCompile(`(?i)\s+vs?\.?\s+`)
)

// JSONFetcher decodes a GET response. upstream.Client satisfies it.
type JSONFetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, target any) error
}

type payload struct {
	Title  string `json:"title"`
	Teams  string `json:"teams"`
	Score  string `json:"score"`
	Update string `json:"update"`
	Venue  string `json:"venue"`
	Error  string `json:"error"`
}

type Config struct {
	Rules  tournament.ScoringRules
	Clock  clockwork.Clock
	Logger *logging.Logger
}

type Adapter struct {
	api    JSONFetcher
	canon  *normalizer.Canonicalizer
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
	return &Adapter{
		api:    api,
		canon:  canon,
		rules:  cfg.Rules,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("source", SourceName),
	}
}

func (a *Adapter) Name() string {
	return SourceName
}

func (a *Adapter) FetchSnapshot(ctx context.Context) (tournament.PartialSnapshot, error) {
	var body payload
	if err := a.api.GetJSON(ctx, scorePath, url.Values{"id": {"current"}}, &body); err != nil {
		return tournament.PartialSnapshot{}, err
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return tournament.PartialSnapshot{}, tournament.FetchFailed(SourceName, errors.New(msg))
	}

	var out tournament.PartialSnapshot
	if !leagueTitle.MatchString(body.Title) {
		a.logger.DebugContext(ctx, "current match is not a league match", "title", body.Title)
		out.SetLiveMatch(nil)
		return out, nil
	}

	live, err := a.liveMatch(body)
	if err != nil {
		return tournament.PartialSnapshot{}, err
	}
	out.SetLiveMatch(live)
	return out, nil
}

func (a *Adapter) liveMatch(body payload) (*tournament.LiveMatch, error) {
	names := versus.Split(strings.TrimSpace(body.Teams), -1)
	if len(names) != 2 || strings.TrimSpace(names[0]) == "" || strings.TrimSpace(names[1]) == "" {
		return nil, tournament.ParseFailed(SourceName, tournament.SectionLiveMatch, "teams not in \"A vs B\" form")
	}

	local := a.clock.Now().In(normalizer.LeagueZone)
	team1 := a.canon.Canonicalize(names[0])
	team2 := a.canon.Canonicalize(names[1])
	date := local.Format(normalizer.DateLayout)
	clock := local.Format(normalizer.ClockLayout)

	venue := strings.TrimSpace(body.Venue)
	if venue == "" {
		venue = "TBA"
	}

	live := &tournament.LiveMatch{Match: tournament.Match{
		ID:     SourceName + "-" + team1.ID + "-" + team2.ID + "-" + date,
		Team1:  team1,
		Team2:  team2,
		Date:   date,
		Time:   clock,
		Venue:  venue,
		Status: tournament.StatusLive,
	}}

	lines := strings.Split(body.Score, "\n")
	if len(lines) > 0 {
		if score, ok := normalizer.ParseScore(lines[0]); ok {
			live.Team1Score = &score
		}
	}
	if len(lines) > 1 {
		if score, ok := normalizer.ParseScore(lines[1]); ok {
			live.Team2Score = &score
		}
	}

	if update := strings.TrimSpace(body.Update); update != "" {
		live.Commentary = []tournament.Commentary{{Time: clock, Text: update}}
	}
	normalizer.LiveRunRates(live, a.rules)
	return live, nil
}
