// Package iplsite scrapes the official league website.
package iplsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

const (
	SourceName     = "iplsite"
	DefaultBaseURL = "https://www.iplt20.com"

	matchesPath = "/matches"
	homePath    = "/"
)

// PageFetcher returns the raw body of a page. upstream.Client satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

type Config struct {
	Season string
	Rules  tournament.ScoringRules
	Clock  clockwork.Clock
	Logger *logging.Logger
}

type Adapter struct {
	pages  PageFetcher
	canon  *normalizer.Canonicalizer
	season string
	rules  tournament.ScoringRules
	clock  clockwork.Clock
	logger *logging.Logger
}

func New(pages PageFetcher, canon *normalizer.Canonicalizer, cfg Config) *Adapter {
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
		pages:  pages,
		canon:  canon,
		season: strings.TrimSpace(cfg.Season),
		rules:  cfg.Rules,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("source", SourceName),
	}
}

func (a *Adapter) Name() string {
	return SourceName
}

// FetchSnapshot loads the standings, fixtures and home pages concurrently.
// A failed page only drops its own sections; the call fails when every
// page fails.
func (a *Adapter) FetchSnapshot(ctx context.Context) (tournament.PartialSnapshot, error) {
	var (
		pointsDoc, matchesDoc, homeDoc *goquery.Document
		pointsErr, matchesErr, homeErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() { pointsDoc, pointsErr = a.page(ctx, a.pointsPath()) })
	wg.Go(func() { matchesDoc, matchesErr = a.page(ctx, matchesPath) })
	wg.Go(func() { homeDoc, homeErr = a.page(ctx, homePath) })
	if rec := wg.WaitAndRecover(); rec != nil {
		return tournament.PartialSnapshot{}, tournament.FetchFailed(SourceName, rec.AsError())
	}

	if pointsErr != nil && matchesErr != nil && homeErr != nil {
		return tournament.PartialSnapshot{}, tournament.FetchFailed(SourceName, errors.Join(pointsErr, matchesErr, homeErr))
	}

	p := parser{canon: a.canon, rules: a.rules, now: a.clock.Now()}
	var out tournament.PartialSnapshot

	if pointsErr != nil {
		a.logger.WarnContext(ctx, "points table page failed", "section", tournament.SectionPointsTable, "error", pointsErr)
	} else if table, skipped, err := p.pointsTable(pointsDoc); err != nil {
		a.logger.WarnContext(ctx, "points table not parsed", "section", tournament.SectionPointsTable, "error", err)
	} else {
		if skipped > 0 {
			a.logger.WarnContext(ctx, "points table rows skipped", "section", tournament.SectionPointsTable, "skipped", skipped)
		}
		out.PointsTable = table
	}

	if matchesErr != nil {
		a.logger.WarnContext(ctx, "matches page failed", "section", tournament.SectionCompleteSchedule, "error", matchesErr)
	} else if schedule, err := p.schedule(matchesDoc); err != nil {
		a.logger.WarnContext(ctx, "matches not parsed", "section", tournament.SectionCompleteSchedule, "error", err)
	} else {
		out.CompleteSchedule = schedule
		out.UpcomingMatches = tournament.UpcomingFrom(schedule, 0)
	}

	if homeErr != nil {
		a.logger.WarnContext(ctx, "home page failed", "section", tournament.SectionLiveMatch, "error", homeErr)
	} else if live, skipped, err := p.liveMatch(homeDoc); err != nil {
		a.logger.WarnContext(ctx, "live match not parsed", "section", tournament.SectionLiveMatch, "error", err)
	} else {
		if skipped > 0 {
			a.logger.WarnContext(ctx, "live player cards skipped", "section", tournament.SectionLiveMatch, "skipped", skipped)
		}
		out.SetLiveMatch(live)
	}

	return out, nil
}

func (a *Adapter) pointsPath() string {
	if a.season == "" {
		return "/points-table/men"
	}
	return "/points-table/men/" + url.PathEscape(a.season)
}

func (a *Adapter) page(ctx context.Context, path string) (*goquery.Document, error) {
	raw, err := a.pages.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: source=%s: parse html %s: %v", tournament.ErrParseFailed, SourceName, path, err)
	}
	return doc, nil
}
