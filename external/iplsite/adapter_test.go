package iplsite

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
)

var fixtureNow = time.Date(2024, 4, 21, 15, 0, 0, 0, time.UTC)

type stubPages struct {
	bodies map[string][]byte
	errs   map[string]error
}

func (s stubPages) Get(_ context.Context, path string, _ url.Values) ([]byte, error) {
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	body, ok := s.bodies[path]
	if !ok {
		return nil, tournament.FetchFailed(SourceName, errors.New("status=404"))
	}
	return body, nil
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return raw
}

func fixtureDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(readFixture(t, name)))
	if err != nil {
		t.Fatalf("parse fixture %s: %v", name, err)
	}
	return doc
}

func newParser() parser {
	return parser{
		canon: normalizer.MustDefaultCanonicalizer(),
		rules: tournament.DefaultScoringRules(),
		now:   fixtureNow,
	}
}

func newAdapter(pages PageFetcher) *Adapter {
	return New(pages, normalizer.MustDefaultCanonicalizer(), Config{
		Season: "2024",
		Clock:  clockwork.NewFakeClockAt(fixtureNow),
	})
}

func TestParser_PointsTable(t *testing.T) {
	t.Parallel()

	table, skipped, err := newParser().pointsTable(fixtureDoc(t, "points_table.html"))
	if err != nil {
		t.Fatalf("parse points table: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected the advert row to be skipped, skipped=%d", skipped)
	}

	wantIDs := []string{"gt", "csk", "rcb", "rr"}
	if len(table) != len(wantIDs) {
		t.Fatalf("expected %d rows, got %d", len(wantIDs), len(table))
	}
	for i, id := range wantIDs {
		if table[i].Team.ID != id {
			t.Fatalf("row %d team=%s want %s", i, table[i].Team.ID, id)
		}
	}
	if table[1].Points != 18 {
		t.Fatalf("expected derived points 18 for csk, got %d", table[1].Points)
	}
	if table[3].NetRunRate != -1.01 || table[0].NetRunRate != 0.809 {
		t.Fatalf("unexpected net run rates %+v", table)
	}
}

func TestParser_PointsTableMissingRowsIsParseFailed(t *testing.T) {
	t.Parallel()

	_, _, err := newParser().pointsTable(fixtureDoc(t, "home_no_live.html"))
	if !errors.Is(err, tournament.ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
}

func TestParser_Schedule(t *testing.T) {
	t.Parallel()

	schedule, err := newParser().schedule(fixtureDoc(t, "matches.html"))
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}
	if len(schedule) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(schedule))
	}

	done := schedule[0]
	if done.ID != "iplsite-101" || done.Status != tournament.StatusCompleted {
		t.Fatalf("unexpected completed match %+v", done)
	}
	if done.Date != "2024-04-20" || done.Time != "19:30" || done.Result != "Chennai Super Kings won by 20 runs" {
		t.Fatalf("unexpected completed match details %+v", done)
	}
	if schedule[1].Status != tournament.StatusLive || schedule[1].Team2.ID != "rcb" {
		t.Fatalf("unexpected live card %+v", schedule[1])
	}
	if schedule[2].Team2.ID != "test-xi" || schedule[2].Team2.ColorHex != "#888888" {
		t.Fatalf("expected synthesized team, got %+v", schedule[2].Team2)
	}
	if schedule[3].Time != "15:30" || schedule[3].Date != "2024-04-22" {
		t.Fatalf("unexpected afternoon fixture %+v", schedule[3])
	}
}

func TestParser_LiveMatch(t *testing.T) {
	t.Parallel()

	live, skipped, err := newParser().liveMatch(fixtureDoc(t, "home.html"))
	if err != nil {
		t.Fatalf("parse live match: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("unexpected skipped player cards %d", skipped)
	}
	if live == nil {
		t.Fatalf("expected live match")
	}
	if live.ID != "iplsite-102" || live.Team1.ID != "kkr" || live.Team2.ID != "rcb" {
		t.Fatalf("unexpected live match %+v", live.Match)
	}
	if live.Team1Score == nil || live.Team1Score.Runs != 187 || live.Team2Score == nil || live.Team2Score.Wickets != 4 {
		t.Fatalf("unexpected scores %+v %+v", live.Team1Score, live.Team2Score)
	}
	if len(live.CurrentBatsmen) != 2 || live.CurrentBatsmen[0].Runs != 73 || live.CurrentBatsmen[1].Sixes != 2 {
		t.Fatalf("unexpected batsmen %+v", live.CurrentBatsmen)
	}
	if live.CurrentBowler == nil || math.Abs(live.CurrentBowler.Overs-(3+2.0/6)) > 1e-9 || live.CurrentBowler.Wickets != 2 {
		t.Fatalf("unexpected bowler %+v", live.CurrentBowler)
	}
	if len(live.RecentOvers) != 3 || live.RecentOvers[0].OverNumber != 14 || live.RecentOvers[2].OverNumber != 16 {
		t.Fatalf("unexpected recent overs %+v", live.RecentOvers)
	}
	if live.RecentOvers[0].Balls[0].Kind != tournament.BallWide || live.RecentOvers[2].Balls[3].Kind != tournament.BallWicket {
		t.Fatalf("unexpected ball markers %+v", live.RecentOvers)
	}
	if len(live.Commentary) != 6 || live.Commentary[0].Time != "16.2" {
		t.Fatalf("unexpected commentary %+v", live.Commentary)
	}
	if live.LastWicketDescription != "Aaron Finch b Andre Russell 34(21)" {
		t.Fatalf("unexpected last wicket %q", live.LastWicketDescription)
	}
	if live.RequiredRunRate == nil || math.Abs(*live.RequiredRunRate-8.727) > 0.01 {
		t.Fatalf("unexpected required run rate %v", live.RequiredRunRate)
	}
}

func TestParser_NoLiveCardConfirmsNoLiveMatch(t *testing.T) {
	t.Parallel()

	live, _, err := newParser().liveMatch(fixtureDoc(t, "home_no_live.html"))
	if err != nil || live != nil {
		t.Fatalf("expected nil live match without error, got %+v %v", live, err)
	}
}

func TestAdapter_FetchSnapshot_AllPages(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(stubPages{bodies: map[string][]byte{
		"/points-table/men/2024": readFixture(t, "points_table.html"),
		"/matches":               readFixture(t, "matches.html"),
		"/":                      readFixture(t, "home.html"),
	}})

	partial, err := adapter.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if !partial.Complete() {
		t.Fatalf("expected every section, got %v", partial.Sections())
	}
	if len(partial.UpcomingMatches) != 2 || partial.UpcomingMatches[0].ID != "iplsite-103" {
		t.Fatalf("unexpected upcoming matches %+v", partial.UpcomingMatches)
	}
	if adapter.Name() != SourceName {
		t.Fatalf("unexpected adapter name %s", adapter.Name())
	}
}

func TestAdapter_FetchSnapshot_PartialPages(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(stubPages{
		bodies: map[string][]byte{
			"/points-table/men/2024": readFixture(t, "points_table.html"),
			"/":                      readFixture(t, "home_no_live.html"),
		},
		errs: map[string]error{
			"/matches": tournament.FetchFailed(SourceName, errors.New("status=503")),
		},
	})

	partial, err := adapter.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if partial.Has(tournament.SectionCompleteSchedule) || partial.Has(tournament.SectionUpcomingMatches) {
		t.Fatalf("schedule sections should be absent, got %v", partial.Sections())
	}
	if !partial.Has(tournament.SectionPointsTable) || !partial.Has(tournament.SectionLiveMatch) || partial.LiveMatch != nil {
		t.Fatalf("unexpected sections %v live=%v", partial.Sections(), partial.LiveMatch)
	}
}

func TestAdapter_FetchSnapshot_AllPagesFail(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(stubPages{})
	_, err := adapter.FetchSnapshot(context.Background())
	if !errors.Is(err, tournament.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func htmlDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParser_UnreadableFiguresAreSkippedNotZeroed(t *testing.T) {
	t.Parallel()

	table, skipped, err := newParser().pointsTable(htmlDoc(t, `<table class="points-table"><tbody>
<tr><td>1</td><td>Gujarat Titans</td><td>14</td><td>10</td><td>4</td><td>0</td><td>20</td><td>+0.809</td></tr>
<tr><td>2</td><td>Mumbai Indians</td><td>14</td><td>8</td><td>6</td><td>?</td><td>16</td><td>+0.240</td></tr>
<tr><td>3</td><td>Delhi Capitals</td><td>14</td><td>7</td><td>7</td><td>0</td><td>14</td><td>n/a</td></tr>
</tbody></table>`))
	if err != nil {
		t.Fatalf("parse points table: %v", err)
	}
	if skipped != 2 || len(table) != 1 || table[0].Team.ID != "gt" {
		t.Fatalf("expected rows with unreadable tied or net run rate to be skipped, skipped=%d table=%+v", skipped, table)
	}

	live, skipped, err := newParser().liveMatch(htmlDoc(t, `
<div class="match-card match-card--live" data-match-id="7">
  <div class="match-card__team-1"><span class="match-card__team-name">Mumbai Indians</span><span class="match-card__score">150/3 (15.0)</span></div>
  <div class="match-card__team-2"><span class="match-card__team-name">Delhi Capitals</span></div>
</div>
<div class="batter-card"><span class="player-name">Rohit Sharma</span><span class="runs">-</span><span class="balls-faced">30</span><span class="fours">4</span><span class="sixes">2</span></div>
<div class="batter-card"><span class="player-name">Suryakumar Yadav</span><span class="runs">41</span><span class="balls-faced">20</span><span class="fours">5</span><span class="sixes">1</span></div>
<div class="bowler-card"><span class="player-name">Anrich Nortje</span><span class="overs">3</span><span class="maidens">0</span><span class="runs-conceded"></span><span class="wickets">1</span></div>`))
	if err != nil || live == nil {
		t.Fatalf("parse live match: %+v %v", live, err)
	}
	if skipped != 2 {
		t.Fatalf("expected 2 skipped player cards, got %d", skipped)
	}
	if len(live.CurrentBatsmen) != 1 || live.CurrentBatsmen[0].Name != "Suryakumar Yadav" {
		t.Fatalf("unexpected batsmen %+v", live.CurrentBatsmen)
	}
	if live.CurrentBowler != nil {
		t.Fatalf("bowler with unreadable figures must be left out, got %+v", live.CurrentBowler)
	}
}
