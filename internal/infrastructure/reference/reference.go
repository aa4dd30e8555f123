// Package reference holds the bundled tournament data used when no
// upstream can supply a section.
package reference

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var defaultDatasetYAML []byte

type fixtureDoc struct {
	Team1     string `yaml:"team1"`
	Team2     string `yaml:"team2"`
	DayOffset int    `yaml:"dayOffset"`
	Time      string `yaml:"time"`
	Venue     string `yaml:"venue"`
	Result    string `yaml:"result"`
}

type rotationDoc struct {
	Count          int      `yaml:"count"`
	StartOffset    int      `yaml:"startOffset"`
	Order          []string `yaml:"order"`
	Time           string   `yaml:"time"`
	AfternoonTime  string   `yaml:"afternoonTime"`
	AfternoonEvery int      `yaml:"afternoonEvery"`
}

type bowlerDoc struct {
	Name    string `yaml:"name"`
	Overs   string `yaml:"overs"`
	Maidens int    `yaml:"maidens"`
	Runs    int    `yaml:"runs"`
	Wickets int    `yaml:"wickets"`
}

type overDoc struct {
	Over  int      `yaml:"over"`
	Balls []string `yaml:"balls"`
}

type liveDoc struct {
	fixtureDoc `yaml:",inline"`
	Team1Score string                  `yaml:"team1Score"`
	Team2Score string                  `yaml:"team2Score"`
	Batsmen    []tournament.Batsman    `yaml:"batsmen"`
	Bowler     *bowlerDoc              `yaml:"bowler"`
	Overs      []overDoc               `yaml:"recentOvers"`
	Commentary []tournament.Commentary `yaml:"commentary"`
	LastWicket string                  `yaml:"lastWicket"`
}

type pointsDoc struct {
	Team       string  `yaml:"team"`
	Matches    int     `yaml:"matches"`
	Won        int     `yaml:"won"`
	Lost       int     `yaml:"lost"`
	Tied       int     `yaml:"tied"`
	Points     *int    `yaml:"points"`
	NetRunRate float64 `yaml:"netRunRate"`
}

type datasetDoc struct {
	Venues   map[string]string `yaml:"venues"`
	Schedule struct {
		Completed []fixtureDoc `yaml:"completed"`
		Rotation  rotationDoc  `yaml:"rotation"`
	} `yaml:"schedule"`
	Live        *liveDoc    `yaml:"live"`
	PointsTable []pointsDoc `yaml:"pointsTable"`
}

// Dataset is the resolved reference data. It is built once and never
// refetched.
type Dataset struct {
	partial  tournament.PartialSnapshot
	snapshot *tournament.Snapshot
}

// Load resolves the embedded dataset against now.
func Load(now time.Time, canon *normalizer.Canonicalizer, rules tournament.ScoringRules) (*Dataset, error) {
	return Parse(defaultDatasetYAML, now, canon, rules)
}

func Parse(raw []byte, now time.Time, canon *normalizer.Canonicalizer, rules tournament.ScoringRules) (*Dataset, error) {
	var doc datasetDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode reference dataset: %w", err)
	}

	b := builder{doc: doc, canon: canon, rules: rules, today: startOfDay(now.In(normalizer.LeagueZone))}

	var partial tournament.PartialSnapshot
	schedule, err := b.schedule()
	if err != nil {
		return nil, err
	}
	live, err := b.live()
	if err != nil {
		return nil, err
	}
	points, err := b.pointsTable()
	if err != nil {
		return nil, err
	}

	if live != nil {
		schedule = append(schedule, live.Match)
	}
	partial.CompleteSchedule = tournament.SortByKickoff(schedule)
	partial.UpcomingMatches = tournament.UpcomingFrom(partial.CompleteSchedule, tournament.DefaultUpcomingLimit)
	partial.PointsTable = points
	partial.SetLiveMatch(live)

	snapshot := tournament.Finalize(partial, tournament.DefaultUpcomingLimit)
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("reference dataset: %w", err)
	}
	if !partial.Complete() {
		return nil, fmt.Errorf("reference dataset must provide every section, got %v", partial.Sections())
	}

	return &Dataset{partial: partial, snapshot: snapshot}, nil
}

// Snapshot returns the finalized reference snapshot. Callers must not
// modify it.
func (d *Dataset) Snapshot() *tournament.Snapshot {
	return d.snapshot
}

// Partial returns the reference data section by section.
func (d *Dataset) Partial() tournament.PartialSnapshot {
	return d.partial
}

func (d *Dataset) Name() string {
	return tournament.StaticSourceName
}

// FetchSnapshot lets the dataset be listed as a regular source.
func (d *Dataset) FetchSnapshot(context.Context) (tournament.PartialSnapshot, error) {
	return d.partial, nil
}

type builder struct {
	doc   datasetDoc
	canon *normalizer.Canonicalizer
	rules tournament.ScoringRules
	today time.Time
}

func (b builder) team(id string) (tournament.Team, error) {
	team, ok := b.canon.Team(id)
	if !ok {
		return tournament.Team{}, fmt.Errorf("reference dataset: unknown team id %q", id)
	}
	return team, nil
}

func (b builder) match(id string, f fixtureDoc, status tournament.MatchStatus) (tournament.Match, error) {
	team1, err := b.team(f.Team1)
	if err != nil {
		return tournament.Match{}, err
	}
	team2, err := b.team(f.Team2)
	if err != nil {
		return tournament.Match{}, err
	}
	venue := f.Venue
	if venue == "" {
		venue = b.doc.Venues[team1.ID]
	}

	return tournament.Match{
		ID:     id,
		Team1:  team1,
		Team2:  team2,
		Date:   b.today.AddDate(0, 0, f.DayOffset).Format(normalizer.DateLayout),
		Time:   normalizer.ParseClock(f.Time),
		Venue:  venue,
		Status: status,
		Result: f.Result,
	}, nil
}

func (b builder) schedule() ([]tournament.Match, error) {
	out := make([]tournament.Match, 0, len(b.doc.Schedule.Completed)+b.doc.Schedule.Rotation.Count)
	for i, f := range b.doc.Schedule.Completed {
		m, err := b.match(fmt.Sprintf("ref-%d", i+1), f, tournament.StatusCompleted)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	rot := b.doc.Schedule.Rotation
	n := len(rot.Order)
	if rot.Count > 0 && n < 2 {
		return nil, fmt.Errorf("reference dataset: rotation needs at least two teams")
	}
	for i := 0; i < rot.Count; i++ {
		offset := 1 + (i/n)%(n-1)
		clock := rot.Time
		if rot.AfternoonEvery > 0 && (i+1)%rot.AfternoonEvery == 0 {
			clock = rot.AfternoonTime
		}
		f := fixtureDoc{
			Team1:     rot.Order[i%n],
			Team2:     rot.Order[(i+offset)%n],
			DayOffset: rot.StartOffset + i,
			Time:      clock,
		}
		m, err := b.match(fmt.Sprintf("ref-%d", len(out)+2), f, tournament.StatusUpcoming)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, nil
}

func (b builder) live() (*tournament.LiveMatch, error) {
	doc := b.doc.Live
	if doc == nil {
		return nil, nil
	}

	m, err := b.match(fmt.Sprintf("ref-%d", len(b.doc.Schedule.Completed)+1), doc.fixtureDoc, tournament.StatusLive)
	if err != nil {
		return nil, err
	}
	live := &tournament.LiveMatch{
		Match:                 m,
		CurrentBatsmen:        doc.Batsmen,
		Commentary:            doc.Commentary,
		LastWicketDescription: doc.LastWicket,
	}

	if score, ok := normalizer.ParseScore(doc.Team1Score); ok {
		live.Team1Score = &score
	}
	if score, ok := normalizer.ParseScore(doc.Team2Score); ok {
		live.Team2Score = &score
	}
	if doc.Bowler != nil {
		overs, ok := normalizer.ParseOvers(doc.Bowler.Overs)
		if !ok {
			return nil, fmt.Errorf("reference dataset: bad bowler overs %q", doc.Bowler.Overs)
		}
		live.CurrentBowler = &tournament.Bowler{
			Name:    doc.Bowler.Name,
			Overs:   overs,
			Maidens: doc.Bowler.Maidens,
			Runs:    doc.Bowler.Runs,
			Wickets: doc.Bowler.Wickets,
		}
	}
	for _, o := range doc.Overs {
		over := tournament.Over{OverNumber: o.Over}
		for _, raw := range o.Balls {
			ball, ok := normalizer.ParseBall(raw)
			if !ok {
				return nil, fmt.Errorf("reference dataset: bad ball %q in over %d", raw, o.Over)
			}
			over.Balls = append(over.Balls, ball)
		}
		live.RecentOvers = append(live.RecentOvers, over)
	}
	normalizer.LiveRunRates(live, b.rules)

	return live, nil
}

func (b builder) pointsTable() ([]tournament.PointsTableEntry, error) {
	out := make([]tournament.PointsTableEntry, 0, len(b.doc.PointsTable))
	for _, row := range b.doc.PointsTable {
		team, err := b.team(row.Team)
		if err != nil {
			return nil, err
		}
		points := b.rules.PointsFor(row.Won, row.Tied)
		if row.Points != nil {
			points = *row.Points
		}
		out = append(out, tournament.PointsTableEntry{
			Team:       team,
			Matches:    row.Matches,
			Won:        row.Won,
			Lost:       row.Lost,
			Tied:       row.Tied,
			Points:     points,
			NetRunRate: row.NetRunRate,
		})
	}
	return tournament.RankPointsTable(out), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
