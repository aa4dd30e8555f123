package tournament

import (
	"errors"
	"testing"
)

var (
	teamCSK = Team{ID: "csk", Name: "Chennai Super Kings", ShortName: "CSK", ColorHex: "#FFFF3C"}
	teamMI  = Team{ID: "mi", Name: "Mumbai Indians", ShortName: "MI", ColorHex: "#004BA0"}
	teamRCB = Team{ID: "rcb", Name: "Royal Challengers Bengaluru", ShortName: "RCB", ColorHex: "#FF0000"}
)

func match(id string, t1, t2 Team, date, clock string, status MatchStatus) Match {
	return Match{ID: id, Team1: t1, Team2: t2, Date: date, Time: clock, Venue: "Wankhede Stadium, Mumbai", Status: status}
}

func TestFinalize_SortsCapsAndCollectsTeams(t *testing.T) {
	t.Parallel()

	upcoming := []Match{
		match("m6", teamCSK, teamMI, "2025-04-15", "19:30", StatusUpcoming),
		match("m2", teamCSK, teamMI, "2025-04-11", "19:30", StatusUpcoming),
		match("m3", teamMI, teamRCB, "2025-04-12", "15:30", StatusUpcoming),
		match("m1", teamRCB, teamCSK, "2025-04-10", "19:30", StatusUpcoming),
		match("m5", teamCSK, teamMI, "2025-04-14", "19:30", StatusUpcoming),
		match("m4", teamMI, teamRCB, "2025-04-12", "19:30", StatusUpcoming),
	}
	p := PartialSnapshot{UpcomingMatches: upcoming}
	p.SetLiveMatch(nil)

	s := Finalize(p, DefaultUpcomingLimit)

	if len(s.UpcomingMatches) != 5 {
		t.Fatalf("expected 5 upcoming matches, got=%d", len(s.UpcomingMatches))
	}
	wantOrder := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range wantOrder {
		if s.UpcomingMatches[i].ID != id {
			t.Fatalf("upcoming[%d]=%s want %s", i, s.UpcomingMatches[i].ID, id)
		}
	}
	if len(s.Teams) != 3 || s.Teams[0].ID != "csk" || s.Teams[2].ID != "rcb" {
		t.Fatalf("unexpected teams: %+v", s.Teams)
	}
	if s.PointsTable == nil || s.CompleteSchedule == nil {
		t.Fatalf("expected empty lists to be non-nil")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRankPointsTable(t *testing.T) {
	t.Parallel()

	ranked := RankPointsTable([]PointsTableEntry{
		{Team: teamMI, Matches: 14, Won: 6, Lost: 8, Points: 12, NetRunRate: -0.212},
		{Team: teamRCB, Matches: 14, Won: 8, Lost: 6, Points: 16, NetRunRate: 0.24},
		{Team: teamCSK, Matches: 14, Won: 8, Lost: 6, Points: 16, NetRunRate: 0.652},
	})

	got := []string{ranked[0].Team.ID, ranked[1].Team.ID, ranked[2].Team.ID}
	want := []string{"csk", "rcb", "mi"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order=%v want %v", got, want)
		}
	}
}

func TestSnapshotValidate_RejectsUnknownTeamReference(t *testing.T) {
	t.Parallel()

	s := Finalize(PartialSnapshot{
		CompleteSchedule: []Match{match("m1", teamCSK, teamMI, "2025-04-10", "19:30", StatusCompleted)},
	}, 0)
	s.Teams = s.Teams[:1]

	err := s.Validate()
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestSnapshotValidate_RejectsBadFields(t *testing.T) {
	t.Parallel()

	bad := match("m1", teamCSK, teamMI, "10/04/2025", "19:30", StatusUpcoming)
	s := Finalize(PartialSnapshot{CompleteSchedule: []Match{bad}}, 0)
	if err := s.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for malformed date, got %v", err)
	}

	live := &LiveMatch{
		Match:      match("m2", teamCSK, teamMI, "2025-04-10", "19:30", StatusLive),
		Team1Score: &Score{Runs: 120, Wickets: 11, Overs: 18},
	}
	p := PartialSnapshot{}
	p.SetLiveMatch(live)
	if err := Finalize(p, 0).Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for 11 wickets, got %v", err)
	}
}

func TestPartialSnapshot_Sections(t *testing.T) {
	t.Parallel()

	var p PartialSnapshot
	if !p.Empty() {
		t.Fatalf("zero partial should be empty")
	}

	p.SetLiveMatch(nil)
	if !p.Has(SectionLiveMatch) {
		t.Fatalf("confirmed no-live should count as retrieved")
	}
	p.PointsTable = []PointsTableEntry{}
	if p.Has(SectionPointsTable) {
		t.Fatalf("empty points table should not count as retrieved")
	}

	p.UpcomingMatches = []Match{match("m1", teamCSK, teamMI, "2025-04-10", "19:30", StatusUpcoming)}
	p.PointsTable = []PointsTableEntry{{Team: teamCSK}}
	p.CompleteSchedule = p.UpcomingMatches
	if !p.Complete() {
		t.Fatalf("expected complete partial, sections=%v", p.Sections())
	}
}

func TestProvenance_String(t *testing.T) {
	t.Parallel()

	prov := Provenance{
		SectionCompleteSchedule: "iplsite",
		SectionUpcomingMatches:  "iplsite",
		SectionLiveMatch:        "livescore",
		SectionPointsTable:      StaticSourceName,
	}
	want := "upcomingMatches=iplsite,liveMatch=livescore,pointsTable=static,completeSchedule=iplsite"
	if got := prov.String(); got != want {
		t.Fatalf("unexpected provenance string %q", got)
	}
	if !prov.UsedStatic() || prov.AllStatic() {
		t.Fatalf("unexpected static flags")
	}
}

func TestScoringRules_PointsFor(t *testing.T) {
	t.Parallel()

	rules := DefaultScoringRules()
	if got := rules.PointsFor(8, 1); got != 17 {
		t.Fatalf("expected 17 points, got=%d", got)
	}
	if err := (ScoringRules{InningsOvers: 0}).Validate(); err == nil {
		t.Fatalf("expected validation error for zero innings overs")
	}
}
