package tournament

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultUpcomingLimit caps the upcoming section.
const DefaultUpcomingLimit = 5

// Snapshot is the aggregate served to clients. It is immutable once built.
type Snapshot struct {
	Teams            []Team             `json:"teams" validate:"dive"`
	UpcomingMatches  []Match            `json:"upcomingMatches" validate:"max=5,dive"`
	LiveMatch        *LiveMatch         `json:"liveMatch"`
	PointsTable      []PointsTableEntry `json:"pointsTable" validate:"dive"`
	CompleteSchedule []Match            `json:"completeSchedule" validate:"dive"`
}

// Finalize turns merged sections into a Snapshot: upcoming matches are
// sorted soonest first and capped, the points table is ranked and the
// team list is the id-sorted union of every team referenced.
func Finalize(p PartialSnapshot, upcomingLimit int) *Snapshot {
	if upcomingLimit <= 0 {
		upcomingLimit = DefaultUpcomingLimit
	}

	upcoming := SortByKickoff(p.UpcomingMatches)
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	schedule := make([]Match, len(p.CompleteSchedule))
	copy(schedule, p.CompleteSchedule)

	s := &Snapshot{
		UpcomingMatches:  upcoming,
		LiveMatch:        p.LiveMatch,
		PointsTable:      RankPointsTable(p.PointsTable),
		CompleteSchedule: schedule,
	}
	s.Teams = collectTeams(s)
	return s
}

// UpcomingFrom picks the not-yet-started fixtures of a schedule.
func UpcomingFrom(schedule []Match, limit int) []Match {
	out := make([]Match, 0, limit)
	for _, m := range SortByKickoff(schedule) {
		if m.Status != StatusUpcoming {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func SortByKickoff(matches []Match) []Match {
	out := make([]Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kickoff() < out[j].Kickoff()
	})
	return out
}

// RankPointsTable orders entries by points, then net run rate, both
// descending. Team name breaks remaining ties.
func RankPointsTable(entries []PointsTableEntry) []PointsTableEntry {
	out := make([]PointsTableEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return rankLess(out[i], out[j])
	})
	return out
}

func rankLess(a, b PointsTableEntry) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.NetRunRate != b.NetRunRate {
		return a.NetRunRate > b.NetRunRate
	}
	return a.Team.Name < b.Team.Name
}

func collectTeams(s *Snapshot) []Team {
	byID := make(map[string]Team)
	add := func(t Team) {
		if t.ID == "" {
			return
		}
		if _, ok := byID[t.ID]; !ok {
			byID[t.ID] = t
		}
	}

	for _, entry := range s.PointsTable {
		add(entry.Team)
	}
	for _, m := range s.CompleteSchedule {
		add(m.Team1)
		add(m.Team2)
	}
	for _, m := range s.UpcomingMatches {
		add(m.Team1)
		add(m.Team2)
	}
	if s.LiveMatch != nil {
		add(s.LiveMatch.Team1)
		add(s.LiveMatch.Team2)
	}

	out := make([]Team, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func snapshotValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and that every referenced team id is
// listed in Teams.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := snapshotValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	known := make(map[string]struct{}, len(s.Teams))
	for _, t := range s.Teams {
		known[t.ID] = struct{}{}
	}

	var missing []string
	check := func(t Team) {
		if _, ok := known[t.ID]; !ok {
			missing = append(missing, t.ID)
		}
	}
	for _, entry := range s.PointsTable {
		check(entry.Team)
	}
	for _, list := range [][]Match{s.UpcomingMatches, s.CompleteSchedule} {
		for _, m := range list {
			check(m.Team1)
			check(m.Team2)
		}
	}
	if s.LiveMatch != nil {
		check(s.LiveMatch.Team1)
		check(s.LiveMatch.Team2)
		if s.LiveMatch.Status != StatusLive {
			return fmt.Errorf("%w: live match %s has status %s", ErrInvalidSnapshot, s.LiveMatch.ID, s.LiveMatch.Status)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown team ids %s", ErrInvalidSnapshot, strings.Join(missing, ","))
	}

	return nil
}
