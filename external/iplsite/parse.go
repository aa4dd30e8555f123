package iplsite

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
)

const (
	maxBatsmen    = 2
	maxOvers      = 3
	maxCommentary = 6
)

var pointsRowSelectors = []string{
	".standings-table tbody tr",
	".points-table tbody tr",
	".table-responsive table tbody tr",
}

type parser struct {
	canon *normalizer.Canonicalizer
	rules tournament.ScoringRules
	now   time.Time
}

// pointsTable reads the standings rows. Columns are position, team,
// played, won, lost, tied, points and net run rate.
func (p parser) pointsTable(doc *goquery.Document) ([]tournament.PointsTableEntry, int, error) {
	var rows *goquery.Selection
	for _, selector := range pointsRowSelectors {
		rows = doc.Find(selector)
		if rows.Length() > 0 {
			break
		}
	}

	entries := make([]tournament.PointsTableEntry, 0, rows.Length())
	skipped := 0
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			skipped++
			return
		}

		teamCell := cells.Eq(1)
		name := text(teamCell.Find(".team-name"))
		if name == "" {
			name = text(teamCell)
		}
		if name == "" {
			skipped++
			return
		}

		matches, okMatches := normalizer.ParseInt(text(cells.Eq(2)))
		won, okWon := normalizer.ParseInt(text(cells.Eq(3)))
		lost, okLost := normalizer.ParseInt(text(cells.Eq(4)))
		if !okMatches || !okWon || !okLost {
			skipped++
			return
		}
		tied, okTied := normalizer.ParseInt(text(cells.Eq(5)))
		nrr, okNRR := normalizer.ParseNumber(text(cells.Eq(7)))
		if !okTied || !okNRR {
			skipped++
			return
		}
		points, ok := normalizer.ParseInt(text(cells.Eq(6)))
		if !ok {
			points = p.rules.PointsFor(won, tied)
		}

		entries = append(entries, tournament.PointsTableEntry{
			Team:       p.canon.Canonicalize(name),
			Matches:    matches,
			Won:        won,
			Lost:       lost,
			Tied:       tied,
			Points:     points,
			NetRunRate: nrr,
		})
	})

	if len(entries) == 0 {
		return nil, skipped, tournament.ParseFailed(SourceName, tournament.SectionPointsTable, "no standings rows")
	}
	return tournament.RankPointsTable(entries), skipped, nil
}

// schedule reads every match card on the fixtures page.
func (p parser) schedule(doc *goquery.Document) ([]tournament.Match, error) {
	cards := doc.Find(".match-card")
	out := make([]tournament.Match, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		if m, ok := p.matchCard(card, i); ok {
			out = append(out, m)
		}
	})
	if len(out) == 0 {
		return nil, tournament.ParseFailed(SourceName, tournament.SectionCompleteSchedule, "no match cards")
	}
	return out, nil
}

func (p parser) matchCard(card *goquery.Selection, index int) (tournament.Match, bool) {
	team1 := text(card.Find(".match-card__team-1 .match-card__team-name"))
	team2 := text(card.Find(".match-card__team-2 .match-card__team-name"))
	if team1 == "" || team2 == "" {
		return tournament.Match{}, false
	}

	status := tournament.StatusUpcoming
	switch {
	case card.HasClass("match-card--complete"):
		status = tournament.StatusCompleted
	case card.HasClass("match-card--live"):
		status = tournament.StatusLive
	}

	id := fmt.Sprintf("%s-%d", SourceName, index+1)
	if attr, ok := card.Attr("data-match-id"); ok && strings.TrimSpace(attr) != "" {
		id = SourceName + "-" + strings.TrimSpace(attr)
	}

	m := tournament.Match{
		ID:     id,
		Team1:  p.canon.Canonicalize(team1),
		Team2:  p.canon.Canonicalize(team2),
		Date:   normalizer.ParseDate(text(card.Find(".match-card__date")), p.now),
		Time:   normalizer.ParseClock(text(card.Find(".match-card__time"))),
		Venue:  text(card.Find(".match-card__venue")),
		Status: status,
	}
	if status == tournament.StatusCompleted {
		m.Result = text(card.Find(".match-card__result"))
	}
	return m, true
}

// liveMatch reads the live card and its detail widgets. A page without a
// live card means no match is in progress. Player cards with unreadable
// figures are left out and counted in skipped.
func (p parser) liveMatch(doc *goquery.Document) (live *tournament.LiveMatch, skipped int, err error) {
	card := doc.Find(".match-card--live").First()
	if card.Length() == 0 {
		return nil, 0, nil
	}

	m, ok := p.matchCard(card, 0)
	if !ok {
		return nil, 0, tournament.ParseFailed(SourceName, tournament.SectionLiveMatch, "live card without teams")
	}
	m.Status = tournament.StatusLive
	m.Result = ""

	live = &tournament.LiveMatch{Match: m}
	if score, ok := normalizer.ParseScore(text(card.Find(".match-card__team-1 .match-card__score"))); ok {
		live.Team1Score = &score
	}
	if score, ok := normalizer.ParseScore(text(card.Find(".match-card__team-2 .match-card__score"))); ok {
		live.Team2Score = &score
	}

	doc.Find(".batter-card").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(live.CurrentBatsmen) >= maxBatsmen {
			return false
		}
		if b, ok := batsman(sel); ok {
			live.CurrentBatsmen = append(live.CurrentBatsmen, b)
		} else {
			skipped++
		}
		return true
	})

	if bowlerCard := doc.Find(".bowler-card").First(); bowlerCard.Length() > 0 {
		if b, ok := bowler(bowlerCard); ok {
			live.CurrentBowler = &b
		} else {
			skipped++
		}
	}

	overs := doc.Find(".recent-overs .over")
	start := overs.Length() - maxOvers
	if start < 0 {
		start = 0
	}
	overs.Slice(start, overs.Length()).Each(func(_ int, sel *goquery.Selection) {
		number, ok := normalizer.ParseInt(text(sel.Find(".over-number")))
		if !ok || number < 1 {
			return
		}
		over := tournament.Over{OverNumber: number}
		sel.Find(".ball").Each(func(_ int, ball *goquery.Selection) {
			if b, ok := normalizer.ParseBall(text(ball)); ok {
				over.Balls = append(over.Balls, b)
			}
		})
		live.RecentOvers = append(live.RecentOvers, over)
	})

	doc.Find(".commentary-list .commentary-item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxCommentary {
			return false
		}
		body := text(sel.Find(".commentary-text"))
		if body == "" {
			return true
		}
		live.Commentary = append(live.Commentary, tournament.Commentary{
			Time: text(sel.Find(".commentary-time")),
			Text: body,
		})
		return true
	})

	live.LastWicketDescription = text(doc.Find(".last-wicket").First())
	normalizer.LiveRunRates(live, p.rules)

	return live, skipped, nil
}

func batsman(sel *goquery.Selection) (tournament.Batsman, bool) {
	b := tournament.Batsman{Name: text(sel.Find(".player-name"))}
	var okRuns, okBalls, okFours, okSixes bool
	b.Runs, okRuns = normalizer.ParseInt(text(sel.Find(".runs")))
	b.Balls, okBalls = normalizer.ParseInt(text(sel.Find(".balls-faced")))
	b.Fours, okFours = normalizer.ParseInt(text(sel.Find(".fours")))
	b.Sixes, okSixes = normalizer.ParseInt(text(sel.Find(".sixes")))
	return b, b.Name != "" && okRuns && okBalls && okFours && okSixes
}

func bowler(sel *goquery.Selection) (tournament.Bowler, bool) {
	b := tournament.Bowler{Name: text(sel.Find(".player-name"))}
	var okOvers, okMaidens, okRuns, okWickets bool
	b.Overs, okOvers = normalizer.ParseOvers(text(sel.Find(".overs")))
	b.Maidens, okMaidens = normalizer.ParseInt(text(sel.Find(".maidens")))
	b.Runs, okRuns = normalizer.ParseInt(text(sel.Find(".runs-conceded")))
	b.Wickets, okWickets = normalizer.ParseInt(text(sel.Find(".wickets")))
	return b, b.Name != "" && okOvers && okMaidens && okRuns && okWickets
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
