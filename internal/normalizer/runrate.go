package normalizer

import "github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"

// CurrentRunRate is runs per over for one innings.
func CurrentRunRate(score tournament.Score) (float64, bool) {
	balls := score.OversAsBalls()
	if balls <= 0 {
		return 0, false
	}
	return float64(score.Runs) * 6 / float64(balls), true
}

// RequiredRunRate is the rate the chasing side needs. It is undefined
// unless both innings exist, the chase is still open and overs remain.
func RequiredRunRate(first, second *tournament.Score, rules tournament.ScoringRules) (float64, bool) {
	if first == nil || second == nil {
		return 0, false
	}
	if second.Wickets >= 10 {
		return 0, false
	}

	runsNeeded := first.Runs + 1 - second.Runs
	if runsNeeded <= 0 {
		return 0, false
	}
	ballsRemaining := rules.InningsBalls() - second.OversAsBalls()
	if ballsRemaining <= 0 {
		return 0, false
	}

	return float64(runsNeeded) * 6 / float64(ballsRemaining), true
}

// LiveRunRates fills the run rates of live from its scores, taking Team1
// as the side that batted first.
func LiveRunRates(live *tournament.LiveMatch, rules tournament.ScoringRules) {
	if live == nil {
		return
	}
	InningsRunRates(live, live.Team1Score, live.Team2Score, rules)
}

// InningsRunRates fills the run rates of live from the innings in batting
// order. second is nil until the chase has started.
func InningsRunRates(live *tournament.LiveMatch, first, second *tournament.Score, rules tournament.ScoringRules) {
	if live == nil {
		return
	}
	live.CurrentRunRate = nil
	live.RequiredRunRate = nil

	batting := first
	if second != nil {
		batting = second
	}
	if batting != nil {
		if crr, ok := CurrentRunRate(*batting); ok {
			live.CurrentRunRate = &crr
		}
	}
	if rrr, ok := RequiredRunRate(first, second, rules); ok {
		live.RequiredRunRate = &rrr
	}
}
