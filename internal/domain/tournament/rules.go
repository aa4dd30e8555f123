package tournament

import "fmt"

// ScoringRules holds the competition constants used to derive points and
// run rates.
type ScoringRules struct {
	PointsPerWin int
	PointsPerTie int
	InningsOvers int
}

func DefaultScoringRules() ScoringRules {
	return ScoringRules{
		PointsPerWin: 2,
		PointsPerTie: 1,
		InningsOvers: 20,
	}
}

func (r ScoringRules) Validate() error {
	if r.PointsPerWin < 0 || r.PointsPerTie < 0 {
		return fmt.Errorf("points per result must be >= 0")
	}
	if r.InningsOvers < 1 {
		return fmt.Errorf("innings overs must be >= 1")
	}
	return nil
}

func (r ScoringRules) PointsFor(won, tied int) int {
	return won*r.PointsPerWin + tied*r.PointsPerTie
}

// InningsBalls is the number of legal deliveries in a full innings.
func (r ScoringRules) InningsBalls() int {
	return r.InningsOvers * 6
}
