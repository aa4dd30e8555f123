package normalizer

import (
	"regexp"
	"strconv"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
)

var (
	scorePattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)\s*\(\s*(\d+(?:\.\d+)?)\s*(?:ov|ovs|over|overs)?\s*\)`)
	oversPattern = regexp.MustCompile(`^\s*(\d+)(?:\.(\d))?\s*$`)
)

// ParseScore reads "RUNS/WICKETS (OVERS.BALLS ov)" anywhere in text.
// Surrounding noise such as a team prefix is ignored.
func ParseScore(text string) (tournament.Score, bool) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return tournament.Score{}, false
	}

	runs, err := strconv.Atoi(m[1])
	if err != nil {
		return tournament.Score{}, false
	}
	wickets, err := strconv.Atoi(m[2])
	if err != nil || wickets > 10 {
		return tournament.Score{}, false
	}
	overs, ok := ParseOvers(m[3])
	if !ok {
		return tournament.Score{}, false
	}

	return tournament.Score{Runs: runs, Wickets: wickets, Overs: overs}, true
}

// ParseOvers converts cricket notation "16.2" into decimal overs.
// The digit after the point counts balls and must be 0..5.
func ParseOvers(text string) (float64, bool) {
	m := oversPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	completed, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	balls := 0
	if m[2] != "" {
		balls = int(m[2][0] - '0')
		if balls > 5 {
			return 0, false
		}
	}

	return float64(completed) + float64(balls)/6, true
}

// OversFromNotation converts an upstream float such as 16.2 that uses
// cricket notation rather than a decimal fraction.
func OversFromNotation(v float64) (float64, bool) {
	if v < 0 {
		return 0, false
	}
	return ParseOvers(strconv.FormatFloat(v, 'f', -1, 64))
}
