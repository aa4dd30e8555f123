package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
)

var (
	intPattern   = regexp.MustCompile(`[-+]?\d+`)
	floatPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)`)
)

// ParseInt extracts the first integer from text such as "14*" or " 8 ".
func ParseInt(text string) (int, bool) {
	m := intPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseNumber extracts the first decimal number from text such as "+0.809".
func ParseNumber(text string) (float64, bool) {
	m := floatPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBall reads one recent-overs entry.
func ParseBall(text string) (tournament.Ball, bool) {
	value := strings.ToLower(strings.TrimSpace(text))
	if value == "" {
		return tournament.Ball{}, false
	}
	switch value {
	case "w", "wkt", "wicket":
		return tournament.MarkerBall(tournament.BallWicket), true
	case "wd", "wide":
		return tournament.MarkerBall(tournament.BallWide), true
	case "nb", "no-ball", "noball":
		return tournament.MarkerBall(tournament.BallNoBall), true
	case "•", ".":
		return tournament.RunsBall(0), true
	}

	runs, err := strconv.Atoi(value)
	if err != nil || runs < 0 || runs > 6 {
		return tournament.Ball{}, false
	}
	return tournament.RunsBall(runs), true
}
