package tournament

import (
	"fmt"
	"strconv"

	sonic "github.com/bytedance/sonic"
)

// BallKind distinguishes a scoring delivery from the marker outcomes.
type BallKind string

const (
	BallRuns   BallKind = "runs"
	BallWicket BallKind = "wicket"
	BallWide   BallKind = "wide"
	BallNoBall BallKind = "no-ball"
)

// Ball is one delivery. It encodes as a JSON number for runs and as a
// string for wicket, wide and no-ball.
type Ball struct {
	Kind BallKind
	Runs int
}

func RunsBall(runs int) Ball {
	return Ball{Kind: BallRuns, Runs: runs}
}

func MarkerBall(kind BallKind) Ball {
	return Ball{Kind: kind}
}

func (b Ball) String() string {
	switch b.Kind {
	case BallWicket:
		return "W"
	case BallWide:
		return "wd"
	case BallNoBall:
		return "nb"
	default:
		return strconv.Itoa(b.Runs)
	}
}

func (b Ball) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BallRuns, "":
		return strconv.AppendInt(nil, int64(b.Runs), 10), nil
	case BallWicket, BallWide, BallNoBall:
		return strconv.AppendQuote(nil, string(b.Kind)), nil
	default:
		return nil, fmt.Errorf("unknown ball kind %q", b.Kind)
	}
}

func (b *Ball) UnmarshalJSON(raw []byte) error {
	if len(raw) > 0 && raw[0] == '"' {
		var kind string
		if err := sonic.Unmarshal(raw, &kind); err != nil {
			return err
		}
		switch BallKind(kind) {
		case BallWicket, BallWide, BallNoBall:
			*b = MarkerBall(BallKind(kind))
			return nil
		default:
			return fmt.Errorf("unknown ball marker %q", kind)
		}
	}

	runs, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("decode ball runs: %w", err)
	}
	*b = RunsBall(runs)
	return nil
}
