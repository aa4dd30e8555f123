package tournament

import "math"

// MatchStatus is the lifecycle state of a fixture.
type MatchStatus string

const (
	StatusUpcoming  MatchStatus = "upcoming"
	StatusLive      MatchStatus = "live"
	StatusCompleted MatchStatus = "completed"
)

// Team is a franchise as it appears in the snapshot.
type Team struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"shortName" validate:"required"`
	LogoRef   string `json:"logoRef,omitempty"`
	ColorHex  string `json:"colorHex,omitempty" validate:"omitempty,hexcolor"`
}

// Score is one innings total. Overs is decimal: completed overs plus balls/6.
type Score struct {
	Runs    int     `json:"runs" validate:"gte=0"`
	Wickets int     `json:"wickets" validate:"gte=0,lte=10"`
	Overs   float64 `json:"overs" validate:"gte=0"`
}

// OversAsBalls returns the number of legal deliveries bowled.
func (s Score) OversAsBalls() int {
	return int(math.Round(s.Overs * 6))
}

type Match struct {
	ID     string      `json:"id" validate:"required"`
	Team1  Team        `json:"team1"`
	Team2  Team        `json:"team2"`
	Date   string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string      `json:"time" validate:"required,datetime=15:04"`
	Venue  string      `json:"venue"`
	Status MatchStatus `json:"status" validate:"oneof=upcoming live completed"`
	Result string      `json:"result,omitempty"`
}

// Kickoff returns a sortable key for the scheduled start.
func (m Match) Kickoff() string {
	return m.Date + "T" + m.Time
}

type Batsman struct {
	Name  string `json:"name" validate:"required"`
	Runs  int    `json:"runs" validate:"gte=0"`
	Balls int    `json:"balls" validate:"gte=0"`
	Fours int    `json:"fours" validate:"gte=0"`
	Sixes int    `json:"sixes" validate:"gte=0"`
}

type Bowler struct {
	Name    string  `json:"name" validate:"required"`
	Overs   float64 `json:"overs" validate:"gte=0"`
	Maidens int     `json:"maidens" validate:"gte=0"`
	Runs    int     `json:"runs" validate:"gte=0"`
	Wickets int     `json:"wickets" validate:"gte=0,lte=10"`
}

type Over struct {
	OverNumber int    `json:"overNumber" validate:"gte=1"`
	Balls      []Ball `json:"balls" validate:"dive"`
}

type Commentary struct {
	Time string `json:"time"`
	Text string `json:"text" validate:"required"`
}

// LiveMatch is a Match in progress with ball-by-ball detail.
// CurrentBatsmen lists the striker first. Commentary is newest first.
type LiveMatch struct {
	Match
	Team1Score            *Score       `json:"team1Score,omitempty"`
	Team2Score            *Score       `json:"team2Score,omitempty"`
	CurrentBatsmen        []Batsman    `json:"currentBatsmen,omitempty" validate:"max=2,dive"`
	CurrentBowler         *Bowler      `json:"currentBowler,omitempty"`
	RecentOvers           []Over       `json:"recentOvers,omitempty" validate:"dive"`
	Commentary            []Commentary `json:"commentary,omitempty" validate:"dive"`
	CurrentRunRate        *float64     `json:"currentRunRate,omitempty"`
	RequiredRunRate       *float64     `json:"requiredRunRate,omitempty"`
	LastWicketDescription string       `json:"lastWicketDescription,omitempty"`
}

type PointsTableEntry struct {
	Team       Team    `json:"team"`
	Matches    int     `json:"matches" validate:"gte=0"`
	Won        int     `json:"won" validate:"gte=0"`
	Lost       int     `json:"lost" validate:"gte=0"`
	Tied       int     `json:"tied" validate:"gte=0"`
	Points     int     `json:"points" validate:"gte=0"`
	NetRunRate float64 `json:"netRunRate"`
}
