package cricapi

import (
	"encoding/json"
	"strings"
)

// envelope is the wrapper every CricAPI v1 endpoint answers with.
type envelope[T any] struct {
	Data   T      `json:"data"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (e envelope[T]) ok() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "success")
}

func (e envelope[T]) failure() string {
	return "status=" + e.Status + " reason=" + e.Reason
}

type series struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type teamInfo struct {
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
	Img       string `json:"img"`
}

// scoreRow is one innings line. Newer payloads carry numeric r/w/o; older
// ones put the whole "156/4 (16.2 ov)" string in r.
type scoreRow struct {
	R      json.RawMessage `json:"r"`
	W      int             `json:"w"`
	O      float64         `json:"o"`
	Inning string          `json:"inning"`
}

type match struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	MatchType    string     `json:"matchType"`
	Status       string     `json:"status"`
	Venue        string     `json:"venue"`
	Date         string     `json:"date"`
	DateTimeGMT  string     `json:"dateTimeGMT"`
	Teams        []string   `json:"teams"`
	TeamInfo     []teamInfo `json:"teamInfo"`
	Score        []scoreRow `json:"score"`
	SeriesID     string     `json:"series_id"`
	MatchStarted bool       `json:"matchStarted"`
	MatchEnded   bool       `json:"matchEnded"`
}

// teamNames returns the two sides, preferring teamInfo over the bare list.
func (m match) teamNames() (string, string, bool) {
	if len(m.TeamInfo) >= 2 && m.TeamInfo[0].Name != "" && m.TeamInfo[1].Name != "" {
		return m.TeamInfo[0].Name, m.TeamInfo[1].Name, true
	}
	if len(m.Teams) >= 2 && m.Teams[0] != "" && m.Teams[1] != "" {
		return m.Teams[0], m.Teams[1], true
	}
	return "", "", false
}
