package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	// UnknownClock is reported when no time of day can be read.
	UnknownClock = "00:00"
)

// LeagueZone is the local time of the fixtures (IST).
var LeagueZone = time.FixedZone("IST", 5*60*60+30*60)

var (
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	clockPattern  = regexp.MustCompile(`(?i)\b(\d{1,2})[:.](\d{2})(?::\d{2})?\s*(a\.?m\.?|p\.?m\.?)?`)

	dateLayouts = []string{
		DateLayout,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2 January 2006",
		"2 Jan 2006",
		"January 2 2006",
		"Jan 2 2006",
	}

	weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
)

// ParseDate reads the date formats used by the upstream pages and APIs and
// returns YYYY-MM-DD. Unreadable input yields today's date in LeagueZone.
func ParseDate(text string, now time.Time) string {
	if date, ok := ParseDateOK(text); ok {
		return date
	}
	return now.In(LeagueZone).Format(DateLayout)
}

func ParseDateOK(text string) (string, bool) {
	cleaned := cleanDateText(text)
	if cleaned == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// ParseClock reads "7:30 PM IST" or "19:30" and returns 24-hour HH:MM.
// Unreadable input yields UnknownClock.
func ParseClock(text string) string {
	if clock, ok := ParseClockOK(text); ok {
		return clock
	}
	return UnknownClock
}

func ParseClockOK(text string) (string, bool) {
	m := clockPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return "", false
	}

	meridiem := strings.ToLower(strings.ReplaceAll(m[3], ".", ""))
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// ParseKickoff converts an upstream GMT timestamp into local date and clock.
func ParseKickoff(gmt string) (date, clock string, ok bool) {
	value := strings.TrimSpace(gmt)
	if value == "" {
		return "", "", false
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		t, err = time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			local := t.In(LeagueZone)
			return local.Format(DateLayout), local.Format(ClockLayout), true
		}
	}
	return "", "", false
}

func cleanDateText(text string) string {
	value := strings.ReplaceAll(text, ",", " ")
	value = ordinalSuffix.ReplaceAllString(value, "$1")
	fields := strings.Fields(value)
	if len(fields) > 1 && isWeekday(fields[0]) {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func isWeekday(token string) bool {
	token = strings.ToLower(strings.TrimSuffix(token, "."))
	if len(token) < 3 {
		return false
	}
	for _, day := range weekdays {
		if token == day || token == day[:3] {
			return true
		}
	}
	return false
}
