package normalizer

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"gopkg.in/yaml.v3"
)

const (
	unknownTeamColor = "#888888"
	// Containment matching ignores keys shorter than this so that short
	// codes like "MI" never match inside unrelated names.
	minContainmentKey = 5
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// MatchTier reports how a raw name was resolved.
type MatchTier int

const (
	TierSynthesized MatchTier = iota
	TierContainment
	TierExact
)

type RosterTeam struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	ShortName string   `yaml:"shortName"`
	LogoRef   string   `yaml:"logoRef"`
	ColorHex  string   `yaml:"colorHex"`
	Aliases   []string `yaml:"aliases"`
}

type Roster struct {
	Teams []RosterTeam `yaml:"teams"`
}

// ParseRoster decodes a YAML roster and checks ids are unique.
func ParseRoster(raw []byte) (Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}

	seen := make(map[string]struct{}, len(roster.Teams))
	for _, team := range roster.Teams {
		if strings.TrimSpace(team.ID) == "" || strings.TrimSpace(team.Name) == "" {
			return Roster{}, fmt.Errorf("roster team requires id and name: %+v", team)
		}
		if _, ok := seen[team.ID]; ok {
			return Roster{}, fmt.Errorf("duplicate roster team id %q", team.ID)
		}
		seen[team.ID] = struct{}{}
	}

	return roster, nil
}

func DefaultRoster() (Roster, error) {
	return ParseRoster(defaultRosterYAML)
}

type aliasKey struct {
	key    string
	teamID string
}

// Canonicalizer maps free-form team names onto stable Team records.
type Canonicalizer struct {
	teams       map[string]tournament.Team
	order       []string
	exact       map[string]string
	containment []aliasKey
}

func NewCanonicalizer(roster Roster) *Canonicalizer {
	c := &Canonicalizer{
		teams: make(map[string]tournament.Team, len(roster.Teams)),
		exact: make(map[string]string),
	}

	for _, rt := range roster.Teams {
		team := tournament.Team{
			ID:        rt.ID,
			Name:      rt.Name,
			ShortName: rt.ShortName,
			LogoRef:   rt.LogoRef,
			ColorHex:  rt.ColorHex,
		}
		if team.ShortName == "" {
			team.ShortName = tournament.Initials(team.Name)
		}
		if team.LogoRef == "" {
			team.LogoRef = "/teams/" + team.ID + ".png"
		}
		c.teams[team.ID] = team
		c.order = append(c.order, team.ID)

		keys := append([]string{rt.ID, rt.Name, team.ShortName}, rt.Aliases...)
		for _, raw := range keys {
			key := normalizeName(raw)
			if key == "" {
				continue
			}
			if _, taken := c.exact[key]; !taken {
				c.exact[key] = team.ID
			}
		}
		for _, raw := range append([]string{rt.Name}, rt.Aliases...) {
			key := normalizeName(raw)
			if len(key) < minContainmentKey {
				continue
			}
			c.containment = append(c.containment, aliasKey{key: key, teamID: team.ID})
		}
	}

	sort.SliceStable(c.containment, func(i, j int) bool {
		a, b := c.containment[i], c.containment[j]
		if len(a.key) != len(b.key) {
			return len(a.key) > len(b.key)
		}
		return a.key < b.key
	})

	return c
}

// MustDefaultCanonicalizer builds a Canonicalizer from the embedded roster.
func MustDefaultCanonicalizer() *Canonicalizer {
	roster, err := DefaultRoster()
	if err != nil {
		panic(err)
	}
	return NewCanonicalizer(roster)
}

// Canonicalize never fails: unknown names get a synthesized Team.
func (c *Canonicalizer) Canonicalize(name string) tournament.Team {
	team, _ := c.Lookup(name)
	return team
}

// Lookup resolves name by exact alias, then by containment, then by
// synthesis. A containment match that points at two different teams is
// ambiguous and falls through to synthesis.
func (c *Canonicalizer) Lookup(name string) (tournament.Team, MatchTier) {
	key := normalizeName(name)
	if key == "" {
		return synthesizeTeam("TBD"), TierSynthesized
	}

	if id, ok := c.exact[key]; ok {
		return c.teams[id], TierExact
	}

	if len(key) >= minContainmentKey {
		if id, ok := c.containmentMatch(key); ok {
			return c.teams[id], TierContainment
		}
	}

	return synthesizeTeam(name), TierSynthesized
}

// Team returns a roster team by id.
func (c *Canonicalizer) Team(id string) (tournament.Team, bool) {
	team, ok := c.teams[id]
	return team, ok
}

// Teams returns the roster in file order.
func (c *Canonicalizer) Teams() []tournament.Team {
	out := make([]tournament.Team, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.teams[id])
	}
	return out
}

// containmentMatch first looks for roster aliases inside key, where the
// longest alias wins. Failing that it looks for aliases that contain key,
// which must all belong to one team.
func (c *Canonicalizer) containmentMatch(key string) (string, bool) {
	bestLen := 0
	bestID := ""
	for _, alias := range c.containment {
		if len(alias.key) < bestLen {
			break
		}
		if !strings.Contains(key, alias.key) {
			continue
		}
		if bestID == "" {
			bestLen = len(alias.key)
			bestID = alias.teamID
			continue
		}
		if alias.teamID != bestID {
			return "", false
		}
	}
	if bestID != "" {
		return bestID, true
	}

	for _, alias := range c.containment {
		if !strings.Contains(alias.key, key) {
			continue
		}
		if bestID != "" && alias.teamID != bestID {
			return "", false
		}
		bestID = alias.teamID
	}
	return bestID, bestID != ""
}

func synthesizeTeam(name string) tournament.Team {
	display := strings.Join(strings.Fields(name), " ")
	id := tournament.Slugify(display)
	if id == "" {
		id = "tbd"
	}
	short := tournament.Initials(display)
	if short == "" {
		short = strings.ToUpper(id)
	}
	return tournament.Team{
		ID:        id,
		Name:      display,
		ShortName: short,
		LogoRef:   "/teams/" + id + ".png",
		ColorHex:  unknownTeamColor,
	}
}

func normalizeName(name string) string {
	value := strings.ToLower(name)
	value = strings.ReplaceAll(value, ".", " ")
	return strings.Join(strings.Fields(value), " ")
}
