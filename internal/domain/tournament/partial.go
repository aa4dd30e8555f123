package tournament

import (
	"sort"
	"strings"
)

// Section names one independently sourced part of the snapshot.
type Section string

const (
	SectionUpcomingMatches  Section = "upcomingMatches"
	SectionLiveMatch        Section = "liveMatch"
	SectionPointsTable      Section = "pointsTable"
	SectionCompleteSchedule Section = "completeSchedule"
)

// AllSections is the fixed order used for merging and reporting.
var AllSections = []Section{
	SectionUpcomingMatches,
	SectionLiveMatch,
	SectionPointsTable,
	SectionCompleteSchedule,
}

// PartialSnapshot is what one source managed to retrieve. List sections
// count as present only when non-empty. The live section is present once a
// source has confirmed the live state, even when no match is in progress.
type PartialSnapshot struct {
	UpcomingMatches  []Match
	LiveMatch        *LiveMatch
	LiveMatchKnown   bool
	PointsTable      []PointsTableEntry
	CompleteSchedule []Match
}

// SetLiveMatch records the live state. A nil match means the source
// confirmed nothing is live.
func (p *PartialSnapshot) SetLiveMatch(m *LiveMatch) {
	p.LiveMatch = m
	p.LiveMatchKnown = true
}

func (p PartialSnapshot) Has(section Section) bool {
	switch section {
	case SectionUpcomingMatches:
		return len(p.UpcomingMatches) > 0
	case SectionLiveMatch:
		return p.LiveMatchKnown || p.LiveMatch != nil
	case SectionPointsTable:
		return len(p.PointsTable) > 0
	case SectionCompleteSchedule:
		return len(p.CompleteSchedule) > 0
	default:
		return false
	}
}

func (p PartialSnapshot) Sections() []Section {
	out := make([]Section, 0, len(AllSections))
	for _, section := range AllSections {
		if p.Has(section) {
			out = append(out, section)
		}
	}
	return out
}

func (p PartialSnapshot) Complete() bool {
	for _, section := range AllSections {
		if !p.Has(section) {
			return false
		}
	}
	return true
}

func (p PartialSnapshot) Empty() bool {
	return len(p.Sections()) == 0
}

// Adopt copies one section from other, replacing whatever p holds for it.
func (p *PartialSnapshot) Adopt(other PartialSnapshot, section Section) {
	switch section {
	case SectionUpcomingMatches:
		p.UpcomingMatches = other.UpcomingMatches
	case SectionLiveMatch:
		p.SetLiveMatch(other.LiveMatch)
	case SectionPointsTable:
		p.PointsTable = other.PointsTable
	case SectionCompleteSchedule:
		p.CompleteSchedule = other.CompleteSchedule
	}
}

// Provenance maps every section to the source that supplied it.
type Provenance map[Section]string

func (p Provenance) UsedStatic() bool {
	for _, source := range p {
		if source == StaticSourceName {
			return true
		}
	}
	return false
}

func (p Provenance) AllStatic() bool {
	for _, section := range AllSections {
		if p[section] != StaticSourceName {
			return false
		}
	}
	return true
}

// Sources lists the distinct contributing sources, sorted.
func (p Provenance) Sources() []string {
	seen := make(map[string]struct{}, len(p))
	out := make([]string, 0, len(p))
	for _, source := range p {
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// String renders "section=source" pairs in AllSections order.
func (p Provenance) String() string {
	parts := make([]string, 0, len(AllSections))
	for _, section := range AllSections {
		source, ok := p[section]
		if !ok {
			continue
		}
		parts = append(parts, string(section)+"="+source)
	}
	return strings.Join(parts, ",")
}
