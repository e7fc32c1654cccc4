package models

import (
	"time"

	id "clientpulse/pkg/domain"
)

// UnresolvedName is an operator queue entry for a raw name no client matched.
// Repeated sightings of the same (RawName, Source) bump Occurrences and LastSeen.
type UnresolvedName struct {
	RawName     string    `json:"raw_name"`
	Source      string    `json:"source"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Occurrences int       `json:"occurrences"`
	Resolved    bool      `json:"resolved"`
}

// MatchStep names the resolver step that produced a match.
type MatchStep string

const (
	MatchExact           MatchStep = "exact"
	MatchAlias           MatchStep = "alias"
	MatchCaseInsensitive MatchStep = "case_insensitive"
	MatchFuzzy           MatchStep = "fuzzy"
)

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	ClientID      id.ClientID `json:"client_id"`
	CanonicalName string      `json:"canonical_name"`
	Step          MatchStep   `json:"step"`
}
