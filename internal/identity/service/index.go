package service

import (
	"strings"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	pstrings "clientpulse/pkg/platform/strings"
)

type indexEntry struct {
	clientID      id.ClientID
	canonicalName string
}

type foldedName struct {
	folded string
	entry  indexEntry
}

// index is an immutable snapshot of clients and active aliases. A new index
// is built after every admin mutation and swapped in atomically.
type index struct {
	exact  map[string]indexEntry
	alias  map[string]indexEntry
	lower  map[string]indexEntry
	folded []foldedName
}

func newIndex(clients []*models.Client, aliases []*models.Alias) *index {
	idx := &index{
		exact: make(map[string]indexEntry, len(clients)),
		alias: make(map[string]indexEntry, len(aliases)),
		lower: make(map[string]indexEntry, len(clients)),
	}
	for _, c := range clients {
		e := indexEntry{clientID: c.ID, canonicalName: c.CanonicalName}
		idx.exact[c.CanonicalName] = e
		idx.lower[strings.ToLower(c.CanonicalName)] = e
		if f := pstrings.AlphaNumFold(c.CanonicalName); f != "" {
			idx.folded = append(idx.folded, foldedName{folded: f, entry: e})
		}
	}
	for _, a := range aliases {
		if !a.IsActive {
			continue
		}
		e, ok := idx.exact[a.CanonicalName]
		if !ok {
			continue
		}
		idx.alias[a.DisplayName] = e
		if f := pstrings.AlphaNumFold(a.DisplayName); f != "" {
			idx.folded = append(idx.folded, foldedName{folded: f, entry: e})
		}
	}
	return idx
}

func (i *index) size() int {
	return len(i.exact) + len(i.alias)
}

// lookup runs the online matching steps in order.
func (i *index) lookup(name string) (indexEntry, models.MatchStep, bool) {
	if e, ok := i.exact[name]; ok {
		return e, models.MatchExact, true
	}
	if e, ok := i.alias[name]; ok {
		return e, models.MatchAlias, true
	}
	if e, ok := i.lower[strings.ToLower(name)]; ok {
		return e, models.MatchCaseInsensitive, true
	}
	return indexEntry{}, "", false
}

// fuzzy returns every distinct client whose folded name contains, or is
// contained in, the folded input.
func (i *index) fuzzy(name string) []indexEntry {
	folded := pstrings.AlphaNumFold(name)
	if folded == "" {
		return nil
	}
	seen := make(map[id.ClientID]struct{})
	var out []indexEntry
	for _, fn := range i.folded {
		if !pstrings.ContainsEither(folded, fn.folded) {
			continue
		}
		if _, dup := seen[fn.entry.clientID]; dup {
			continue
		}
		seen[fn.entry.clientID] = struct{}{}
		out = append(out, fn.entry)
	}
	return out
}
