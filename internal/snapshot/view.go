// Package snapshot holds the published, immutable result of the last
// completed refresh pass. Readers load a *View and never observe a pass
// in progress.
package snapshot

import (
	"sort"
	"sync/atomic"
	"time"

	compliance "clientpulse/internal/compliance/models"
	health "clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
)

// View is an immutable generation of derived data. Do not mutate values
// obtained from a View.
type View struct {
	generation  int64
	refreshedAt time.Time
	compliance  map[int]map[id.ClientID]*compliance.Result
	health      map[id.ClientID]*health.Snapshot
}

// Empty is the view served before the first refresh completes.
func Empty() *View {
	return &View{
		compliance: make(map[int]map[id.ClientID]*compliance.Result),
		health:     make(map[id.ClientID]*health.Snapshot),
	}
}

func (v *View) Generation() int64 { return v.generation }

func (v *View) RefreshedAt() time.Time { return v.refreshedAt }

func (v *View) Compliance(clientID id.ClientID, year int) (*compliance.Result, bool) {
	r, ok := v.compliance[year][clientID]
	return r, ok
}

// ComplianceYear returns every client's result for year ordered by client id.
func (v *View) ComplianceYear(year int) []*compliance.Result {
	out := make([]*compliance.Result, 0, len(v.compliance[year]))
	for _, r := range v.compliance[year] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Summary.ClientID.String() < out[j].Summary.ClientID.String()
	})
	return out
}

func (v *View) Health(clientID id.ClientID) (*health.Snapshot, bool) {
	s, ok := v.health[clientID]
	return s, ok
}

// HealthCount is the number of clients with a published snapshot.
func (v *View) HealthCount() int { return len(v.health) }

// Builder stages the next view on top of a base. The base is never modified.
type Builder struct {
	next *View
}

// NewBuilder copies base's indexes so staged writes stay private until Build.
func NewBuilder(base *View, generation int64, refreshedAt time.Time) *Builder {
	if base == nil {
		base = Empty()
	}
	next := &View{
		generation:  generation,
		refreshedAt: refreshedAt,
		compliance:  make(map[int]map[id.ClientID]*compliance.Result, len(base.compliance)),
		health:      make(map[id.ClientID]*health.Snapshot, len(base.health)),
	}
	for year, byClient := range base.compliance {
		next.compliance[year] = byClient
	}
	for cid, s := range base.health {
		next.health[cid] = s
	}
	return &Builder{next: next}
}

// SetCompliance replaces the year's results for scope. An empty scope
// replaces the whole year.
func (b *Builder) SetCompliance(year int, scope []id.ClientID, results []*compliance.Result) {
	var byClient map[id.ClientID]*compliance.Result
	if len(scope) == 0 {
		byClient = make(map[id.ClientID]*compliance.Result, len(results))
	} else {
		prev := b.next.compliance[year]
		byClient = make(map[id.ClientID]*compliance.Result, len(prev)+len(results))
		for cid, r := range prev {
			byClient[cid] = r
		}
		for _, cid := range scope {
			delete(byClient, cid)
		}
	}
	for _, r := range results {
		byClient[r.Summary.ClientID] = r
	}
	b.next.compliance[year] = byClient
}

// SetHealth publishes snapshots as the latest per client.
func (b *Builder) SetHealth(snapshots []*health.Snapshot) {
	for _, s := range snapshots {
		b.next.health[s.ClientID] = s
	}
}

// Compliance reads the staged result, letting a pass consume the compliance
// it computed before publication.
func (b *Builder) Compliance(clientID id.ClientID, year int) (*compliance.Result, bool) {
	return b.next.Compliance(clientID, year)
}

// Build returns the staged view. The builder must not be used afterwards.
func (b *Builder) Build() *View {
	v := b.next
	b.next = nil
	return v
}

// Holder publishes views with an atomic pointer swap.
type Holder struct {
	current atomic.Pointer[View]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.current.Store(Empty())
	return h
}

func (h *Holder) Load() *View {
	return h.current.Load()
}

// Publish swaps in v and returns the previous view.
func (h *Holder) Publish(v *View) *View {
	return h.current.Swap(v)
}
