package inventory

import (
	"slices"

	"github.com/google/uuid"
)

// Scope restricts an enumeration to a set of homes. The zero Scope matches
// everything.
type Scope struct {
	homes map[uuid.UUID]struct{}
}

// AllHomes returns the unfiltered scope.
func AllHomes() Scope {
	return Scope{}
}

// ScopeFor returns a scope limited to ids. A nil slice means no filtering; a
// non-nil empty slice matches no home at all.
func ScopeFor(ids []uuid.UUID) Scope {
	if ids == nil {
		return Scope{}
	}
	homes := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		homes[id] = struct{}{}
	}
	return Scope{homes: homes}
}

// Filtered reports whether the scope restricts homes.
func (s Scope) Filtered() bool {
	return s.homes != nil
}

// HomeIDs returns the included home ids in a stable order.
func (s Scope) HomeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.homes))
	for id := range s.homes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return ids
}

func (s Scope) has(id uuid.NullUUID) bool {
	if !id.Valid {
		return false
	}
	_, ok := s.homes[id.UUID]
	return ok
}

// IncludesHome reports whether h is in scope.
func (s Scope) IncludesHome(h Home) bool {
	if !s.Filtered() {
		return true
	}
	return s.has(uuid.NullUUID{UUID: h.ID, Valid: true})
}

// IncludesLocation reports whether l belongs to an included home.
func (s Scope) IncludesLocation(l Location) bool {
	if !s.Filtered() {
		return true
	}
	return s.has(l.HomeID())
}

// IncludesItem reports whether it is in scope: its direct home matches, or it
// has no direct home and its location's home matches.
func (s Scope) IncludesItem(it Item) bool {
	if !s.Filtered() {
		return true
	}
	if it.Home != nil {
		return s.has(uuid.NullUUID{UUID: it.Home.ID, Valid: true})
	}
	return s.has(it.LocationHomeID)
}

// IncludesPolicy reports whether p covers an included home. Policies without
// any home are global and always included.
func (s Scope) IncludesPolicy(p Policy) bool {
	if !s.Filtered() || len(p.HomeIDs) == 0 {
		return true
	}
	for _, id := range p.HomeIDs {
		if s.has(uuid.NullUUID{UUID: id, Valid: true}) {
			return true
		}
	}
	return false
}

// IncludesLabel always returns true; labels are not owned by homes.
func (s Scope) IncludesLabel(Label) bool {
	return true
}
