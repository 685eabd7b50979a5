package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

// resolver maps relationship names to store ids for one import. Names are
// matched after Unicode normalization and case folding, so "Garage" and
// "garage" resolve to one location. The first entity registered under a
// name wins.
//
// Lookups go cache, then store, then create: a name that no section row
// defined is looked up in the target store before a bare entity is created
// for it.
type resolver struct {
	store  inventory.Writer
	counts *Counts
	fold   cases.Caser

	homes     map[string]uuid.UUID
	labels    map[string]uuid.UUID
	locations map[locationKey]uuid.UUID
}

// locationKey scopes location names by home; an empty home matches a
// location of any home.
type locationKey struct {
	home string
	name string
}

func newResolver(store inventory.Writer, counts *Counts) *resolver {
	return &resolver{
		store:     store,
		counts:    counts,
		fold:      cases.Fold(),
		homes:     map[string]uuid.UUID{},
		labels:    map[string]uuid.UUID{},
		locations: map[locationKey]uuid.UUID{},
	}
}

func (r *resolver) key(name string) string {
	return r.fold.String(norm.NFC.String(strings.TrimSpace(name)))
}

func remember[K comparable](m map[K]uuid.UUID, k K, id uuid.UUID) {
	if _, ok := m[k]; !ok {
		m[k] = id
	}
}

func (r *resolver) rememberHome(name string, id uuid.UUID) {
	if k := r.key(name); k != "" {
		remember(r.homes, k, id)
	}
}

func (r *resolver) rememberLabel(name string, id uuid.UUID) {
	if k := r.key(name); k != "" {
		remember(r.labels, k, id)
	}
}

func (r *resolver) rememberLocation(home, name string, id uuid.UUID) {
	k := r.key(name)
	if k == "" {
		return
	}
	remember(r.locations, locationKey{home: r.key(home), name: k}, id)
	remember(r.locations, locationKey{name: k}, id)
}

// home returns the id of the home called name, creating it if needed.
func (r *resolver) home(ctx context.Context, name string) (uuid.UUID, error) {
	k := r.key(name)
	if id, ok := r.homes[k]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, inventory.KindHome, name, func() (uuid.UUID, error) {
		h := &inventory.Home{Name: name}
		err := r.store.CreateHome(ctx, h)
		return h.ID, err
	})
	if err != nil {
		return uuid.Nil, err
	}
	r.homes[k] = id
	return id, nil
}

// label returns the id of the label called name, creating it if needed.
func (r *resolver) label(ctx context.Context, name string) (uuid.UUID, error) {
	k := r.key(name)
	if id, ok := r.labels[k]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, inventory.KindLabel, name, func() (uuid.UUID, error) {
		l := &inventory.Label{Name: name}
		err := r.store.CreateLabel(ctx, l)
		return l.ID, err
	})
	if err != nil {
		return uuid.Nil, err
	}
	r.labels[k] = id
	return id, nil
}

// location returns the id of the location called name, preferring one in
// home. A location created here has no home.
func (r *resolver) location(ctx context.Context, home, name string) (uuid.UUID, error) {
	k := r.key(name)
	if id, ok := r.locations[locationKey{home: r.key(home), name: k}]; ok {
		return id, nil
	}
	if id, ok := r.locations[locationKey{name: k}]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, inventory.KindLocation, name, func() (uuid.UUID, error) {
		l := &inventory.Location{Name: name}
		err := r.store.CreateLocation(ctx, l)
		return l.ID, err
	})
	if err != nil {
		return uuid.Nil, err
	}
	r.rememberLocation(home, name, id)
	return id, nil
}

func (r *resolver) findOrCreate(ctx context.Context, kind inventory.Kind, name string, create func() (uuid.UUID, error)) (uuid.UUID, error) {
	id, ok, err := r.store.FindByName(ctx, kind, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	if ok {
		return id, nil
	}
	id, err = create()
	if err != nil {
		return uuid.Nil, fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	r.counts.add(kind, 1)
	return id, nil
}
