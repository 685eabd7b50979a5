// Package memory is an in-memory inventory.Store for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

type item struct {
	inventory.Item
	locationID uuid.UUID
	homeID     uuid.UUID
	labelIDs   []uuid.UUID
}

type location struct {
	inventory.Location
	homeID uuid.UUID
}

// Store keeps rows in insertion order. All reads return copies.
type Store struct {
	mu        sync.RWMutex
	homes     []inventory.Home
	labels    []inventory.Label
	locations []location
	items     []item
	policies  []inventory.Policy
}

var _ inventory.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) homeByID(id uuid.UUID) (inventory.Home, bool) {
	for _, h := range s.homes {
		if h.ID == id {
			return h, true
		}
	}
	return inventory.Home{}, false
}

func (s *Store) labelByID(id uuid.UUID) (inventory.Label, bool) {
	for _, l := range s.labels {
		if l.ID == id {
			return l, true
		}
	}
	return inventory.Label{}, false
}

func (s *Store) locationIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.locations, func(l location) bool { return l.ID == id })
}

func (s *Store) itemIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.items, func(it item) bool { return it.ID == id })
}

func (s *Store) homeRef(id uuid.UUID) *inventory.Ref {
	if id == uuid.Nil {
		return nil
	}
	h, ok := s.homeByID(id)
	if !ok {
		return nil
	}
	return &inventory.Ref{ID: h.ID, Name: h.Name}
}

func (s *Store) resolveLocation(l location, withPhotos bool) inventory.Location {
	out := l.Location
	out.Home = s.homeRef(l.homeID)
	if l.Photo != nil {
		p := copyPhoto(*l.Photo, withPhotos)
		out.Photo = &p
	}
	return out
}

func (s *Store) resolveItem(it item, withPhotos bool) inventory.Item {
	out := it.Item
	out.Home = s.homeRef(it.homeID)
	out.Location = nil
	out.LocationHomeID = uuid.NullUUID{}
	if i := s.locationIndex(it.locationID); it.locationID != uuid.Nil && i >= 0 {
		loc := s.locations[i]
		out.Location = &inventory.Ref{ID: loc.ID, Name: loc.Name}
		if loc.homeID != uuid.Nil {
			out.LocationHomeID = uuid.NullUUID{UUID: loc.homeID, Valid: true}
		}
	}
	out.Labels = nil
	for _, id := range it.labelIDs {
		if l, ok := s.labelByID(id); ok {
			out.Labels = append(out.Labels, inventory.Ref{ID: l.ID, Name: l.Name})
		}
	}
	out.Attachments = slices.Clone(it.Attachments)
	out.Photos = make([]inventory.Photo, len(it.Photos))
	for i, p := range it.Photos {
		out.Photos[i] = copyPhoto(p, withPhotos)
	}
	return out
}

func copyPhoto(p inventory.Photo, withData bool) inventory.Photo {
	if withData {
		p.Data = slices.Clone(p.Data)
	} else {
		p.Data = nil
	}
	return p
}

func page[T any](rows []T, opts inventory.ListOptions) []T {
	if opts.Offset >= len(rows) {
		return nil
	}
	rows = rows[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}

// Count returns the number of rows of kind inside scope.
func (s *Store) Count(ctx context.Context, kind inventory.Kind, scope inventory.Scope) (int, error) {
	opts := inventory.ListOptions{Scope: scope}
	var n int
	var err error
	switch kind {
	case inventory.KindItem:
		var rows []inventory.Item
		rows, err = s.ListItems(ctx, opts)
		n = len(rows)
	case inventory.KindLocation:
		var rows []inventory.Location
		rows, err = s.ListLocations(ctx, opts)
		n = len(rows)
	case inventory.KindLabel:
		var rows []inventory.Label
		rows, err = s.ListLabels(ctx, opts)
		n = len(rows)
	case inventory.KindHome:
		var rows []inventory.Home
		rows, err = s.ListHomes(ctx, opts)
		n = len(rows)
	case inventory.KindPolicy:
		var rows []inventory.Policy
		rows, err = s.ListPolicies(ctx, opts)
		n = len(rows)
	default:
		return 0, fmt.Errorf("unknown kind %q", kind)
	}
	return n, err
}

// ListItems returns one batch of items in insertion order.
func (s *Store) ListItems(_ context.Context, opts inventory.ListOptions) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []inventory.Item
	for _, it := range s.items {
		resolved := s.resolveItem(it, opts.WithPhotos)
		if opts.Scope.IncludesItem(resolved) {
			rows = append(rows, resolved)
		}
	}
	return page(rows, opts), nil
}

// ListLocations returns one batch of locations in insertion order.
func (s *Store) ListLocations(_ context.Context, opts inventory.ListOptions) ([]inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []inventory.Location
	for _, l := range s.locations {
		resolved := s.resolveLocation(l, opts.WithPhotos)
		if opts.Scope.IncludesLocation(resolved) {
			rows = append(rows, resolved)
		}
	}
	return page(rows, opts), nil
}

// ListLabels returns one batch of labels in insertion order.
func (s *Store) ListLabels(_ context.Context, opts inventory.ListOptions) ([]inventory.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(page(s.labels, opts)), nil
}

// ListHomes returns one batch of homes in insertion order.
func (s *Store) ListHomes(_ context.Context, opts inventory.ListOptions) ([]inventory.Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []inventory.Home
	for _, h := range s.homes {
		if opts.Scope.IncludesHome(h) {
			rows = append(rows, h)
		}
	}
	return page(rows, opts), nil
}

// ListPolicies returns one batch of policies in insertion order.
func (s *Store) ListPolicies(_ context.Context, opts inventory.ListOptions) ([]inventory.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []inventory.Policy
	for _, p := range s.policies {
		if opts.Scope.IncludesPolicy(p) {
			p.HomeIDs = slices.Clone(p.HomeIDs)
			rows = append(rows, p)
		}
	}
	return page(rows, opts), nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// CreateHome inserts h.
func (s *Store) CreateHome(_ context.Context, h *inventory.Home) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignID(&h.ID)
	s.homes = append(s.homes, *h)
	return nil
}

// CreateLabel inserts l.
func (s *Store) CreateLabel(_ context.Context, l *inventory.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignID(&l.ID)
	s.labels = append(s.labels, *l)
	return nil
}

// CreateLocation inserts l. Its home, if any, must exist.
func (s *Store) CreateLocation(_ context.Context, l *inventory.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := location{Location: *l}
	if l.Home != nil {
		if _, ok := s.homeByID(l.Home.ID); !ok {
			return fmt.Errorf("home %s: %w", l.Home.ID, inventory.ErrNotFound)
		}
		row.homeID = l.Home.ID
	}
	assignID(&l.ID)
	row.ID = l.ID
	row.Home = nil
	if l.Photo != nil {
		p := copyPhoto(*l.Photo, true)
		row.Photo = &p
	}
	s.locations = append(s.locations, row)
	return nil
}

// CreateItem inserts it. Its location, home and labels must exist.
func (s *Store) CreateItem(_ context.Context, it *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := item{Item: *it}
	if it.Location != nil {
		if s.locationIndex(it.Location.ID) < 0 {
			return fmt.Errorf("location %s: %w", it.Location.ID, inventory.ErrNotFound)
		}
		row.locationID = it.Location.ID
	}
	if it.Home != nil {
		if _, ok := s.homeByID(it.Home.ID); !ok {
			return fmt.Errorf("home %s: %w", it.Home.ID, inventory.ErrNotFound)
		}
		row.homeID = it.Home.ID
	}
	for _, l := range it.Labels {
		if _, ok := s.labelByID(l.ID); !ok {
			return fmt.Errorf("label %s: %w", l.ID, inventory.ErrNotFound)
		}
		row.labelIDs = append(row.labelIDs, l.ID)
	}

	assignID(&it.ID)
	row.ID = it.ID
	row.Location, row.Home, row.Labels = nil, nil, nil
	row.Photos = make([]inventory.Photo, len(it.Photos))
	for i, p := range it.Photos {
		assignID(&p.ID)
		row.Photos[i] = copyPhoto(p, true)
	}
	s.items = append(s.items, row)
	return nil
}

// CreatePolicy inserts p. Every referenced home must exist.
func (s *Store) CreatePolicy(_ context.Context, p *inventory.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range p.HomeIDs {
		if _, ok := s.homeByID(id); !ok {
			return fmt.Errorf("home %s: %w", id, inventory.ErrNotFound)
		}
	}
	assignID(&p.ID)
	row := *p
	row.HomeIDs = slices.Clone(p.HomeIDs)
	s.policies = append(s.policies, row)
	return nil
}

// AttachPhoto appends a photo to an item, keeping photos ordered by
// SortOrder, or replaces a location's photo.
func (s *Store) AttachPhoto(_ context.Context, kind inventory.Kind, ownerID uuid.UUID, p inventory.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignID(&p.ID)
	p = copyPhoto(p, true)

	switch kind {
	case inventory.KindItem:
		i := s.itemIndex(ownerID)
		if i < 0 {
			return fmt.Errorf("item %s: %w", ownerID, inventory.ErrNotFound)
		}
		photos := append(s.items[i].Photos, p)
		slices.SortStableFunc(photos, func(a, b inventory.Photo) int { return a.SortOrder - b.SortOrder })
		s.items[i].Photos = photos
	case inventory.KindLocation:
		i := s.locationIndex(ownerID)
		if i < 0 {
			return fmt.Errorf("location %s: %w", ownerID, inventory.ErrNotFound)
		}
		s.locations[i].Photo = &p
	default:
		return fmt.Errorf("%s rows have no photos", kind)
	}
	return nil
}

// FindByName returns the first row of kind whose name matches, ignoring
// case. Items match on title and policies on policy number.
func (s *Store) FindByName(_ context.Context, kind inventory.Kind, name string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := func(v string) bool { return strings.EqualFold(v, name) }
	switch kind {
	case inventory.KindHome:
		for _, h := range s.homes {
			if match(h.Name) {
				return h.ID, true, nil
			}
		}
	case inventory.KindLabel:
		for _, l := range s.labels {
			if match(l.Name) {
				return l.ID, true, nil
			}
		}
	case inventory.KindLocation:
		for _, l := range s.locations {
			if match(l.Name) {
				return l.ID, true, nil
			}
		}
	case inventory.KindItem:
		for _, it := range s.items {
			if match(it.Title) {
				return it.ID, true, nil
			}
		}
	case inventory.KindPolicy:
		for _, p := range s.policies {
			if match(p.PolicyNumber) {
				return p.ID, true, nil
			}
		}
	default:
		return uuid.Nil, false, fmt.Errorf("unknown kind %q", kind)
	}
	return uuid.Nil, false, nil
}
