package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSnapshotUnsupported is returned by Snapshot when the backing
	// database cannot be copied into a single file.
	ErrSnapshotUnsupported = errors.New("snapshot not supported by this store")
)

// ListOptions selects one ordered batch of rows.
type ListOptions struct {
	Scope  Scope
	Offset int
	Limit  int

	// WithPhotos loads photo bytes. Without it photos are listed with their
	// ids, sort order and extension only.
	WithPhotos bool
}

// Reader enumerates rows in a stable order, one batch at a time.
type Reader interface {
	Count(ctx context.Context, kind Kind, scope Scope) (int, error)
	ListItems(ctx context.Context, opts ListOptions) ([]Item, error)
	ListLocations(ctx context.Context, opts ListOptions) ([]Location, error)
	ListLabels(ctx context.Context, opts ListOptions) ([]Label, error)
	ListHomes(ctx context.Context, opts ListOptions) ([]Home, error)
	ListPolicies(ctx context.Context, opts ListOptions) ([]Policy, error)
}

// Writer inserts rows. Create methods assign a new ID when the given one is
// uuid.Nil. Relationships are passed by ID through the entity's Ref fields.
type Writer interface {
	CreateHome(ctx context.Context, h *Home) error
	CreateLabel(ctx context.Context, l *Label) error
	CreateLocation(ctx context.Context, l *Location) error
	CreateItem(ctx context.Context, it *Item) error
	CreatePolicy(ctx context.Context, p *Policy) error

	// AttachPhoto adds a photo to an item, or sets a location's photo.
	AttachPhoto(ctx context.Context, kind Kind, ownerID uuid.UUID, p Photo) error

	// FindByName returns the first entity of kind with the given name.
	FindByName(ctx context.Context, kind Kind, name string) (uuid.UUID, bool, error)
}

// Store is the full collaborator interface consumed by the pipeline.
type Store interface {
	Reader
	Writer
}

// Snapshotter is implemented by persistent stores that can copy their raw
// database into a single file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}
