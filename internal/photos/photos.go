// Package photos copies photo blobs between a store and the photos/
// directory of an archive working tree.
package photos

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
)

// Dir is the archive directory holding photo files.
const Dir = "photos"

// ErrNotFound is returned by Read when a referenced photo is not in the tree.
var ErrNotFound = errors.New("photo not found")

// ItemPhotoName returns the file name of an item's photo at index: the
// primary photo is item-<id>.<ext>, later ones item-<id>-<index>.<ext>.
func ItemPhotoName(id uuid.UUID, index int, ext string) string {
	if index == 0 {
		return fmt.Sprintf("item-%s.%s", id, ext)
	}
	return fmt.Sprintf("item-%s-%d.%s", id, index, ext)
}

// LocationPhotoName returns the file name of a location's photo.
func LocationPhotoName(id uuid.UUID, ext string) string {
	return fmt.Sprintf("location-%s.%s", id, ext)
}

// ItemPhotoNames names every photo of it in sort order.
func ItemPhotoNames(it inventory.Item) []string {
	names := make([]string, len(it.Photos))
	for i, p := range it.Photos {
		names[i] = ItemPhotoName(it.ID, i, p.Extension())
	}
	return names
}

// Ext returns the lowercase extension of name without the dot, or the
// default photo extension when name has none.
func Ext(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return inventory.DefaultPhotoExt
	}
	return ext
}

// Materializer reads and writes photo files under root/photos.
type Materializer struct {
	fs    afero.Fs
	dir   string
	guard *guard.Guard
}

// New returns a Materializer rooted at root. Every name passes through g.
func New(fsys afero.Fs, root string, g *guard.Guard) *Materializer {
	return &Materializer{fs: fsys, dir: filepath.Join(root, Dir), guard: g}
}

// Dir returns the directory photo files live in.
func (m *Materializer) Dir() string { return m.dir }

// Write stores data as name.
func (m *Materializer) Write(name string, data []byte) error {
	full, err := m.guard.Resolve(m.dir, name)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create photo dir: %w", err)
	}
	if err := afero.WriteFile(m.fs, full, data, 0o644); err != nil {
		return fmt.Errorf("write photo %s: %w", name, err)
	}
	return nil
}

// Read loads name after checking its path, type and size. A name that is
// not present yields ErrNotFound.
func (m *Materializer) Read(name string) ([]byte, error) {
	full, err := m.guard.Resolve(m.dir, name)
	if err != nil {
		return nil, err
	}
	if err := m.guard.CheckType(name); err != nil {
		return nil, err
	}

	info, err := m.fs.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("stat photo %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
	}
	if err := m.guard.CheckSize(info.Size()); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(m.fs, full)
	if err != nil {
		return nil, fmt.Errorf("read photo %s: %w", name, err)
	}
	return data, nil
}
