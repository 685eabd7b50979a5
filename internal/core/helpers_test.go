package core

import (
	"context"
	"io"
	"path"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/inventory-archive/internal/archive"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/store/memory"
)

func newTestService(t *testing.T, store inventory.Store, fs afero.Fs, mutate ...func(*Settings)) *Service {
	t.Helper()
	require.NoError(t, fs.MkdirAll("/work", 0o755))
	settings := Settings{
		OutputDir: "/out",
		WorkDir:   "/work",
		BatchSize: 10,
	}
	for _, m := range mutate {
		m(&settings)
	}
	return NewService(store, fs, settings, nil)
}

// collect drains op and returns every event it sent.
func collect[R any](op *Operation[R]) ([]Event, R, error) {
	var events []Event
	for ev := range op.Events() {
		events = append(events, ev)
	}
	res, err := op.Wait()
	return events, res, err
}

// readArchive returns the contents of every file entry in the zip at p.
func readArchive(t *testing.T, fs afero.Fs, p string) map[string][]byte {
	t.Helper()
	r, err := archive.Open(fs, p)
	require.NoError(t, err)
	defer r.Close()

	files := map[string][]byte{}
	for e := range r.Entries() {
		rc, err := e.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[e.Name()] = data
	}
	return files
}

// writeArchive zips files into a new archive on fs and returns its path.
func writeArchive(t *testing.T, fs afero.Fs, files map[string]string) string {
	t.Helper()
	root := "/src/" + uuid.NewString()
	for name, body := range files {
		full := path.Join(root, name)
		require.NoError(t, fs.MkdirAll(path.Dir(full), 0o755))
		require.NoError(t, afero.WriteFile(fs, full, []byte(body), 0o644))
	}

	require.NoError(t, fs.MkdirAll("/in", 0o755))
	p := "/in/" + uuid.NewString() + ".zip"
	f, err := fs.Create(p)
	require.NoError(t, err)
	require.NoError(t, archive.Pack(context.Background(), fs, root, f, nil))
	require.NoError(t, f.Close())
	return p
}

type catalog struct {
	home     *inventory.Home
	location *inventory.Location
	label    *inventory.Label
	item     *inventory.Item
	policy   *inventory.Policy
}

// seedCatalog stores one row of every kind. The item has two photos and
// the location one.
func seedCatalog(t *testing.T, s *memory.Store) catalog {
	t.Helper()
	ctx := context.Background()

	c := catalog{
		home:     &inventory.Home{Name: "Main", City: "Leeds", PurchasePrice: decimal.RequireFromString("250000.00")},
		label:    &inventory.Label{Name: "Tools", ColorHex: "#ff0000"},
		location: &inventory.Location{Name: "Garage"},
	}
	require.NoError(t, s.CreateHome(ctx, c.home))
	require.NoError(t, s.CreateLabel(ctx, c.label))
	c.location.Home = &inventory.Ref{ID: c.home.ID}
	require.NoError(t, s.CreateLocation(ctx, c.location))
	require.NoError(t, s.AttachPhoto(ctx, inventory.KindLocation, c.location.ID,
		inventory.Photo{Ext: "jpg", Data: []byte("garage")}))

	c.item = &inventory.Item{
		Title:       "Drill",
		QuantityInt: 1,
		Price:       decimal.RequireFromString("89.99"),
		Location:    &inventory.Ref{ID: c.location.ID},
		Labels:      []inventory.Ref{{ID: c.label.ID}},
	}
	require.NoError(t, s.CreateItem(ctx, c.item))
	require.NoError(t, s.AttachPhoto(ctx, inventory.KindItem, c.item.ID,
		inventory.Photo{SortOrder: 0, Ext: "png", Data: []byte("front")}))
	require.NoError(t, s.AttachPhoto(ctx, inventory.KindItem, c.item.ID,
		inventory.Photo{SortOrder: 1, Ext: "png", Data: []byte("back")}))

	c.policy = &inventory.Policy{
		ProviderName:     "Acme",
		PolicyNumber:     "P-1",
		DeductibleAmount: decimal.RequireFromString("500"),
		HomeIDs:          []uuid.UUID{c.home.ID},
	}
	require.NoError(t, s.CreatePolicy(ctx, c.policy))
	return c
}
