package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stores returns the SQLite store and, when MOVINGBOX_TEST_PG_DSN is set,
// a PostgreSQL store on a fresh schema.
func stores(t *testing.T) map[string]*Store {
	t.Helper()
	out := map[string]*Store{DriverSQLite: openSQLite(t)}

	dsn := os.Getenv("MOVINGBOX_TEST_PG_DSN")
	if dsn == "" {
		return out
	}
	ctx := context.Background()
	pg, err := OpenPostgres(ctx, Options{DSN: dsn})
	require.NoError(t, err)
	for _, table := range []string{"photos", "policy_homes", "policies", "item_labels", "items", "locations", "labels", "homes"} {
		_, err := pg.DB().ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	t.Cleanup(func() { pg.Close() })
	out[DriverPostgres] = pg
	return out
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	assert.ErrorContains(t, err, "unknown store driver")

	_, err = Open(context.Background(), Options{Driver: DriverSQLite})
	assert.Error(t, err, "path is required")
}

func TestStore_CreateAndList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bought := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

			home := &inventory.Home{Name: "Main", City: "Leeds", PurchaseDate: bought,
				PurchasePrice: decimal.RequireFromString("250000.50"), IsPrimary: true}
			require.NoError(t, s.CreateHome(ctx, home))
			require.NotEqual(t, uuid.Nil, home.ID)

			tools := &inventory.Label{Name: "Tools", ColorHex: "#f00", Emoji: "🔧"}
			fragile := &inventory.Label{Name: "Fragile"}
			require.NoError(t, s.CreateLabel(ctx, tools))
			require.NoError(t, s.CreateLabel(ctx, fragile))

			loc := &inventory.Location{Name: "Garage", Home: &inventory.Ref{ID: home.ID}}
			require.NoError(t, s.CreateLocation(ctx, loc))
			require.NoError(t, s.AttachPhoto(ctx, inventory.KindLocation, loc.ID, inventory.Photo{Ext: "jpg", Data: []byte("old")}))
			require.NoError(t, s.AttachPhoto(ctx, inventory.KindLocation, loc.ID, inventory.Photo{Ext: "png", Data: []byte("new")}))

			it := &inventory.Item{
				Title:           "Drill",
				QuantityInt:     2,
				Price:           decimal.RequireFromString("89.99"),
				ReplacementCost: decimal.NewNullDecimal(decimal.RequireFromString("120")),
				Insured:         true,
				PurchaseDate:    bought,
				Attachments:     []inventory.Attachment{{URL: "https://example.com/r.pdf", OriginalName: "r.pdf"}},
				Location:        &inventory.Ref{ID: loc.ID},
				Labels:          []inventory.Ref{{ID: fragile.ID}, {ID: tools.ID}},
				Photos:          []inventory.Photo{{SortOrder: 1, Ext: "png", Data: []byte("back")}},
				MovingPriority:  3,
			}
			require.NoError(t, s.CreateItem(ctx, it))
			require.NoError(t, s.AttachPhoto(ctx, inventory.KindItem, it.ID, inventory.Photo{SortOrder: 0, Data: []byte("front")}))

			items, err := s.ListItems(ctx, inventory.ListOptions{WithPhotos: true})
			require.NoError(t, err)
			require.Len(t, items, 1)
			got := items[0]
			assert.Equal(t, it.ID, got.ID)
			assert.Equal(t, "Drill", got.Title)
			assert.True(t, got.Price.Equal(it.Price))
			assert.True(t, got.ReplacementCost.Valid)
			assert.False(t, got.DepreciationRate.Valid)
			assert.True(t, got.Insured)
			assert.True(t, got.PurchaseDate.Equal(bought))
			assert.True(t, got.CreatedAt.IsZero())
			assert.Equal(t, it.Attachments, got.Attachments)
			assert.Equal(t, 3, got.MovingPriority)
			assert.Equal(t, "Garage", got.Location.Name)
			assert.Equal(t, uuid.NullUUID{UUID: home.ID, Valid: true}, got.LocationHomeID)
			assert.Nil(t, got.Home)
			assert.Equal(t, []inventory.Ref{{ID: fragile.ID, Name: "Fragile"}, {ID: tools.ID, Name: "Tools"}}, got.Labels)
			require.Len(t, got.Photos, 2)
			assert.Equal(t, []byte("front"), got.Photos[0].Data)
			assert.Equal(t, "png", got.Photos[1].Ext)

			items, err = s.ListItems(ctx, inventory.ListOptions{})
			require.NoError(t, err)
			assert.Nil(t, items[0].Photos[0].Data)

			locs, err := s.ListLocations(ctx, inventory.ListOptions{WithPhotos: true})
			require.NoError(t, err)
			require.Len(t, locs, 1)
			assert.Equal(t, "Main", locs[0].Home.Name)
			require.NotNil(t, locs[0].Photo)
			assert.Equal(t, []byte("new"), locs[0].Photo.Data)

			homes, err := s.ListHomes(ctx, inventory.ListOptions{})
			require.NoError(t, err)
			require.Len(t, homes, 1)
			assert.True(t, homes[0].PurchasePrice.Equal(home.PurchasePrice))
			assert.True(t, homes[0].IsPrimary)
			assert.True(t, homes[0].PurchaseDate.Equal(bought))

			labels, err := s.ListLabels(ctx, inventory.ListOptions{})
			require.NoError(t, err)
			require.Len(t, labels, 2)
			assert.Equal(t, "🔧", labels[0].Emoji)
		})
	}
}

func TestStore_MissingReferences(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.CreateItem(ctx, &inventory.Item{Location: &inventory.Ref{ID: uuid.New()}})
			assert.ErrorIs(t, err, inventory.ErrNotFound)
			err = s.CreatePolicy(ctx, &inventory.Policy{HomeIDs: []uuid.UUID{uuid.New()}})
			assert.ErrorIs(t, err, inventory.ErrNotFound)
			err = s.AttachPhoto(ctx, inventory.KindLocation, uuid.New(), inventory.Photo{})
			assert.ErrorIs(t, err, inventory.ErrNotFound)

			n, err := s.Count(ctx, inventory.KindPolicy, inventory.AllHomes())
			require.NoError(t, err)
			assert.Zero(t, n, "failed creates are rolled back")
		})
	}
}

func TestStore_PagingAndScope(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := &inventory.Home{Name: "A"}
			b := &inventory.Home{Name: "B"}
			require.NoError(t, s.CreateHome(ctx, a))
			require.NoError(t, s.CreateHome(ctx, b))
			locA := &inventory.Location{Name: "Attic", Home: &inventory.Ref{ID: a.ID}}
			locB := &inventory.Location{Name: "Basement", Home: &inventory.Ref{ID: b.ID}}
			require.NoError(t, s.CreateLocation(ctx, locA))
			require.NoError(t, s.CreateLocation(ctx, locB))
			for i := range 5 {
				loc := locA
				if i%2 == 1 {
					loc = locB
				}
				require.NoError(t, s.CreateItem(ctx, &inventory.Item{Title: string(rune('a' + i)), Location: &inventory.Ref{ID: loc.ID}}))
			}
			require.NoError(t, s.CreateItem(ctx, &inventory.Item{Title: "direct", Home: &inventory.Ref{ID: a.ID}, Location: &inventory.Ref{ID: locB.ID}}))
			require.NoError(t, s.CreatePolicy(ctx, &inventory.Policy{PolicyNumber: "GLOBAL"}))
			require.NoError(t, s.CreatePolicy(ctx, &inventory.Policy{PolicyNumber: "B", HomeIDs: []uuid.UUID{b.ID}}))
			require.NoError(t, s.CreatePolicy(ctx, &inventory.Policy{PolicyNumber: "AB", HomeIDs: []uuid.UUID{a.ID, b.ID}}))

			all, err := s.ListItems(ctx, inventory.ListOptions{})
			require.NoError(t, err)
			require.Len(t, all, 6)

			batch, err := s.ListItems(ctx, inventory.ListOptions{Offset: 2, Limit: 2})
			require.NoError(t, err)
			require.Len(t, batch, 2)
			assert.Equal(t, "c", batch[0].Title)
			assert.Equal(t, "d", batch[1].Title)

			onlyA := inventory.ScopeFor([]uuid.UUID{a.ID})
			counts := map[inventory.Kind]int{
				inventory.KindItem:     4, // a, c, e and direct
				inventory.KindLocation: 1,
				inventory.KindHome:     1,
				inventory.KindPolicy:   2, // GLOBAL and AB
				inventory.KindLabel:    0,
			}
			for kind, want := range counts {
				n, err := s.Count(ctx, kind, onlyA)
				require.NoError(t, err)
				assert.Equal(t, want, n, "kind %s", kind)
			}

			none, err := s.Count(ctx, inventory.KindItem, inventory.ScopeFor([]uuid.UUID{}))
			require.NoError(t, err)
			assert.Zero(t, none)

			policies, err := s.ListPolicies(ctx, inventory.ListOptions{Scope: onlyA})
			require.NoError(t, err)
			require.Len(t, policies, 2)
			assert.Empty(t, policies[0].HomeIDs)
			assert.Equal(t, []uuid.UUID{a.ID, b.ID}, policies[1].HomeIDs)
		})
	}
}

func TestStore_FindByName(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := &inventory.Location{Name: "Garage"}
			require.NoError(t, s.CreateLocation(ctx, first))
			require.NoError(t, s.CreateLocation(ctx, &inventory.Location{Name: "garage"}))

			id, ok, err := s.FindByName(ctx, inventory.KindLocation, "GARAGE")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, first.ID, id)

			_, ok, err = s.FindByName(ctx, inventory.KindHome, "Nowhere")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.CreateHome(ctx, &inventory.Home{Name: "Main"}))

	dest := filepath.Join(t.TempDir(), "backup", "copy.db")
	require.NoError(t, s.Snapshot(ctx, dest))
	assert.ErrorContains(t, s.Snapshot(ctx, dest), "destination exists")

	copied, err := OpenSQLite(ctx, dest)
	require.NoError(t, err)
	defer copied.Close()
	homes, err := copied.ListHomes(ctx, inventory.ListOptions{})
	require.NoError(t, err)
	require.Len(t, homes, 1)
	assert.Equal(t, "Main", homes[0].Name)
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM items WHERE a = ? AND b IN (?, ?)"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, "SELECT id FROM items WHERE a = $1 AND b IN ($2, $3)", postgresDialect.rebind(q))
}

func TestInList(t *testing.T) {
	in, args := inList(nil)
	assert.Equal(t, "(NULL)", in)
	assert.Empty(t, args)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	in, args = inList(ids)
	assert.Equal(t, "(?, ?)", in)
	assert.Equal(t, []any{ids[0].String(), ids[1].String()}, args)
}
