package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/inventory-archive/internal/config"
	"github.com/movingbox/inventory-archive/internal/core"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/store/sqlstore"
)

// testEnv points the configuration at a scratch SQLite file.
func testEnv(t *testing.T, dbPath string) {
	t.Helper()
	t.Setenv(config.FileEnv, "")
	t.Setenv("MOVINGBOX_STORE_DRIVER", "sqlite")
	t.Setenv("MOVINGBOX_DB_PATH", dbPath)
	t.Setenv("MOVINGBOX_WORK_DIR", t.TempDir())
	t.Setenv("MOVINGBOX_BATCH_SIZE", "10")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	home := &inventory.Home{Name: "Main", City: "Leeds"}
	require.NoError(t, s.CreateHome(ctx, home))
	label := &inventory.Label{Name: "Tools"}
	require.NoError(t, s.CreateLabel(ctx, label))
	loc := &inventory.Location{Name: "Garage", Home: &inventory.Ref{ID: home.ID}}
	require.NoError(t, s.CreateLocation(ctx, loc))
	item := &inventory.Item{
		Title:       "Drill",
		QuantityInt: 1,
		Price:       decimal.RequireFromString("89.99"),
		Location:    &inventory.Ref{ID: loc.ID},
		Home:        &inventory.Ref{ID: home.ID},
		Labels:      []inventory.Ref{{ID: label.ID}},
		Photos:      []inventory.Photo{{SortOrder: 0, Ext: "png", Data: []byte("png-bytes")}},
	}
	require.NoError(t, s.CreateItem(ctx, item))
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src)
	testEnv(t, src)

	outDir := filepath.Join(dir, "out")
	out, err := run(t, "export", "-q", "-o", outDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Export complete")

	matches, err := filepath.Glob(filepath.Join(outDir, "movingbox-export-*.zip"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	dst := filepath.Join(dir, "dst.db")
	t.Setenv("MOVINGBOX_DB_PATH", dst)
	out, err = run(t, "import", "-q", matches[0])
	require.NoError(t, err, out)
	assert.Contains(t, out, "Import complete")

	ctx := context.Background()
	s, err := sqlstore.OpenSQLite(ctx, dst)
	require.NoError(t, err)
	defer s.Close()

	items, err := s.ListItems(ctx, inventory.ListOptions{WithPhotos: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Drill", items[0].Title)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("89.99")))
	require.Len(t, items[0].Photos, 1)
	assert.Equal(t, []byte("png-bytes"), items[0].Photos[0].Data)
	require.NotNil(t, items[0].Location)
	assert.Equal(t, "Garage", items[0].Location.Name)
}

func TestExport_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	testEnv(t, filepath.Join(dir, "empty.db"))

	_, err := run(t, "export", "-q", "-o", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNothingToExport)
}

func TestImport_RequiresArchive(t *testing.T) {
	testEnv(t, filepath.Join(t.TempDir(), "db.db"))

	_, err := run(t, "import")
	assert.Error(t, err)
}

func TestBackupDB(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src)
	testEnv(t, src)

	dest := filepath.Join(dir, "backup", "copy.db")
	out, err := run(t, "backup-db", dest)
	require.NoError(t, err, out)
	assert.Contains(t, out, dest)

	ctx := context.Background()
	s, err := sqlstore.OpenSQLite(ctx, dest)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx, inventory.KindItem, inventory.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBackupDB_MemoryStore(t *testing.T) {
	testEnv(t, "")
	t.Setenv("MOVINGBOX_STORE_DRIVER", "memory")

	_, err := run(t, "backup-db", filepath.Join(t.TempDir(), "copy.db"))
	assert.ErrorIs(t, err, core.ErrContainerNotConfigured)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "movingbox ")
}

func TestInvalidConfig(t *testing.T) {
	testEnv(t, "x.db")
	t.Setenv("MOVINGBOX_STORE_DRIVER", "mysql")

	_, err := run(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOVINGBOX_STORE_DRIVER")
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		name    string
		only    []string
		want    sections
		wantErr bool
	}{
		{"empty selects all", nil, sections{true, true, true, true, true}, false},
		{"singular and plural", []string{"item", "Locations"}, sections{items: true, locations: true}, false},
		{"homes and policies", []string{" homes ", "policy"}, sections{homes: true, policies: true}, false},
		{"unknown", []string{"photos"}, sections{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSections(tt.only)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHomeIDs(t *testing.T) {
	id := uuid.New()

	got, err := parseHomeIDs([]string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, got)

	got, err = parseHomeIDs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseHomeIDs([]string{"not-a-uuid"})
	assert.Error(t, err)
}

func TestSettingsFrom(t *testing.T) {
	cfg := &config.Config{
		Export: config.ExportConfig{OutputDir: "/out", AppName: "boxes", BatchSize: 7, WorkDir: "/work"},
		Import: config.ImportConfig{MaxFileSize: 99, AllowedExtensions: []string{"csv"}, StrictFiles: true},
	}
	s := settingsFrom(cfg)
	assert.Equal(t, "boxes", s.AppName)
	assert.Equal(t, "/out", s.OutputDir)
	assert.Equal(t, "/work", s.WorkDir)
	assert.Equal(t, 7, s.BatchSize)
	assert.Equal(t, int64(99), s.Guard.MaxFileSize)
	assert.Equal(t, []string{"csv"}, s.Guard.AllowedExtensions)
	assert.True(t, s.StrictFiles)
}
