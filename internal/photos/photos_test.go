package photos

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
)

func TestNames(t *testing.T) {
	id := uuid.MustParse("6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11")

	assert.Equal(t, "item-6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11.jpg", ItemPhotoName(id, 0, "jpg"))
	assert.Equal(t, "item-6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11-1.png", ItemPhotoName(id, 1, "png"))
	assert.Equal(t, "location-6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11.jpg", LocationPhotoName(id, "jpg"))

	it := inventory.Item{ID: id, Photos: []inventory.Photo{{}, {Ext: "heic"}}}
	assert.Equal(t, []string{
		"item-6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11.jpg",
		"item-6f1c2f5e-2b9a-4d55-9d7e-3c2d1e0f9a11-1.heic",
	}, ItemPhotoNames(it))

	assert.Equal(t, "png", Ext("a.PNG"))
	assert.Equal(t, "jpg", Ext("noext"))
}

func TestMaterializer_WriteRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, "/work", guard.New(guard.Policy{}))

	require.NoError(t, m.Write("item-a.jpg", []byte("jpeg")))

	ok, err := afero.Exists(fs, filepath.Join("/work", Dir, "item-a.jpg"))
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := m.Read("item-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestMaterializer_Rejections(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, "/work", guard.New(guard.Policy{MaxFileSize: 4}))

	assert.ErrorIs(t, m.Write("../../../danger.png", []byte("x")), guard.ErrUnsafePath)
	ok, _ := afero.Exists(fs, "/danger.png")
	assert.False(t, ok)

	_, err := m.Read("missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Write("big.jpg", []byte("too large")))
	_, err = m.Read("big.jpg")
	assert.ErrorIs(t, err, guard.ErrFileTooLarge)

	require.NoError(t, afero.WriteFile(fs, "/work/photos/evil.exe", []byte("x"), 0o644))
	_, err = m.Read("evil.exe")
	assert.ErrorIs(t, err, guard.ErrInvalidFileType)
}
