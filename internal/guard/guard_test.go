package guard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	g := New(Policy{})

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"inventory.csv", "inventory.csv", false},
		{"photos/item-1.jpg", "photos/item-1.jpg", false},
		{"./photos//item-1.jpg", "photos/item-1.jpg", false},
		{`photos\item-1.jpg`, "photos/item-1.jpg", false},
		{"../../../danger.png", "", true},
		{"photos/../../danger.png", "", true},
		{"photos/..", "", true},
		{"/etc/passwd", "", true},
		{`C:\Windows\win.ini`, "", true},
		{"a\x00b.png", "", true},
		{"", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := g.SanitizePath(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	g := New(Policy{})
	root := filepath.Join("work", "extract")

	got, err := g.Resolve(root, "photos/safe.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "photos", "safe.png"), got)

	_, err = g.Resolve(root, "../../../danger.png")
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestCheckSize(t *testing.T) {
	g := New(Policy{MaxFileSize: 1024})
	assert.NoError(t, g.CheckSize(1024))

	err := g.CheckSize(2048)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "2.0 KiB")

	assert.Equal(t, DefaultMaxFileSize, New(Policy{}).MaxFileSize())
}

func TestCheckType(t *testing.T) {
	g := New(Policy{AllowedExtensions: []string{".PNG", "jpg"}})

	assert.NoError(t, g.CheckType("photos/a.png"))
	assert.NoError(t, g.CheckType("photos/a.JPG"))
	assert.ErrorIs(t, g.CheckType("photos/a.exe"), ErrInvalidFileType)
	assert.ErrorIs(t, g.CheckType("photos/noext"), ErrInvalidFileType)
	assert.ErrorIs(t, g.CheckType("inventory.csv"), ErrInvalidFileType)

	assert.NoError(t, New(Policy{}).CheckType("inventory.csv"))
}

func TestCheck(t *testing.T) {
	g := New(Policy{MaxFileSize: 10})

	rel, err := g.Check("photos/./a.png", 5)
	require.NoError(t, err)
	assert.Equal(t, "photos/a.png", rel)

	_, err = g.Check("../a.png", 5)
	assert.ErrorIs(t, err, ErrUnsafePath)
	_, err = g.Check("a.txt", 5)
	assert.ErrorIs(t, err, ErrInvalidFileType)
	_, err = g.Check("a.png", 50)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
