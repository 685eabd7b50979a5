// Package archive builds and opens the zip container of an export.
//
// Pack compresses a working tree into a single zip; Open validates that a
// file is a zip container before any entry is read and then exposes its
// entries for streaming. Entry names are returned exactly as stored: callers
// must sanitize them before touching the filesystem.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// ErrInvalidArchive is returned by Open for anything that is not a readable
// zip container.
var ErrInvalidArchive = errors.New("invalid zip file")

// Pack writes every regular file under root into a zip on w. Entry names are
// slash-separated paths relative to root, in lexical order. onEntry, if set,
// is called after each entry with the number written and the total.
func Pack(ctx context.Context, fsys afero.Fs, root string, w io.Writer, onEntry func(done, total int)) error {
	var files []string
	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)

	zw := zip.NewWriter(w)
	modified := time.Now()
	for i, p := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := addFile(fsys, zw, p, filepath.ToSlash(rel), modified); err != nil {
			return err
		}
		if onEntry != nil {
			onEntry(i+1, len(files))
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func addFile(fsys afero.Fs, zw *zip.Writer, p, name string, modified time.Time) error {
	f, err := fsys.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	return nil
}

// Reader is an opened archive.
type Reader struct {
	f  afero.File
	zr *zip.Reader
}

// Open opens the zip at path. It fails with ErrInvalidArchive when the file
// is not a zip container.
func Open(fsys afero.Fs, path string) (*Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArchive, filepath.Base(path), err)
	}
	return &Reader{f: f, zr: zr}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Len returns the number of file entries, directories excluded.
func (r *Reader) Len() int {
	n := 0
	for range r.Entries() {
		n++
	}
	return n
}

// Entries yields the file entries in stored order. Directory entries are
// skipped.
func (r *Reader) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, zf := range r.zr.File {
			if zf.FileInfo().IsDir() {
				continue
			}
			if !yield(Entry{zf: zf}) {
				return
			}
		}
	}
}

// Entry is one stored file.
type Entry struct {
	zf *zip.File
}

// Name returns the name as stored in the archive, unsanitized.
func (e Entry) Name() string { return e.zf.Name }

// Size returns the declared uncompressed size.
func (e Entry) Size() int64 { return int64(e.zf.UncompressedSize64) }

// Open returns a reader over the entry's uncompressed bytes.
func (e Entry) Open() (io.ReadCloser, error) {
	rc, err := e.zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", e.zf.Name, err)
	}
	return rc, nil
}
