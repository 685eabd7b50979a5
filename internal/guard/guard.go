// Package guard validates files taken out of an untrusted archive before
// anything is written to disk.
//
// Every archive entry name goes through [Guard.SanitizePath]; names that
// could escape the extraction root are rejected rather than repaired. Size
// and extension checks are per-file: the caller decides whether a rejected
// file is skipped or aborts the import.
package guard

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrUnsafePath      = errors.New("unsafe path")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")
)

// DefaultMaxFileSize is the per-file limit used when a Policy leaves it unset.
const DefaultMaxFileSize int64 = 50 << 20

// DefaultAllowedExtensions are the photo and CSV types accepted on import.
var DefaultAllowedExtensions = []string{"csv", "jpg", "jpeg", "png", "heic", "heif", "gif", "webp"}

// Policy configures a Guard.
type Policy struct {
	MaxFileSize       int64    // bytes; <= 0 means DefaultMaxFileSize
	AllowedExtensions []string // without dots, case-insensitive; empty means the defaults
}

// Guard applies a Policy.
type Guard struct {
	maxSize int64
	allowed map[string]struct{}
}

// New returns a Guard for p.
func New(p Policy) *Guard {
	g := &Guard{maxSize: p.MaxFileSize, allowed: map[string]struct{}{}}
	if g.maxSize <= 0 {
		g.maxSize = DefaultMaxFileSize
	}
	exts := p.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultAllowedExtensions
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			g.allowed[e] = struct{}{}
		}
	}
	return g
}

// MaxFileSize returns the effective size limit in bytes.
func (g *Guard) MaxFileSize() int64 { return g.maxSize }

// SanitizePath returns raw as a clean, slash-separated relative path. Names
// that are absolute, contain a ".." segment, a NUL byte, or clean to nothing
// are rejected with ErrUnsafePath.
func (g *Guard) SanitizePath(raw string) (string, error) {
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}

	p := strings.ReplaceAll(raw, `\`, "/")
	if strings.HasPrefix(p, "/") || filepath.VolumeName(p) != "" || hasDriveLetter(p) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, raw)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the extraction root", ErrUnsafePath, raw)
		}
	}

	p = path.Clean(p)
	if p == "." || p == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}
	return p, nil
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		(p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}

// Resolve sanitizes raw and joins it under root. The result is guaranteed to
// stay inside root.
func (g *Guard) Resolve(root, raw string) (string, error) {
	rel, err := g.SanitizePath(raw)
	if err != nil {
		return "", err
	}
	root = filepath.Clean(root)
	full := filepath.Join(root, filepath.FromSlash(rel))

	within, err := filepath.Rel(root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside %s", ErrUnsafePath, raw, root)
	}
	return full, nil
}

// CheckSize rejects files larger than the policy allows.
func (g *Guard) CheckSize(size int64) error {
	if size > g.maxSize {
		return fmt.Errorf("%w: %s exceeds the %s limit",
			ErrFileTooLarge, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(g.maxSize)))
	}
	return nil
}

// CheckType rejects names whose extension is not allowed.
func (g *Guard) CheckType(name string) error {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return fmt.Errorf("%w: %q has no extension", ErrInvalidFileType, name)
	}
	if _, ok := g.allowed[ext]; !ok {
		return fmt.Errorf("%w: .%s is not allowed", ErrInvalidFileType, ext)
	}
	return nil
}

// Check runs every per-file check for an archive entry of the given size.
func (g *Guard) Check(raw string, size int64) (string, error) {
	rel, err := g.SanitizePath(raw)
	if err != nil {
		return "", err
	}
	if err := g.CheckType(rel); err != nil {
		return "", err
	}
	if err := g.CheckSize(size); err != nil {
		return "", err
	}
	return rel, nil
}
