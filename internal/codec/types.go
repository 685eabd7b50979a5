package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

// ErrInvalidHeader is returned when a CSV header shares no column with its table.
var ErrInvalidHeader = errors.New("invalid csv header")

// PhotoMode describes how a table stores photo file names.
type PhotoMode int

const (
	NoPhotos PhotoMode = iota
	SinglePhoto
	MultiPhoto
)

// Table describes the CSV layout of one entity kind.
type Table struct {
	Kind     inventory.Kind
	FileName string   // archive entry name, e.g. "inventory.csv"
	Columns  []string // core columns, in output order
	Photos   PhotoMode
}

// Header returns the full header for an export with photoCols photo columns.
// Single-photo tables always carry exactly one photo column.
func (t Table) Header(photoCols int) []string {
	switch t.Photos {
	case NoPhotos:
		photoCols = 0
	case SinglePhoto:
		photoCols = 1
	}
	header := make([]string, 0, len(t.Columns)+photoCols)
	header = append(header, t.Columns...)
	for i := 0; i < photoCols; i++ {
		header = append(header, PhotoColumnName(i))
	}
	return header
}

// PhotoColumnName returns the header for the photo at index i:
// PhotoFilename, PhotoFilename2, PhotoFilename3, ...
func PhotoColumnName(i int) string {
	if i == 0 {
		return "PhotoFilename"
	}
	return fmt.Sprintf("PhotoFilename%d", i+1)
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Row is one encoded entity: core column values by name plus its photo file
// names in sort order.
type Row struct {
	Values map[string]string
	Photos []string
}

// FieldError reports a single malformed value that was replaced by its zero
// value during decoding.
type FieldError struct {
	File    string
	Line    int
	Field   string
	Value   string
	Message string
}

func (e FieldError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d: ", e.Line)
	} else if e.File != "" {
		b.WriteString(" ")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (%q)", e.Value)
	}
	return b.String()
}
