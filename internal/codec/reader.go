package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var photoColumnRegex = regexp.MustCompile(`^photofilename(\d*)$`)

// Reader decodes rows of one table from a CSV stream whose header may be any
// subset of the table's columns, in any order.
type Reader struct {
	csv      *csv.Reader
	in       *CountingReader
	table    Table
	index    HeaderIndex
	photoIdx []int
}

// NewReader reads the header from r. size is the stream length used for
// progress and may be 0. It returns ErrInvalidHeader when the header names
// none of table's columns.
func NewReader(r io.Reader, table Table, size int64) (*Reader, error) {
	in := wrapInput(r, size)
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file: %w", table.FileName, ErrInvalidHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", table.FileName, err)
	}

	idx := MakeHeaderIndex(header)
	known := 0
	for _, col := range table.Columns {
		if _, ok := idx[strings.ToLower(col)]; ok {
			known++
		}
	}

	photoIdx := photoColumns(header)
	if known == 0 && len(photoIdx) == 0 {
		return nil, fmt.Errorf("%s: %w", table.FileName, ErrInvalidHeader)
	}
	if table.Photos == NoPhotos {
		photoIdx = nil
	}

	return &Reader{csv: cr, in: in, table: table, index: idx, photoIdx: photoIdx}, nil
}

// photoColumns returns the positions of the PhotoFilename columns ordered
// by their numeric suffix (none counts as 1).
func photoColumns(header []string) []int {
	type col struct{ n, pos int }
	var cols []col
	seen := map[int]bool{}
	for i, h := range header {
		m := photoColumnRegex.FindStringSubmatch(strings.ToLower(CleanCell(h)))
		if m == nil {
			continue
		}
		n := 1
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		cols = append(cols, col{n, i})
	}
	slices.SortFunc(cols, func(a, b col) int { return a.n - b.n })

	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.pos
	}
	return out
}

// Table returns the table being read.
func (r *Reader) Table() Table { return r.table }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	fields, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%s: %w", r.table.FileName, err)
	}
	line, _ := r.csv.FieldPos(0)
	return Record{reader: r, fields: fields, line: line}, nil
}

// BytesRead returns the number of input bytes consumed.
func (r *Reader) BytesRead() int64 { return r.in.BytesRead() }

// Fraction returns the share of the input consumed when its size is known.
func (r *Reader) Fraction() float64 { return r.in.Fraction() }

// Record is one decoded CSV row.
type Record struct {
	reader *Reader
	fields []string
	line   int
}

// Get returns the cleaned value of column name, or "" when the column is
// absent from the header or the row is short.
func (rec Record) Get(name string) string {
	i, ok := rec.reader.index[strings.ToLower(name)]
	if !ok || i >= len(rec.fields) {
		return ""
	}
	return strings.TrimSpace(rec.fields[i])
}

// Has reports whether the header carries column name.
func (rec Record) Has(name string) bool {
	_, ok := rec.reader.index[strings.ToLower(name)]
	return ok
}

// Line returns the 1-based line number the record starts on.
func (rec Record) Line() int { return rec.line }

// File returns the archive file name of the record's table.
func (rec Record) File() string { return rec.reader.table.FileName }

// PhotoFilenames returns the non-empty photo file names in column order.
func (rec Record) PhotoFilenames() []string {
	var names []string
	for _, i := range rec.reader.photoIdx {
		if i >= len(rec.fields) {
			continue
		}
		if v := strings.TrimSpace(rec.fields[i]); v != "" {
			names = append(names, v)
		}
	}
	return names
}
