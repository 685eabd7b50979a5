package codec

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Writer encodes rows of one table. The header is written on construction.
type Writer struct {
	csv       *csv.Writer
	table     Table
	header    []string
	photoCols int
	rows      int
}

// NewWriter writes table's header with photoCols photo columns to w.
func NewWriter(w io.Writer, table Table, photoCols int) (*Writer, error) {
	header := table.Header(photoCols)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write %s header: %w", table.FileName, err)
	}
	return &Writer{
		csv:       cw,
		table:     table,
		header:    header,
		photoCols: len(header) - len(table.Columns),
	}, nil
}

// Write encodes one row. Missing values are empty; photo names beyond the
// header's photo columns are dropped.
func (w *Writer) Write(r Row) error {
	values := make([]string, len(w.table.Columns))
	for i, col := range w.table.Columns {
		values[i] = r.Values[col]
	}
	return w.writeRecord(values, r.Photos)
}

func (w *Writer) writeRecord(values, photos []string) error {
	record := make([]string, len(w.header))
	copy(record, values)
	copy(record[len(values):], photos[:min(len(photos), w.photoCols)])
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("write %s row %d: %w", w.table.FileName, w.rows+1, err)
	}
	w.rows++
	return nil
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Rows returns the number of rows written, not counting the header.
func (w *Writer) Rows() int { return w.rows }
