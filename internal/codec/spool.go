package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// SpoolWriter stages rows before the final photo column count is known.
// Spool records have no header: the table's columns come first, followed by
// every photo name of the row.
type SpoolWriter struct {
	csv       *csv.Writer
	table     Table
	rows      int
	maxPhotos int
}

// NewSpoolWriter returns a SpoolWriter for table on w.
func NewSpoolWriter(w io.Writer, table Table) *SpoolWriter {
	return &SpoolWriter{csv: csv.NewWriter(w), table: table}
}

// Write stages one row.
func (s *SpoolWriter) Write(r Row) error {
	photos := r.Photos
	switch s.table.Photos {
	case NoPhotos:
		photos = nil
	case SinglePhoto:
		photos = photos[:min(len(photos), 1)]
	}

	record := make([]string, len(s.table.Columns), len(s.table.Columns)+len(photos))
	for i, col := range s.table.Columns {
		record[i] = r.Values[col]
	}
	record = append(record, photos...)
	if err := s.csv.Write(record); err != nil {
		return fmt.Errorf("spool %s row %d: %w", s.table.FileName, s.rows+1, err)
	}
	s.rows++
	s.maxPhotos = max(s.maxPhotos, len(photos))
	return nil
}

// Flush writes buffered records.
func (s *SpoolWriter) Flush() error {
	s.csv.Flush()
	return s.csv.Error()
}

// Rows returns the number of staged rows.
func (s *SpoolWriter) Rows() int { return s.rows }

// MaxPhotos returns the largest photo count of any staged row.
func (s *SpoolWriter) MaxPhotos() int { return s.maxPhotos }

// CopySpool writes every record staged in src to dst, padding photo columns
// to dst's header.
func CopySpool(dst *Writer, src io.Reader) error {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	ncols := len(dst.table.Columns)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s spool: %w", dst.table.FileName, err)
		}
		if len(record) < ncols {
			return fmt.Errorf("read %s spool: short record of %d fields", dst.table.FileName, len(record))
		}
		if err := dst.writeRecord(record[:ncols], record[ncols:]); err != nil {
			return err
		}
	}
}
