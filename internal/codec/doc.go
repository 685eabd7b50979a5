// Package codec reads and writes the CSV files stored in an inventory archive.
//
// # Tables
//
// Every entity kind has a [Table] naming its archive file and its full column
// list. Writers always emit the full header. Readers accept any subset of it,
// so archives produced by older versions (or edited by hand) still decode:
//
//	w, _ := codec.NewWriter(f, codec.Items, 2)
//	w.Write(codec.EncodeItem(item, []string{"item-<id>.jpg", "item-<id>-1.jpg"}))
//
// # Photo Columns
//
// Items carry a dynamic number of photo columns: PhotoFilename, PhotoFilename2,
// PhotoFilename3 and so on, as many as the largest photo count in the export.
// Readers discover however many are present and return the file names in
// column order; that order becomes the photo sort order on import.
//
// # Values
//
// Money and rate columns are exact decimal strings (shopspring/decimal), never
// binary floats. Dates are RFC 3339 in UTC. Attachments are a JSON array in a
// single AttachmentsJSON column. A malformed value only affects its own field:
// the decoder substitutes the zero value and reports a [FieldError].
package codec
