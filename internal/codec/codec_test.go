package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

func readAll(t *testing.T, data string, table Table) []Record {
	t.Helper()
	r, err := NewReader(strings.NewReader(data), table, int64(len(data)))
	require.NoError(t, err)

	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
}

func TestTableHeader(t *testing.T) {
	h := Items.Header(3)
	require.Len(t, h, len(Items.Columns)+3)
	assert.Equal(t, []string{"PhotoFilename", "PhotoFilename2", "PhotoFilename3"}, h[len(h)-3:])

	assert.Equal(t, Labels.Columns, Labels.Header(4))
	assert.Equal(t, "PhotoFilename", Locations.Header(0)[len(Locations.Columns)])
}

func TestItemRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	loc := &inventory.Ref{ID: uuid.New(), Name: "Garage, Shelf 2"}
	item := inventory.Item{
		ID:               uuid.New(),
		Title:            `Drill "Pro"`,
		Description:      "cordless\nwith case",
		QuantityInt:      2,
		Price:            decimal.RequireFromString("129.99"),
		Insured:          true,
		ReplacementCost:  decimal.NewNullDecimal(decimal.RequireFromString("0.1")),
		CreatedAt:        created,
		Attachments:      []inventory.Attachment{{URL: "file:///r.pdf", OriginalName: "receipt.pdf"}},
		IsFragile:        true,
		MovingPriority:   3,
		Location:         loc,
		Home:             &inventory.Ref{ID: uuid.New(), Name: "Cabin"},
		Labels:           []inventory.Ref{{Name: "Tools"}, {Name: "Power"}},
		DimensionUnit:    "cm",
		DepreciationRate: decimal.NullDecimal{},
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Items, 2)
	require.NoError(t, err)
	require.NoError(t, w.Write(EncodeItem(item, []string{"item-a.jpg", "item-a-1.jpg"})))
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, w.Rows())

	recs := readAll(t, buf.String(), Items)
	require.Len(t, recs, 1)

	row, errs := DecodeItem(recs[0])
	assert.Empty(t, errs)
	got := row.Item
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, item.Description, got.Description)
	assert.True(t, item.Price.Equal(got.Price))
	assert.True(t, got.ReplacementCost.Valid)
	assert.Equal(t, "0.1", got.ReplacementCost.Decimal.String())
	assert.False(t, got.DepreciationRate.Valid)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, item.Attachments, got.Attachments)
	assert.Equal(t, 2, got.QuantityInt)
	assert.Equal(t, 3, got.MovingPriority)
	assert.True(t, got.Insured)
	assert.True(t, got.IsFragile)

	assert.Equal(t, "Garage, Shelf 2", row.LocationName)
	assert.Equal(t, "Cabin", row.HomeName)
	assert.Equal(t, []string{"Tools", "Power"}, row.LabelNames)
	assert.Equal(t, item.ID.String(), row.ItemID)
	assert.Equal(t, loc.ID.String(), row.LocationID)
	assert.Equal(t, []string{"item-a.jpg", "item-a-1.jpg"}, row.PhotoFilenames)
}

func TestReader_SubsetHeader(t *testing.T) {
	data := "title,Price,Label\nLamp,12.50,Living\n"
	recs := readAll(t, data, Items)
	require.Len(t, recs, 1)

	row, errs := DecodeItem(recs[0])
	assert.Empty(t, errs)
	assert.Equal(t, "Lamp", row.Item.Title)
	assert.Equal(t, "12.5", row.Item.Price.String())
	assert.Equal(t, []string{"Living"}, row.LabelNames)
	assert.Equal(t, 1, row.Item.QuantityInt)
	assert.Empty(t, row.PhotoFilenames)
}

func TestReader_PhotoColumnsInSuffixOrder(t *testing.T) {
	data := "Title,PhotoFilename3,PhotoFilename,PhotoFilename2\nChair,c.jpg,a.jpg,b.jpg\nStool,,a.jpg,\n"
	recs := readAll(t, data, Items)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, recs[0].PhotoFilenames())
	assert.Equal(t, []string{"a.jpg"}, recs[1].PhotoFilenames())
	assert.Equal(t, 2, recs[0].Line())
}

func TestReader_InvalidHeader(t *testing.T) {
	_, err := NewReader(strings.NewReader("foo,bar\n1,2\n"), Labels, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = NewReader(strings.NewReader(""), Labels, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReader_BOMAndShortRows(t *testing.T) {
	data := "\xEF\xBB\xBFName,Description,ColorHex,Emoji\nBoxes\n"
	recs := readAll(t, data, Labels)
	require.Len(t, recs, 1)

	row, errs := DecodeLabel(recs[0])
	assert.Empty(t, errs)
	assert.Equal(t, "Boxes", row.Label.Name)
	assert.Empty(t, row.Label.Emoji)
}

func TestDecode_MalformedFieldsFallBackToZero(t *testing.T) {
	data := "Title,Price,ReplacementCost,CreatedAt,Insured,AttachmentsJSON\nVase,12.3.4,abc,someday,maybe,[oops\n"
	recs := readAll(t, data, Items)
	require.Len(t, recs, 1)

	row, errs := DecodeItem(recs[0])
	assert.Equal(t, "Vase", row.Item.Title)
	assert.True(t, row.Item.Price.IsZero())
	assert.False(t, row.Item.ReplacementCost.Valid)
	assert.True(t, row.Item.CreatedAt.IsZero())
	assert.False(t, row.Item.Insured)
	assert.Nil(t, row.Item.Attachments)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
		assert.Equal(t, "inventory.csv", e.File)
		assert.Equal(t, 2, e.Line)
	}
	assert.ElementsMatch(t, []string{"Price", "ReplacementCost", "CreatedAt", "Insured", "AttachmentsJSON"}, fields)
}

func TestLocationRoundTrip(t *testing.T) {
	home := &inventory.Ref{ID: uuid.New(), Name: "Main"}
	loc := inventory.Location{ID: uuid.New(), Name: "Attic", Description: "dusty", Home: home}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Locations, 0)
	require.NoError(t, err)
	require.NoError(t, w.Write(EncodeLocation(loc, "location-x.png")))
	require.NoError(t, w.Write(EncodeLocation(inventory.Location{Name: "Shed"}, "")))
	require.NoError(t, w.Flush())

	recs := readAll(t, buf.String(), Locations)
	require.Len(t, recs, 2)

	row, _ := DecodeLocation(recs[0])
	assert.Equal(t, "Attic", row.Location.Name)
	assert.Equal(t, "Main", row.HomeName)
	assert.Equal(t, home.ID.String(), row.HomeID)
	assert.Equal(t, "location-x.png", row.PhotoFilename)

	row, _ = DecodeLocation(recs[1])
	assert.Empty(t, row.HomeName)
	assert.Empty(t, row.PhotoFilename)
}

func TestHomeAndPolicyRoundTrip(t *testing.T) {
	h := inventory.Home{
		ID: uuid.New(), Name: "Main", City: "Oslo",
		PurchasePrice: decimal.RequireFromString("450000.00"),
		PurchaseDate:  time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		IsPrimary:     true,
	}
	p := inventory.Policy{
		ID: uuid.New(), ProviderName: "Acme", PolicyNumber: "P-1",
		DeductibleAmount: decimal.RequireFromString("500"),
		HomeIDs:          []uuid.UUID{h.ID, uuid.New()},
	}

	var hb, pb bytes.Buffer
	hw, err := NewWriter(&hb, Homes, 0)
	require.NoError(t, err)
	require.NoError(t, hw.Write(EncodeHome(h)))
	require.NoError(t, hw.Flush())
	pw, err := NewWriter(&pb, Policies, 0)
	require.NoError(t, err)
	require.NoError(t, pw.Write(EncodePolicy(p)))
	require.NoError(t, pw.Flush())

	hrec := readAll(t, hb.String(), Homes)
	require.Len(t, hrec, 1)
	hrow, errs := DecodeHome(hrec[0])
	assert.Empty(t, errs)
	assert.Equal(t, h.ID.String(), hrow.ArchiveID)
	assert.Equal(t, "450000", hrow.Home.PurchasePrice.String())
	assert.True(t, hrow.Home.IsPrimary)
	assert.True(t, h.PurchaseDate.Equal(hrow.Home.PurchaseDate))

	prec := readAll(t, pb.String(), Policies)
	require.Len(t, prec, 1)
	prow, errs := DecodePolicy(prec[0])
	assert.Empty(t, errs)
	assert.Equal(t, "Acme", prow.Policy.ProviderName)
	assert.True(t, prow.Policy.DeductibleAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, []string{h.ID.String(), p.HomeIDs[1].String()}, prow.HomeArchiveIDs)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"12.34", "12.34", false},
		{"$1,234.50", "1234.5", false},
		{"(42.00)", "-42", false},
		{`="0.10"`, "0.1", false},
		{"0.1", "0.1", false},
		{"12abc", "0", true},
		{"1.2.3", "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-15", "1/15/2024", "2024-01-15T00:00:00Z", "2024-01-15T01:00:00+01:00"} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseTime("not a date")
	assert.Error(t, err)

	assert.Empty(t, FormatTime(time.Time{}))
	assert.Equal(t, "2024-01-15T00:00:00Z", FormatTime(want))
}

func TestFormatTime_KeepsSubSecondPrecision(t *testing.T) {
	created := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)

	s := FormatTime(created)
	assert.Equal(t, "2024-03-09T14:05:07.123456789Z", s)

	got, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, created.Equal(got), "got %s", got)
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "Yes": true, "1": true, "": false, "n": false, "FALSE": false} {
		got, err := ParseBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBool("perhaps")
	assert.Error(t, err)
}

func TestAttachments(t *testing.T) {
	assert.Empty(t, EncodeAttachments(nil))

	at := time.Date(2023, 5, 4, 3, 2, 1, 0, time.UTC)
	atts := []inventory.Attachment{
		{URL: "https://x/a", OriginalName: "a, b.pdf", CreatedAt: &at},
		{URL: "https://x/c", OriginalName: "c.png"},
	}
	s := EncodeAttachments(atts)
	assert.Contains(t, s, `"originalName":"a, b.pdf"`)

	got, err := DecodeAttachments(s)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, at.Equal(*got[0].CreatedAt))
	assert.Nil(t, got[1].CreatedAt)
}

func TestSpool(t *testing.T) {
	var spool bytes.Buffer
	sw := NewSpoolWriter(&spool, Items)
	require.NoError(t, sw.Write(EncodeItem(inventory.Item{Title: "one"}, nil)))
	require.NoError(t, sw.Write(EncodeItem(inventory.Item{Title: "three"}, []string{"a.jpg", "b.jpg", "c.jpg"})))
	require.NoError(t, sw.Write(EncodeItem(inventory.Item{Title: "two, with comma"}, []string{"d.jpg", "e.jpg"})))
	require.NoError(t, sw.Flush())
	assert.Equal(t, 3, sw.Rows())
	assert.Equal(t, 3, sw.MaxPhotos())

	var out bytes.Buffer
	w, err := NewWriter(&out, Items, sw.MaxPhotos())
	require.NoError(t, err)
	require.NoError(t, CopySpool(w, &spool))
	require.NoError(t, w.Flush())
	assert.Equal(t, 3, w.Rows())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "PhotoFilename,PhotoFilename2,PhotoFilename3"))

	recs := readAll(t, out.String(), Items)
	require.Len(t, recs, 3)
	assert.Empty(t, recs[0].PhotoFilenames())
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, recs[1].PhotoFilenames())
	assert.Equal(t, "two, with comma", recs[2].Get("Title"))
	assert.Equal(t, []string{"d.jpg", "e.jpg"}, recs[2].PhotoFilenames())
}

func TestSpool_SinglePhotoTable(t *testing.T) {
	var spool bytes.Buffer
	sw := NewSpoolWriter(&spool, Locations)
	require.NoError(t, sw.Write(Row{Values: map[string]string{"Name": "Attic"}, Photos: []string{"a.jpg", "b.jpg"}}))
	require.NoError(t, sw.Flush())
	assert.Equal(t, 1, sw.MaxPhotos())
}
