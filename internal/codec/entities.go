package codec

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

// LabelSeparator joins several label names in one Label cell.
const LabelSeparator = "; "

// ItemRow is a decoded inventory.csv row. Relationships are names; the ID
// columns are kept for diagnostics only.
type ItemRow struct {
	Item           inventory.Item
	LocationName   string
	HomeName       string
	LabelNames     []string
	ItemID         string
	LocationID     string
	HomeID         string
	PhotoFilenames []string
}

// LocationRow is a decoded locations.csv row.
type LocationRow struct {
	Location      inventory.Location
	HomeName      string
	LocationID    string
	HomeID        string
	PhotoFilename string
}

// LabelRow is a decoded labels.csv row.
type LabelRow struct {
	Label inventory.Label
}

// HomeRow is a decoded home-details.csv row. ArchiveID is the HomeID column,
// which policies use to reference the home inside the same archive.
type HomeRow struct {
	Home      inventory.Home
	ArchiveID string
}

// PolicyRow is a decoded insurance-policy-details.csv row.
type PolicyRow struct {
	Policy         inventory.Policy
	PolicyID       string
	HomeArchiveIDs []string
}

func refName(r *inventory.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func refID(r *inventory.Ref) string {
	if r == nil || r.ID == uuid.Nil {
		return ""
	}
	return r.ID.String()
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// EncodeItem encodes it with the given photo file names.
func EncodeItem(it inventory.Item, photoNames []string) Row {
	labels := make([]string, 0, len(it.Labels))
	for _, l := range it.Labels {
		labels = append(labels, l.Name)
	}

	return Row{
		Values: map[string]string{
			"Title":                  it.Title,
			colDescription:           it.Description,
			colLocation:              refName(it.Location),
			colLabel:                 strings.Join(labels, LabelSeparator),
			colHome:                  refName(it.Home),
			"QuantityString":         it.QuantityString,
			"QuantityInt":            strconv.Itoa(it.QuantityInt),
			"Serial":                 it.Serial,
			"Model":                  it.Model,
			"Make":                   it.Make,
			"Price":                  FormatDecimal(it.Price),
			"Insured":                FormatBool(it.Insured),
			"AssetID":                it.AssetID,
			"Notes":                  it.Notes,
			"ReplacementCost":        FormatNullDecimal(it.ReplacementCost),
			"DepreciationRate":       FormatNullDecimal(it.DepreciationRate),
			"HasUsedAI":              FormatBool(it.HasUsedAI),
			"CreatedAt":              FormatTime(it.CreatedAt),
			"PurchaseDate":           FormatTime(it.PurchaseDate),
			"WarrantyExpirationDate": FormatTime(it.WarrantyExpirationDate),
			"PurchaseLocation":       it.PurchaseLocation,
			"Condition":              it.Condition,
			"HasWarranty":            FormatBool(it.HasWarranty),
			"AttachmentsJSON":        EncodeAttachments(it.Attachments),
			"DimensionLength":        it.DimensionLength,
			"DimensionWidth":         it.DimensionWidth,
			"DimensionHeight":        it.DimensionHeight,
			"DimensionUnit":          it.DimensionUnit,
			"WeightValue":            it.WeightValue,
			"WeightUnit":             it.WeightUnit,
			"Color":                  it.Color,
			"StorageRequirements":    it.StorageRequirements,
			"IsFragile":              FormatBool(it.IsFragile),
			"MovingPriority":         strconv.Itoa(it.MovingPriority),
			"RoomDestination":        it.RoomDestination,
			colItemID:                idString(it.ID),
			colLocationID:            refID(it.Location),
			colHomeID:                refID(it.Home),
		},
		Photos: photoNames,
	}
}

// DecodeItem decodes an inventory.csv record. Malformed values decode as
// their zero value and are reported as field errors.
func DecodeItem(rec Record) (ItemRow, []FieldError) {
	d := fieldDecoder{rec: rec}
	it := inventory.Item{
		Title:                  d.str("Title"),
		Description:            d.str(colDescription),
		QuantityString:         d.str("QuantityString"),
		QuantityInt:            d.num("QuantityInt"),
		Serial:                 d.str("Serial"),
		Model:                  d.str("Model"),
		Make:                   d.str("Make"),
		Price:                  d.dec("Price"),
		Insured:                d.flag("Insured"),
		AssetID:                d.str("AssetID"),
		Notes:                  d.str("Notes"),
		ReplacementCost:        d.nullDecimal("ReplacementCost"),
		DepreciationRate:       d.nullDecimal("DepreciationRate"),
		HasUsedAI:              d.flag("HasUsedAI"),
		CreatedAt:              d.date("CreatedAt"),
		PurchaseDate:           d.date("PurchaseDate"),
		WarrantyExpirationDate: d.date("WarrantyExpirationDate"),
		PurchaseLocation:       d.str("PurchaseLocation"),
		Condition:              d.str("Condition"),
		HasWarranty:            d.flag("HasWarranty"),
		Attachments:            d.attachments("AttachmentsJSON"),
		DimensionLength:        d.str("DimensionLength"),
		DimensionWidth:         d.str("DimensionWidth"),
		DimensionHeight:        d.str("DimensionHeight"),
		DimensionUnit:          d.str("DimensionUnit"),
		WeightValue:            d.str("WeightValue"),
		WeightUnit:             d.str("WeightUnit"),
		Color:                  d.str("Color"),
		StorageRequirements:    d.str("StorageRequirements"),
		IsFragile:              d.flag("IsFragile"),
		MovingPriority:         d.num("MovingPriority"),
		RoomDestination:        d.str("RoomDestination"),
	}
	if it.QuantityInt == 0 && !rec.Has("QuantityInt") {
		it.QuantityInt = 1
	}

	return ItemRow{
		Item:           it,
		LocationName:   d.str(colLocation),
		HomeName:       d.str(colHome),
		LabelNames:     SplitLabels(d.str(colLabel)),
		ItemID:         d.str(colItemID),
		LocationID:     d.str(colLocationID),
		HomeID:         d.str(colHomeID),
		PhotoFilenames: rec.PhotoFilenames(),
	}, d.errs
}

// SplitLabels splits a Label cell into trimmed, non-empty names.
func SplitLabels(s string) []string {
	return splitList(s)
}

func splitList(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// EncodeLocation encodes l; photoName is empty when the location has no photo.
func EncodeLocation(l inventory.Location, photoName string) Row {
	row := Row{Values: map[string]string{
		colName:        l.Name,
		colDescription: l.Description,
		colHome:        refName(l.Home),
		colLocationID:  idString(l.ID),
		colHomeID:      refID(l.Home),
	}}
	if photoName != "" {
		row.Photos = []string{photoName}
	}
	return row
}

// DecodeLocation decodes a locations.csv record.
func DecodeLocation(rec Record) (LocationRow, []FieldError) {
	d := fieldDecoder{rec: rec}
	row := LocationRow{
		Location: inventory.Location{
			Name:        d.str(colName),
			Description: d.str(colDescription),
		},
		HomeName:   d.str(colHome),
		LocationID: d.str(colLocationID),
		HomeID:     d.str(colHomeID),
	}
	if names := rec.PhotoFilenames(); len(names) > 0 {
		row.PhotoFilename = names[0]
	}
	return row, d.errs
}

// EncodeLabel encodes l.
func EncodeLabel(l inventory.Label) Row {
	return Row{Values: map[string]string{
		colName:        l.Name,
		colDescription: l.Description,
		"ColorHex":     l.ColorHex,
		"Emoji":        l.Emoji,
	}}
}

// DecodeLabel decodes a labels.csv record.
func DecodeLabel(rec Record) (LabelRow, []FieldError) {
	d := fieldDecoder{rec: rec}
	return LabelRow{Label: inventory.Label{
		Name:        d.str(colName),
		Description: d.str(colDescription),
		ColorHex:    d.str("ColorHex"),
		Emoji:       d.str("Emoji"),
	}}, d.errs
}

// EncodeHome encodes h.
func EncodeHome(h inventory.Home) Row {
	return Row{Values: map[string]string{
		colHomeID:       idString(h.ID),
		colName:         h.Name,
		"Address1":      h.Address1,
		"Address2":      h.Address2,
		"City":          h.City,
		"State":         h.State,
		"Zip":           h.Zip,
		"Country":       h.Country,
		"PurchaseDate":  FormatTime(h.PurchaseDate),
		"PurchasePrice": FormatDecimal(h.PurchasePrice),
		"IsPrimary":     FormatBool(h.IsPrimary),
		"ColorName":     h.ColorName,
	}}
}

// DecodeHome decodes a home-details.csv record.
func DecodeHome(rec Record) (HomeRow, []FieldError) {
	d := fieldDecoder{rec: rec}
	return HomeRow{
		Home: inventory.Home{
			Name:          d.str(colName),
			Address1:      d.str("Address1"),
			Address2:      d.str("Address2"),
			City:          d.str("City"),
			State:         d.str("State"),
			Zip:           d.str("Zip"),
			Country:       d.str("Country"),
			PurchaseDate:  d.date("PurchaseDate"),
			PurchasePrice: d.dec("PurchasePrice"),
			IsPrimary:     d.flag("IsPrimary"),
			ColorName:     d.str("ColorName"),
		},
		ArchiveID: d.str(colHomeID),
	}, d.errs
}

// EncodePolicy encodes p. Its homes are written as ";"-joined home ids that
// match the HomeID column of home-details.csv in the same archive.
func EncodePolicy(p inventory.Policy) Row {
	ids := make([]string, 0, len(p.HomeIDs))
	for _, id := range p.HomeIDs {
		ids = append(ids, id.String())
	}
	return Row{Values: map[string]string{
		colPolicyID:                      idString(p.ID),
		"ProviderName":                   p.ProviderName,
		"PolicyNumber":                   p.PolicyNumber,
		"DeductibleAmount":               FormatDecimal(p.DeductibleAmount),
		"DwellingCoverageAmount":         FormatDecimal(p.DwellingCoverageAmount),
		"PersonalPropertyCoverageAmount": FormatDecimal(p.PersonalPropertyCoverageAmount),
		"LossOfUseCoverageAmount":        FormatDecimal(p.LossOfUseCoverageAmount),
		"LiabilityCoverageAmount":        FormatDecimal(p.LiabilityCoverageAmount),
		"MedicalPaymentsCoverageAmount":  FormatDecimal(p.MedicalPaymentsCoverageAmount),
		"StartDate":                      FormatTime(p.StartDate),
		"EndDate":                        FormatTime(p.EndDate),
		colHomeID:                        strings.Join(ids, ";"),
	}}
}

// DecodePolicy decodes an insurance-policy-details.csv record.
func DecodePolicy(rec Record) (PolicyRow, []FieldError) {
	d := fieldDecoder{rec: rec}
	return PolicyRow{
		Policy: inventory.Policy{
			ProviderName:                   d.str("ProviderName"),
			PolicyNumber:                   d.str("PolicyNumber"),
			DeductibleAmount:               d.dec("DeductibleAmount"),
			DwellingCoverageAmount:         d.dec("DwellingCoverageAmount"),
			PersonalPropertyCoverageAmount: d.dec("PersonalPropertyCoverageAmount"),
			LossOfUseCoverageAmount:        d.dec("LossOfUseCoverageAmount"),
			LiabilityCoverageAmount:        d.dec("LiabilityCoverageAmount"),
			MedicalPaymentsCoverageAmount:  d.dec("MedicalPaymentsCoverageAmount"),
			StartDate:                      d.date("StartDate"),
			EndDate:                        d.date("EndDate"),
		},
		PolicyID:       d.str(colPolicyID),
		HomeArchiveIDs: splitList(d.str(colHomeID)),
	}, d.errs
}

// EncodeAttachments renders attachments as a JSON array; an empty list is "".
func EncodeAttachments(atts []inventory.Attachment) string {
	if len(atts) == 0 {
		return ""
	}
	b, err := json.Marshal(atts)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeAttachments parses an AttachmentsJSON cell.
func DecodeAttachments(s string) ([]inventory.Attachment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var atts []inventory.Attachment
	if err := json.Unmarshal([]byte(s), &atts); err != nil {
		return nil, err
	}
	return atts, nil
}

// fieldDecoder reads typed values from a record, collecting one FieldError
// per malformed value instead of failing the row.
type fieldDecoder struct {
	rec  Record
	errs []FieldError
}

func (d *fieldDecoder) fail(col, value string, err error) {
	d.errs = append(d.errs, FieldError{
		File:    d.rec.File(),
		Line:    d.rec.Line(),
		Field:   col,
		Value:   value,
		Message: err.Error(),
	})
}

func (d *fieldDecoder) str(col string) string {
	return d.rec.Get(col)
}

func (d *fieldDecoder) dec(col string) decimal.Decimal {
	v := d.rec.Get(col)
	dec, err := ParseDecimal(v)
	if err != nil {
		d.fail(col, v, err)
		return decimal.Zero
	}
	return dec
}

func (d *fieldDecoder) nullDecimal(col string) decimal.NullDecimal {
	v := d.rec.Get(col)
	dec, err := ParseNullDecimal(v)
	if err != nil {
		d.fail(col, v, err)
		return decimal.NullDecimal{}
	}
	return dec
}

func (d *fieldDecoder) date(col string) time.Time {
	v := d.rec.Get(col)
	t, err := ParseTime(v)
	if err != nil {
		d.fail(col, v, err)
		return time.Time{}
	}
	return t
}

func (d *fieldDecoder) flag(col string) bool {
	v := d.rec.Get(col)
	b, err := ParseBool(v)
	if err != nil {
		d.fail(col, v, err)
		return false
	}
	return b
}

func (d *fieldDecoder) num(col string) int {
	v := d.rec.Get(col)
	n, err := ParseInt(v)
	if err != nil {
		d.fail(col, v, err)
		return 0
	}
	return n
}

func (d *fieldDecoder) attachments(col string) []inventory.Attachment {
	v := d.rec.Get(col)
	atts, err := DecodeAttachments(v)
	if err != nil {
		d.fail(col, v, err)
		return nil
	}
	return atts
}
