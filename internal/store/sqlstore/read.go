package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

// itemColumns lists the items columns in insert and scan order.
var itemColumns = []string{
	"id", "title", "description", "quantity_string", "quantity_int", "serial", "model", "make",
	"price", "insured", "asset_id", "notes", "replacement_cost", "depreciation_rate", "has_used_ai",
	"created_at", "purchase_date", "warranty_expiration_date", "purchase_location", "item_condition", "has_warranty",
	"attachments",
	"dimension_length", "dimension_width", "dimension_height", "dimension_unit", "weight_value", "weight_unit",
	"color", "storage_requirements", "is_fragile", "moving_priority", "room_destination",
	"location_id", "home_id",
}

var homeColumns = []string{
	"id", "name", "address1", "address2", "city", "state", "zip", "country",
	"purchase_date", "purchase_price", "is_primary", "color_name",
}

var policyColumns = []string{
	"id", "provider_name", "policy_number",
	"deductible_amount", "dwelling_coverage_amount", "personal_property_coverage_amount",
	"loss_of_use_coverage_amount", "liability_coverage_amount", "medical_payments_coverage_amount",
	"start_date", "end_date",
}

func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(q), args...)
}

// Count returns the number of rows of kind inside scope.
func (s *Store) Count(ctx context.Context, kind inventory.Kind, scope inventory.Scope) (int, error) {
	var from string
	switch kind {
	case inventory.KindItem:
		from = "items i"
	case inventory.KindLocation:
		from = "locations l"
	case inventory.KindLabel:
		from = "labels b"
	case inventory.KindHome:
		from = "homes h"
	case inventory.KindPolicy:
		from = "policies p"
	default:
		return 0, fmt.Errorf("unknown kind %q", kind)
	}
	cond, args := scopeFilter(kind, scope)

	var n int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+from+where(cond), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// ListItems returns one batch of items ordered by insertion.
func (s *Store) ListItems(ctx context.Context, opts inventory.ListOptions) ([]inventory.Item, error) {
	cond, args := scopeFilter(inventory.KindItem, opts.Scope)
	q := "SELECT " + prefixed("i", itemColumns) + ", l.name, l.home_id, h.name" +
		" FROM items i" +
		" LEFT JOIN locations l ON l.id = i.location_id" +
		" LEFT JOIN homes h ON h.id = i.home_id" +
		where(cond) + " ORDER BY i.seq"
	q, args = page(q, args, opts)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	rows.Close()

	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	labels, err := s.itemLabels(ctx, ids)
	if err != nil {
		return nil, err
	}
	photos, err := s.photos(ctx, inventory.KindItem, ids, opts.WithPhotos)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Labels = labels[items[i].ID]
		items[i].Photos = photos[items[i].ID]
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (inventory.Item, error) {
	var (
		it                     inventory.Item
		locationID, homeID     uuid.NullUUID
		locationName, homeName sql.NullString
		locationHomeID         uuid.NullUUID
	)
	err := rows.Scan(
		&it.ID, &it.Title, &it.Description, &it.QuantityString, &it.QuantityInt, &it.Serial, &it.Model, &it.Make,
		&it.Price, &it.Insured, &it.AssetID, &it.Notes, &it.ReplacementCost, &it.DepreciationRate, &it.HasUsedAI,
		textTime{&it.CreatedAt}, textTime{&it.PurchaseDate}, textTime{&it.WarrantyExpirationDate},
		&it.PurchaseLocation, &it.Condition, &it.HasWarranty,
		attachments{&it.Attachments},
		&it.DimensionLength, &it.DimensionWidth, &it.DimensionHeight, &it.DimensionUnit, &it.WeightValue, &it.WeightUnit,
		&it.Color, &it.StorageRequirements, &it.IsFragile, &it.MovingPriority, &it.RoomDestination,
		&locationID, &homeID,
		&locationName, &locationHomeID, &homeName,
	)
	if err != nil {
		return inventory.Item{}, err
	}
	if locationID.Valid {
		it.Location = &inventory.Ref{ID: locationID.UUID, Name: locationName.String}
		it.LocationHomeID = locationHomeID
	}
	if homeID.Valid {
		it.Home = &inventory.Ref{ID: homeID.UUID, Name: homeName.String}
	}
	return it, nil
}

func (s *Store) itemLabels(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]inventory.Ref, error) {
	in, args := inList(itemIDs)
	rows, err := s.query(ctx,
		"SELECT il.item_id, b.id, b.name FROM item_labels il JOIN labels b ON b.id = il.label_id"+
			" WHERE il.item_id IN "+in+" ORDER BY il.item_id, il.position", args...)
	if err != nil {
		return nil, fmt.Errorf("list item labels: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]inventory.Ref{}
	for rows.Next() {
		var itemID uuid.UUID
		var ref inventory.Ref
		if err := rows.Scan(&itemID, &ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("list item labels: %w", err)
		}
		out[itemID] = append(out[itemID], ref)
	}
	return out, rows.Err()
}

// photos loads the photos of owners, ordered by sort order. Without
// withData only the metadata is read.
func (s *Store) photos(ctx context.Context, kind inventory.Kind, owners []uuid.UUID, withData bool) (map[uuid.UUID][]inventory.Photo, error) {
	data := "NULL"
	if withData {
		data = "data"
	}
	in, args := inList(owners)
	rows, err := s.query(ctx,
		"SELECT owner_id, id, sort_order, ext, "+data+" FROM photos"+
			" WHERE owner_kind = ? AND owner_id IN "+in+" ORDER BY owner_id, sort_order, seq",
		append([]any{string(kind)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]inventory.Photo{}
	for rows.Next() {
		var owner uuid.UUID
		var p inventory.Photo
		if err := rows.Scan(&owner, &p.ID, &p.SortOrder, &p.Ext, &p.Data); err != nil {
			return nil, fmt.Errorf("list photos: %w", err)
		}
		out[owner] = append(out[owner], p)
	}
	return out, rows.Err()
}

// ListLocations returns one batch of locations ordered by insertion.
func (s *Store) ListLocations(ctx context.Context, opts inventory.ListOptions) ([]inventory.Location, error) {
	cond, args := scopeFilter(inventory.KindLocation, opts.Scope)
	q := "SELECT l.id, l.name, l.description, l.home_id, h.name FROM locations l" +
		" LEFT JOIN homes h ON h.id = l.home_id" + where(cond) + " ORDER BY l.seq"
	q, args = page(q, args, opts)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locs []inventory.Location
	for rows.Next() {
		var l inventory.Location
		var homeID uuid.NullUUID
		var homeName sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &homeID, &homeName); err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		if homeID.Valid {
			l.Home = &inventory.Ref{ID: homeID.UUID, Name: homeName.String}
		}
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	rows.Close()

	if len(locs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	photos, err := s.photos(ctx, inventory.KindLocation, ids, opts.WithPhotos)
	if err != nil {
		return nil, err
	}
	for i := range locs {
		if ps := photos[locs[i].ID]; len(ps) > 0 {
			p := ps[len(ps)-1]
			locs[i].Photo = &p
		}
	}
	return locs, nil
}

// ListLabels returns one batch of labels ordered by insertion.
func (s *Store) ListLabels(ctx context.Context, opts inventory.ListOptions) ([]inventory.Label, error) {
	q, args := page("SELECT b.id, b.name, b.description, b.color_hex, b.emoji FROM labels b ORDER BY b.seq", nil, opts)
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []inventory.Label
	for rows.Next() {
		var l inventory.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.ColorHex, &l.Emoji); err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// ListHomes returns one batch of homes ordered by insertion.
func (s *Store) ListHomes(ctx context.Context, opts inventory.ListOptions) ([]inventory.Home, error) {
	cond, args := scopeFilter(inventory.KindHome, opts.Scope)
	q, args := page("SELECT "+prefixed("h", homeColumns)+" FROM homes h"+where(cond)+" ORDER BY h.seq", args, opts)
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list homes: %w", err)
	}
	defer rows.Close()

	var homes []inventory.Home
	for rows.Next() {
		var h inventory.Home
		err := rows.Scan(&h.ID, &h.Name, &h.Address1, &h.Address2, &h.City, &h.State, &h.Zip, &h.Country,
			textTime{&h.PurchaseDate}, &h.PurchasePrice, &h.IsPrimary, &h.ColorName)
		if err != nil {
			return nil, fmt.Errorf("list homes: %w", err)
		}
		homes = append(homes, h)
	}
	return homes, rows.Err()
}

// ListPolicies returns one batch of policies ordered by insertion.
func (s *Store) ListPolicies(ctx context.Context, opts inventory.ListOptions) ([]inventory.Policy, error) {
	cond, args := scopeFilter(inventory.KindPolicy, opts.Scope)
	q, args := page("SELECT "+prefixed("p", policyColumns)+" FROM policies p"+where(cond)+" ORDER BY p.seq", args, opts)
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []inventory.Policy
	for rows.Next() {
		var p inventory.Policy
		err := rows.Scan(&p.ID, &p.ProviderName, &p.PolicyNumber,
			&p.DeductibleAmount, &p.DwellingCoverageAmount, &p.PersonalPropertyCoverageAmount,
			&p.LossOfUseCoverageAmount, &p.LiabilityCoverageAmount, &p.MedicalPaymentsCoverageAmount,
			textTime{&p.StartDate}, textTime{&p.EndDate})
		if err != nil {
			return nil, fmt.Errorf("list policies: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	rows.Close()

	if len(policies) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(policies))
	for i, p := range policies {
		ids[i] = p.ID
	}
	in, idArgs := inList(ids)
	hrows, err := s.query(ctx,
		"SELECT policy_id, home_id FROM policy_homes WHERE policy_id IN "+in+" ORDER BY policy_id, position", idArgs...)
	if err != nil {
		return nil, fmt.Errorf("list policy homes: %w", err)
	}
	defer hrows.Close()

	homes := map[uuid.UUID][]uuid.UUID{}
	for hrows.Next() {
		var policyID, homeID uuid.UUID
		if err := hrows.Scan(&policyID, &homeID); err != nil {
			return nil, fmt.Errorf("list policy homes: %w", err)
		}
		homes[policyID] = append(homes[policyID], homeID)
	}
	if err := hrows.Err(); err != nil {
		return nil, fmt.Errorf("list policy homes: %w", err)
	}
	for i := range policies {
		policies[i].HomeIDs = homes[policies[i].ID]
	}
	return policies, nil
}
