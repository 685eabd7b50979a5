package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func insertSQL(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exec(ctx context.Context, e execer, q string, args ...any) error {
	_, err := e.ExecContext(ctx, s.dialect.rebind(q), args...)
	return err
}

// exists reports whether table holds a row with id.
func (s *Store) exists(ctx context.Context, e execer, table string, id uuid.UUID) (bool, error) {
	var one int
	err := e.QueryRowContext(ctx, s.dialect.rebind("SELECT 1 FROM "+table+" WHERE id = ?"), id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// requireRef fails with inventory.ErrNotFound when a referenced row is
// missing, matching the in-memory store.
func (s *Store) requireRef(ctx context.Context, e execer, table string, id uuid.UUID) error {
	ok, err := s.exists(ctx, e, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, inventory.ErrNotFound)
	}
	return nil
}

// withTx runs fn in a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateHome inserts h.
func (s *Store) CreateHome(ctx context.Context, h *inventory.Home) error {
	id := h.ID
	assignID(&id)
	err := s.exec(ctx, s.db, insertSQL("homes", homeColumns),
		id.String(), h.Name, h.Address1, h.Address2, h.City, h.State, h.Zip, h.Country,
		timeArg(h.PurchaseDate), h.PurchasePrice, h.IsPrimary, h.ColorName)
	if err != nil {
		return fmt.Errorf("create home: %w", err)
	}
	h.ID = id
	return nil
}

// CreateLabel inserts l.
func (s *Store) CreateLabel(ctx context.Context, l *inventory.Label) error {
	id := l.ID
	assignID(&id)
	err := s.exec(ctx, s.db, insertSQL("labels", []string{"id", "name", "description", "color_hex", "emoji"}),
		id.String(), l.Name, l.Description, l.ColorHex, l.Emoji)
	if err != nil {
		return fmt.Errorf("create label: %w", err)
	}
	l.ID = id
	return nil
}

// CreateLocation inserts l and its photo. Its home, if any, must exist.
func (s *Store) CreateLocation(ctx context.Context, l *inventory.Location) error {
	id := l.ID
	assignID(&id)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if l.Home != nil {
			if err := s.requireRef(ctx, tx, "homes", l.Home.ID); err != nil {
				return err
			}
		}
		err := s.exec(ctx, tx, insertSQL("locations", []string{"id", "name", "description", "home_id"}),
			id.String(), l.Name, l.Description, refArg(l.Home))
		if err != nil {
			return err
		}
		if l.Photo != nil {
			return s.insertPhoto(ctx, tx, inventory.KindLocation, id, *l.Photo)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	l.ID = id
	return nil
}

// CreateItem inserts it with its labels and photos. Its location, home
// and labels must exist.
func (s *Store) CreateItem(ctx context.Context, it *inventory.Item) error {
	id := it.ID
	assignID(&id)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if it.Location != nil {
			if err := s.requireRef(ctx, tx, "locations", it.Location.ID); err != nil {
				return err
			}
		}
		if it.Home != nil {
			if err := s.requireRef(ctx, tx, "homes", it.Home.ID); err != nil {
				return err
			}
		}
		for _, l := range it.Labels {
			if err := s.requireRef(ctx, tx, "labels", l.ID); err != nil {
				return err
			}
		}

		err := s.exec(ctx, tx, insertSQL("items", itemColumns),
			id.String(), it.Title, it.Description, it.QuantityString, it.QuantityInt, it.Serial, it.Model, it.Make,
			it.Price, it.Insured, it.AssetID, it.Notes, it.ReplacementCost, it.DepreciationRate, it.HasUsedAI,
			timeArg(it.CreatedAt), timeArg(it.PurchaseDate), timeArg(it.WarrantyExpirationDate),
			it.PurchaseLocation, it.Condition, it.HasWarranty,
			attachments{&it.Attachments},
			it.DimensionLength, it.DimensionWidth, it.DimensionHeight, it.DimensionUnit, it.WeightValue, it.WeightUnit,
			it.Color, it.StorageRequirements, it.IsFragile, it.MovingPriority, it.RoomDestination,
			refArg(it.Location), refArg(it.Home))
		if err != nil {
			return err
		}

		seen := map[uuid.UUID]bool{}
		for pos, l := range it.Labels {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			err := s.exec(ctx, tx, insertSQL("item_labels", []string{"item_id", "label_id", "position"}),
				id.String(), l.ID.String(), pos)
			if err != nil {
				return err
			}
		}
		for _, p := range it.Photos {
			if err := s.insertPhoto(ctx, tx, inventory.KindItem, id, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	it.ID = id
	return nil
}

// CreatePolicy inserts p and its home links. Every home must exist.
func (s *Store) CreatePolicy(ctx context.Context, p *inventory.Policy) error {
	id := p.ID
	assignID(&id)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := s.exec(ctx, tx, insertSQL("policies", policyColumns),
			id.String(), p.ProviderName, p.PolicyNumber,
			p.DeductibleAmount, p.DwellingCoverageAmount, p.PersonalPropertyCoverageAmount,
			p.LossOfUseCoverageAmount, p.LiabilityCoverageAmount, p.MedicalPaymentsCoverageAmount,
			timeArg(p.StartDate), timeArg(p.EndDate))
		if err != nil {
			return err
		}
		for pos, homeID := range p.HomeIDs {
			if err := s.requireRef(ctx, tx, "homes", homeID); err != nil {
				return err
			}
			err := s.exec(ctx, tx, insertSQL("policy_homes", []string{"policy_id", "home_id", "position"}),
				id.String(), homeID.String(), pos)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create policy: %w", err)
	}
	p.ID = id
	return nil
}

func (s *Store) insertPhoto(ctx context.Context, e execer, kind inventory.Kind, owner uuid.UUID, p inventory.Photo) error {
	assignID(&p.ID)
	return s.exec(ctx, e, insertSQL("photos", []string{"id", "owner_kind", "owner_id", "sort_order", "ext", "data"}),
		p.ID.String(), string(kind), owner.String(), p.SortOrder, p.Ext, p.Data)
}

// AttachPhoto adds a photo to an item or replaces a location's photo.
func (s *Store) AttachPhoto(ctx context.Context, kind inventory.Kind, ownerID uuid.UUID, p inventory.Photo) error {
	var table string
	switch kind {
	case inventory.KindItem:
		table = "items"
	case inventory.KindLocation:
		table = "locations"
	default:
		return fmt.Errorf("%s rows have no photos", kind)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireRef(ctx, tx, table, ownerID); err != nil {
			return err
		}
		if kind == inventory.KindLocation {
			err := s.exec(ctx, tx, "DELETE FROM photos WHERE owner_kind = ? AND owner_id = ?", string(kind), ownerID.String())
			if err != nil {
				return err
			}
		}
		return s.insertPhoto(ctx, tx, kind, ownerID, p)
	})
	if err != nil {
		return fmt.Errorf("attach photo: %w", err)
	}
	return nil
}

// FindByName returns the first row of kind whose name matches, ignoring
// case. Items match on title and policies on policy number.
func (s *Store) FindByName(ctx context.Context, kind inventory.Kind, name string) (uuid.UUID, bool, error) {
	var table, col string
	switch kind {
	case inventory.KindHome:
		table, col = "homes", "name"
	case inventory.KindLabel:
		table, col = "labels", "name"
	case inventory.KindLocation:
		table, col = "locations", "name"
	case inventory.KindItem:
		table, col = "items", "title"
	case inventory.KindPolicy:
		table, col = "policies", "policy_number"
	default:
		return uuid.Nil, false, fmt.Errorf("unknown kind %q", kind)
	}

	var id uuid.UUID
	err := s.queryRow(ctx, "SELECT id FROM "+table+" WHERE LOWER("+col+") = LOWER(?) ORDER BY seq LIMIT 1", name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return uuid.Nil, false, nil
	case err != nil:
		return uuid.Nil, false, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	return id, true, nil
}
