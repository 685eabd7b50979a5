// Package inventory defines the catalog entities moved by the archive pipeline
// and the store interfaces the pipeline reads from and writes to.
//
// The pipeline never owns these records. A Store implementation (SQLite,
// PostgreSQL or the in-memory store used by tests) is injected into the core
// service, which enumerates rows in ordered batches on export and inserts rows
// on import.
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies one entity kind carried by an archive.
type Kind string

const (
	KindItem     Kind = "item"
	KindLocation Kind = "location"
	KindLabel    Kind = "label"
	KindHome     Kind = "home"
	KindPolicy   Kind = "policy"
)

// Kinds lists every entity kind in dependency order: parents before the
// kinds that reference them by name.
var Kinds = []Kind{KindHome, KindLabel, KindLocation, KindItem, KindPolicy}

// DefaultPhotoExt is used when a photo carries no extension of its own.
const DefaultPhotoExt = "jpg"

// Ref is a by-name pointer to a related entity. The ID is store-local and is
// never required to rebuild the relationship.
type Ref struct {
	ID   uuid.UUID
	Name string
}

// Photo is one image blob owned by an item or a location.
type Photo struct {
	ID        uuid.UUID
	SortOrder int
	Ext       string // without dot; empty means DefaultPhotoExt
	Data      []byte // nil when listed without photo data
}

// Extension returns the photo's file extension without the leading dot.
func (p Photo) Extension() string {
	if p.Ext == "" {
		return DefaultPhotoExt
	}
	return p.Ext
}

// Attachment is a file reference attached to an item.
type Attachment struct {
	URL          string     `json:"url"`
	OriginalName string     `json:"originalName"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Item is a single inventory entry.
type Item struct {
	ID          uuid.UUID
	Title       string
	Description string

	QuantityString string
	QuantityInt    int

	Serial string
	Model  string
	Make   string

	Price            decimal.Decimal
	Insured          bool
	AssetID          string
	Notes            string
	ReplacementCost  decimal.NullDecimal
	DepreciationRate decimal.NullDecimal
	HasUsedAI        bool

	CreatedAt              time.Time
	PurchaseDate           time.Time
	WarrantyExpirationDate time.Time
	PurchaseLocation       string
	Condition              string
	HasWarranty            bool

	Attachments []Attachment

	DimensionLength string
	DimensionWidth  string
	DimensionHeight string
	DimensionUnit   string
	WeightValue     string
	WeightUnit      string

	Color               string
	StorageRequirements string
	IsFragile           bool
	MovingPriority      int
	RoomDestination     string

	// Relationships. LocationHomeID is the home of the referenced location,
	// used for scope filtering of items without a direct home.
	Location       *Ref
	LocationHomeID uuid.NullUUID
	Home           *Ref
	Labels         []Ref

	Photos []Photo
}

// Location is a storage location, optionally inside a home.
type Location struct {
	ID          uuid.UUID
	Name        string
	Description string
	Home        *Ref
	Photo       *Photo
}

// HomeID returns the owning home, if any.
func (l Location) HomeID() uuid.NullUUID {
	if l.Home == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: l.Home.ID, Valid: true}
}

// Label tags items.
type Label struct {
	ID          uuid.UUID
	Name        string
	Description string
	ColorHex    string
	Emoji       string
}

// Home is a residence that owns locations, items and policies.
type Home struct {
	ID            uuid.UUID
	Name          string
	Address1      string
	Address2      string
	City          string
	State         string
	Zip           string
	Country       string
	PurchaseDate  time.Time
	PurchasePrice decimal.Decimal
	IsPrimary     bool
	ColorName     string
}

// Policy is an insurance policy covering zero or more homes. A policy without
// homes is global.
type Policy struct {
	ID                             uuid.UUID
	ProviderName                   string
	PolicyNumber                   string
	DeductibleAmount               decimal.Decimal
	DwellingCoverageAmount         decimal.Decimal
	PersonalPropertyCoverageAmount decimal.Decimal
	LossOfUseCoverageAmount        decimal.Decimal
	LiabilityCoverageAmount        decimal.Decimal
	MedicalPaymentsCoverageAmount  decimal.Decimal
	StartDate                      time.Time
	EndDate                        time.Time
	HomeIDs                        []uuid.UUID
}
