package codec

import "github.com/movingbox/inventory-archive/internal/inventory"

// Column names shared by several tables.
const (
	colName        = "Name"
	colDescription = "Description"
	colLocation    = "Location"
	colLabel       = "Label"
	colHome        = "Home"
	colItemID      = "ItemID"
	colLocationID  = "LocationID"
	colHomeID      = "HomeID"
	colPolicyID    = "PolicyID"
)

// Items is inventory.csv.
var Items = Table{
	Kind:     inventory.KindItem,
	FileName: "inventory.csv",
	Columns: []string{
		"Title", colDescription, colLocation, colLabel, colHome,
		"QuantityString", "QuantityInt", "Serial", "Model", "Make",
		"Price", "Insured", "AssetID", "Notes", "ReplacementCost", "DepreciationRate", "HasUsedAI",
		"CreatedAt", "PurchaseDate", "WarrantyExpirationDate", "PurchaseLocation", "Condition", "HasWarranty",
		"AttachmentsJSON",
		"DimensionLength", "DimensionWidth", "DimensionHeight", "DimensionUnit", "WeightValue", "WeightUnit",
		"Color", "StorageRequirements", "IsFragile", "MovingPriority", "RoomDestination",
		colItemID, colLocationID, colHomeID,
	},
	Photos: MultiPhoto,
}

// Locations is locations.csv.
var Locations = Table{
	Kind:     inventory.KindLocation,
	FileName: "locations.csv",
	Columns:  []string{colName, colDescription, colHome, colLocationID, colHomeID},
	Photos:   SinglePhoto,
}

// Labels is labels.csv.
var Labels = Table{
	Kind:     inventory.KindLabel,
	FileName: "labels.csv",
	Columns:  []string{colName, colDescription, "ColorHex", "Emoji"},
}

// Homes is home-details.csv.
var Homes = Table{
	Kind:     inventory.KindHome,
	FileName: "home-details.csv",
	Columns: []string{
		colHomeID, colName, "Address1", "Address2", "City", "State", "Zip", "Country",
		"PurchaseDate", "PurchasePrice", "IsPrimary", "ColorName",
	},
}

// Policies is insurance-policy-details.csv.
var Policies = Table{
	Kind:     inventory.KindPolicy,
	FileName: "insurance-policy-details.csv",
	Columns: []string{
		colPolicyID, "ProviderName", "PolicyNumber",
		"DeductibleAmount", "DwellingCoverageAmount", "PersonalPropertyCoverageAmount",
		"LossOfUseCoverageAmount", "LiabilityCoverageAmount", "MedicalPaymentsCoverageAmount",
		"StartDate", "EndDate", colHomeID,
	},
}

// Tables lists every table in import order.
var Tables = []Table{Homes, Labels, Locations, Items, Policies}

// TableFor returns the table of kind k.
func TableFor(k inventory.Kind) (Table, bool) {
	for _, t := range Tables {
		if t.Kind == k {
			return t, true
		}
	}
	return Table{}, false
}

// TableForFile returns the table stored under an archive entry name.
func TableForFile(name string) (Table, bool) {
	for _, t := range Tables {
		if t.FileName == name {
			return t, true
		}
	}
	return Table{}, false
}
