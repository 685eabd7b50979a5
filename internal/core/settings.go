package core

import (
	"os"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
)

// DefaultAppName prefixes archive file names.
const DefaultAppName = "movingbox"

// Settings configures a Service.
type Settings struct {
	// AppName prefixes archive names: <AppName>-export-<token>.zip.
	AppName string

	// OutputDir receives finished archives.
	OutputDir string

	// WorkDir holds the scratch trees of running operations.
	WorkDir string

	// BatchSize is the number of rows read or written per batch.
	// 0 derives it from physical memory.
	BatchSize int

	// Guard is the per-file policy applied to imported archives.
	Guard guard.Policy

	// StrictFiles aborts an import on the first rejected file instead of
	// skipping it.
	StrictFiles bool
}

func (s Settings) withDefaults() Settings {
	if s.AppName == "" {
		s.AppName = DefaultAppName
	}
	if s.OutputDir == "" {
		s.OutputDir = "."
	}
	if s.WorkDir == "" {
		s.WorkDir = os.TempDir()
	}
	if s.BatchSize <= 0 {
		s.BatchSize = detectBatchSize()
	}
	return s
}

// ExportConfig selects what an export includes.
type ExportConfig struct {
	IncludeItems     bool
	IncludeLocations bool
	IncludeLabels    bool
	IncludeHomes     bool
	IncludePolicies  bool
	IncludePhotos    bool

	// IncludedHomeIDs limits the export to these homes. nil exports every
	// home; policies without a home are always exported.
	IncludedHomeIDs []uuid.UUID
}

// DefaultExportConfig exports everything.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		IncludeItems:     true,
		IncludeLocations: true,
		IncludeLabels:    true,
		IncludeHomes:     true,
		IncludePolicies:  true,
		IncludePhotos:    true,
	}
}

// Includes reports whether kind is exported.
func (c ExportConfig) Includes(kind inventory.Kind) bool {
	return includes(kind, c.IncludeItems, c.IncludeLocations, c.IncludeLabels, c.IncludeHomes, c.IncludePolicies)
}

// ImportConfig selects which archive sections an import processes.
type ImportConfig struct {
	IncludeItems     bool
	IncludeLocations bool
	IncludeLabels    bool
	IncludeHomes     bool
	IncludePolicies  bool
	IncludePhotos    bool
}

// DefaultImportConfig imports every section.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IncludeItems:     true,
		IncludeLocations: true,
		IncludeLabels:    true,
		IncludeHomes:     true,
		IncludePolicies:  true,
		IncludePhotos:    true,
	}
}

// Includes reports whether the section of kind is imported.
func (c ImportConfig) Includes(kind inventory.Kind) bool {
	return includes(kind, c.IncludeItems, c.IncludeLocations, c.IncludeLabels, c.IncludeHomes, c.IncludePolicies)
}

func includes(kind inventory.Kind, items, locations, labels, homes, policies bool) bool {
	switch kind {
	case inventory.KindItem:
		return items
	case inventory.KindLocation:
		return locations
	case inventory.KindLabel:
		return labels
	case inventory.KindHome:
		return homes
	case inventory.KindPolicy:
		return policies
	default:
		return false
	}
}

// Counts holds per-kind row counts.
type Counts struct {
	Items     int
	Locations int
	Labels    int
	Homes     int
	Policies  int
	Photos    int
}

// Of returns the count of kind.
func (c Counts) Of(kind inventory.Kind) int {
	switch kind {
	case inventory.KindItem:
		return c.Items
	case inventory.KindLocation:
		return c.Locations
	case inventory.KindLabel:
		return c.Labels
	case inventory.KindHome:
		return c.Homes
	case inventory.KindPolicy:
		return c.Policies
	default:
		return 0
	}
}

func (c *Counts) add(kind inventory.Kind, n int) {
	switch kind {
	case inventory.KindItem:
		c.Items += n
	case inventory.KindLocation:
		c.Locations += n
	case inventory.KindLabel:
		c.Labels += n
	case inventory.KindHome:
		c.Homes += n
	case inventory.KindPolicy:
		c.Policies += n
	}
}

// Rows returns the number of entity rows, photos excluded.
func (c Counts) Rows() int {
	return c.Items + c.Locations + c.Labels + c.Homes + c.Policies
}

// ExportResult describes a finished export.
type ExportResult struct {
	Counts
	Path string // archive location
}

// ImportResult describes a finished import.
type ImportResult struct {
	Counts

	// SkippedFiles counts archive entries and photos rejected or missing.
	SkippedFiles int

	// Warnings lists recovered problems: skipped files and malformed values.
	Warnings []string
}
