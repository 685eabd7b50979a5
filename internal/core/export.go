package core

// export.go produces an archive in five phases:
//
//	preparing        count rows in scope; fail with nothingToExport if none
//	fetchingData     read rows in batches and stage them in spool files
//	writingCSV       write each table with its final photo column count
//	copyingPhotos    read photo blobs in batches into photos/
//	creatingArchive  zip the tree into <app>-export-<token>.zip
//
// Rows are staged on disk so peak memory is one batch, whatever the catalog
// size. The spool is needed because the photo column count of a table is
// only known after its last row has been read.

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/movingbox/inventory-archive/internal/archive"
	"github.com/movingbox/inventory-archive/internal/codec"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/logging"
	"github.com/movingbox/inventory-archive/internal/photos"
)

// exportOrder is the order tables are fetched and written in.
var exportOrder = []codec.Table{codec.Items, codec.Locations, codec.Labels, codec.Homes, codec.Policies}

type exportSection struct {
	table     codec.Table
	total     int
	spoolPath string
	rows      int
	maxPhotos int
}

type exportRun struct {
	*Service
	cfg   ExportConfig
	scope inventory.Scope
	em    *emitter
	log   *slog.Logger

	spoolDir string
	tree     string

	sections   []*exportSection
	rowTotal   int
	fetched    int
	photoTotal int
	counts     Counts
}

func (s *Service) runExport(ctx context.Context, em *emitter, cfg ExportConfig) (ExportResult, error) {
	r := &exportRun{
		Service: s,
		cfg:     cfg,
		scope:   inventory.ScopeFor(cfg.IncludedHomeIDs),
		em:      em,
		log:     logging.FromContext(ctx),
	}

	em.fraction(PhasePreparing, 0)
	if err := r.prepare(ctx); err != nil {
		return ExportResult{}, err
	}

	work, err := afero.TempDir(s.fs, s.settings.WorkDir, "export-")
	if err != nil {
		return ExportResult{}, fmt.Errorf("create work dir: %w", err)
	}
	defer s.fs.RemoveAll(work)
	r.spoolDir = filepath.Join(work, "spool")
	r.tree = filepath.Join(work, "tree")
	for _, dir := range []string{r.spoolDir, r.tree} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return ExportResult{}, fmt.Errorf("create work dir: %w", err)
		}
	}

	steps := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseFetchingData, r.fetch},
		{PhaseWritingCSV, r.writeCSV},
		{PhaseCopyingPhotos, r.copyPhotos},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return ExportResult{}, err
		}
		r.log.Debug("phase started", "phase", step.phase)
		if err := step.run(ctx); err != nil {
			return ExportResult{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return ExportResult{}, err
	}
	path, err := r.pack(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Counts: r.counts, Path: path}, nil
}

// prepare counts the rows of every requested kind inside the scope.
func (r *exportRun) prepare(ctx context.Context) error {
	for _, table := range exportOrder {
		if !r.cfg.Includes(table.Kind) {
			continue
		}
		n, err := r.store.Count(ctx, table.Kind, r.scope)
		if err != nil {
			return fmt.Errorf("count %s rows: %w", table.Kind, err)
		}
		if n == 0 {
			continue
		}
		r.sections = append(r.sections, &exportSection{table: table, total: n})
		r.rowTotal += n
	}

	if r.rowTotal == 0 {
		return &Error{Kind: KindNothingToExport, Op: "export"}
	}
	r.log.Info("export prepared", "rows", r.rowTotal, "tables", len(r.sections), "scoped", r.scope.Filtered())
	r.em.fraction(PhasePreparing, 1)
	return nil
}

func (r *exportRun) fetch(ctx context.Context) error {
	r.em.count(PhaseFetchingData, 0, r.rowTotal)
	for _, sec := range r.sections {
		if err := r.fetchSection(ctx, sec); err != nil {
			return err
		}
		r.counts.add(sec.table.Kind, sec.rows)
	}
	return nil
}

func (r *exportRun) fetchSection(ctx context.Context, sec *exportSection) error {
	sec.spoolPath = filepath.Join(r.spoolDir, sec.table.FileName)
	f, err := r.fs.Create(sec.spoolPath)
	if err != nil {
		return fmt.Errorf("create spool: %w", err)
	}
	defer f.Close()

	sw := codec.NewSpoolWriter(f, sec.table)
	opts := func(offset, limit int) inventory.ListOptions {
		return inventory.ListOptions{Scope: r.scope, Offset: offset, Limit: limit}
	}

	switch sec.table.Kind {
	case inventory.KindItem:
		err = spoolRows(ctx, r, sw, func(o, l int) ([]inventory.Item, error) { return r.store.ListItems(ctx, opts(o, l)) },
			func(it inventory.Item) codec.Row {
				r.photoTotal += len(it.Photos)
				return codec.EncodeItem(it, photos.ItemPhotoNames(it))
			})
	case inventory.KindLocation:
		err = spoolRows(ctx, r, sw, func(o, l int) ([]inventory.Location, error) { return r.store.ListLocations(ctx, opts(o, l)) },
			func(loc inventory.Location) codec.Row {
				name := ""
				if loc.Photo != nil {
					r.photoTotal++
					name = photos.LocationPhotoName(loc.ID, loc.Photo.Extension())
				}
				return codec.EncodeLocation(loc, name)
			})
	case inventory.KindLabel:
		err = spoolRows(ctx, r, sw, func(o, l int) ([]inventory.Label, error) { return r.store.ListLabels(ctx, opts(o, l)) },
			codec.EncodeLabel)
	case inventory.KindHome:
		err = spoolRows(ctx, r, sw, func(o, l int) ([]inventory.Home, error) { return r.store.ListHomes(ctx, opts(o, l)) },
			codec.EncodeHome)
	case inventory.KindPolicy:
		err = spoolRows(ctx, r, sw, func(o, l int) ([]inventory.Policy, error) { return r.store.ListPolicies(ctx, opts(o, l)) },
			codec.EncodePolicy)
	}
	if err != nil {
		return err
	}

	sec.rows = sw.Rows()
	sec.maxPhotos = sw.MaxPhotos()
	logging.WithFields(ctx, "file", sec.table.FileName).Debug("rows fetched", "rows", sec.rows, "max_photos", sec.maxPhotos)
	return nil
}

func spoolRows[T any](ctx context.Context, r *exportRun, sw *codec.SpoolWriter,
	list func(offset, limit int) ([]T, error), encode func(T) codec.Row) error {

	err := eachBatch(ctx, r.settings.BatchSize, list, func(rows []T) error {
		for _, row := range rows {
			if err := sw.Write(encode(row)); err != nil {
				return err
			}
		}
		r.fetched += len(rows)
		r.em.count(PhaseFetchingData, r.fetched, r.rowTotal)
		return nil
	})
	if err != nil {
		return err
	}
	return sw.Flush()
}

func (r *exportRun) writeCSV(ctx context.Context) error {
	for i, sec := range r.sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sec.rows == 0 {
			continue
		}
		if err := r.writeTable(sec); err != nil {
			return err
		}
		r.em.count(PhaseWritingCSV, i+1, len(r.sections))
	}
	return nil
}

func (r *exportRun) writeTable(sec *exportSection) error {
	src, err := r.fs.Open(sec.spoolPath)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	defer src.Close()

	dst, err := r.fs.Create(filepath.Join(r.tree, sec.table.FileName))
	if err != nil {
		return fmt.Errorf("create %s: %w", sec.table.FileName, err)
	}
	defer dst.Close()

	w, err := codec.NewWriter(dst, sec.table, sec.maxPhotos)
	if err != nil {
		return err
	}
	if err := codec.CopySpool(w, src); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", sec.table.FileName, err)
	}
	return dst.Close()
}

// copyPhotos writes photo blobs under photos/. A photo that cannot be
// written is logged and skipped; its file name stays in the CSV.
func (r *exportRun) copyPhotos(ctx context.Context) error {
	if !r.cfg.IncludePhotos || r.photoTotal == 0 {
		r.em.fraction(PhaseCopyingPhotos, 1)
		return nil
	}

	mat := photos.New(r.fs, r.tree, r.guard)
	done := 0
	write := func(name string, p inventory.Photo) {
		done++
		switch {
		case len(p.Data) == 0:
			r.log.Warn("photo has no data, skipped", "file", name)
		default:
			if err := mat.Write(name, p.Data); err != nil {
				r.log.Warn("photo not written", "file", name, "error", err)
			} else {
				r.counts.Photos++
			}
		}
		if ShouldEmitPhoto(done, r.photoTotal) {
			r.em.count(PhaseCopyingPhotos, done, r.photoTotal)
		}
	}
	opts := func(offset, limit int) inventory.ListOptions {
		return inventory.ListOptions{Scope: r.scope, Offset: offset, Limit: limit, WithPhotos: true}
	}

	if r.cfg.Includes(inventory.KindItem) {
		err := eachBatch(ctx, r.settings.BatchSize,
			func(o, l int) ([]inventory.Item, error) { return r.store.ListItems(ctx, opts(o, l)) },
			func(items []inventory.Item) error {
				for _, it := range items {
					for i, p := range it.Photos {
						write(photos.ItemPhotoName(it.ID, i, p.Extension()), p)
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	if r.cfg.Includes(inventory.KindLocation) {
		err := eachBatch(ctx, r.settings.BatchSize,
			func(o, l int) ([]inventory.Location, error) { return r.store.ListLocations(ctx, opts(o, l)) },
			func(locs []inventory.Location) error {
				for _, loc := range locs {
					if loc.Photo != nil {
						write(photos.LocationPhotoName(loc.ID, loc.Photo.Extension()), *loc.Photo)
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// pack zips the tree into the output directory.
func (r *exportRun) pack(ctx context.Context) (string, error) {
	r.em.fraction(PhaseCreatingArchive, 0)

	name := fmt.Sprintf("%s-export-%s.zip", r.settings.AppName, uuid.New())
	path := filepath.Join(r.settings.OutputDir, name)
	if err := r.fs.MkdirAll(r.settings.OutputDir, 0o755); err != nil {
		return "", &Error{Kind: KindFailedCreateZip, Op: "export", Path: r.settings.OutputDir, Err: err}
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return "", &Error{Kind: KindFailedCreateZip, Op: "export", Path: path, Err: err}
	}

	err = archive.Pack(ctx, r.fs, r.tree, f, func(done, total int) {
		r.em.count(PhaseCreatingArchive, done, total)
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		r.fs.Remove(path)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindFailedCreateZip, Op: "export", Path: path, Err: err}
	}

	r.log.Info("archive created", "path", path, "items", r.counts.Items, "photos", r.counts.Photos)
	return path, nil
}
