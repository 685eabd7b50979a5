package core

// import.go rebuilds store rows from an archive in four phases:
//
//	unzipping       open the archive and extract accepted entries
//	readingCSV      decode every enabled table
//	processingData  create rows parents first, resolving relationships by name
//	copyingPhotos   attach extracted photos to their rows
//
// The archive is untrusted. Every entry name passes the guard before it is
// written, and a rejected file is skipped (or aborts the run under the
// strict file policy). Rows never depend on their photos: a row whose photo
// is missing or rejected is still created.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/movingbox/inventory-archive/internal/archive"
	"github.com/movingbox/inventory-archive/internal/codec"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/logging"
	"github.com/movingbox/inventory-archive/internal/photos"
)

var errNoTables = errors.New("archive holds no inventory csv")

type pendingPhoto struct {
	kind      inventory.Kind
	owner     uuid.UUID
	name      string
	sortOrder int
}

type importRun struct {
	*Service
	cfg  ImportConfig
	path string
	em   *emitter
	log  *slog.Logger

	tree     string
	tables   map[string]string // table file name -> extracted path
	rejected map[string]bool   // sanitized names skipped during extraction

	homes     []codec.HomeRow
	labels    []codec.LabelRow
	locations []codec.LocationRow
	items     []codec.ItemRow
	policies  []codec.PolicyRow

	archiveHomes     map[string]uuid.UUID // home-details.csv HomeID -> new id
	archiveLocations map[string]uuid.UUID // locations.csv LocationID -> new id
	pending          []pendingPhoto
	res              *resolver
	result           ImportResult
}

func (s *Service) runImport(ctx context.Context, em *emitter, archivePath string, cfg ImportConfig) (ImportResult, error) {
	r := &importRun{
		Service:          s,
		cfg:              cfg,
		path:             archivePath,
		em:               em,
		log:              logging.FromContext(ctx).With("archive", filepath.Base(archivePath)),
		tables:           map[string]string{},
		rejected:         map[string]bool{},
		archiveHomes:     map[string]uuid.UUID{},
		archiveLocations: map[string]uuid.UUID{},
	}
	r.res = newResolver(s.store, &r.result.Counts)

	em.fraction(PhaseUnzipping, 0)
	arc, err := archive.Open(s.fs, archivePath)
	if err != nil {
		return ImportResult{}, &Error{Kind: KindInvalidZipFile, Op: "import", Path: archivePath, Err: err}
	}
	defer arc.Close()

	work, err := afero.TempDir(s.fs, s.settings.WorkDir, "import-")
	if err != nil {
		return ImportResult{}, fmt.Errorf("create work dir: %w", err)
	}
	defer s.fs.RemoveAll(work)
	r.tree = work

	if err := r.extract(ctx, arc); err != nil {
		return ImportResult{}, err
	}
	if len(r.tables) == 0 {
		return ImportResult{}, &Error{Kind: KindInvalidZipFile, Op: "import", Path: archivePath, Err: errNoTables}
	}

	steps := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseReadingCSV, r.read},
		{PhaseProcessingData, r.process},
		{PhaseCopyingPhotos, r.attachPhotos},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return ImportResult{}, err
		}
		r.log.Debug("phase started", "phase", step.phase)
		if err := step.run(ctx); err != nil {
			return ImportResult{}, err
		}
	}

	r.log.Info("import finished",
		"items", r.result.Items, "locations", r.result.Locations, "photos", r.result.Photos,
		"skipped_files", r.result.SkippedFiles, "warnings", len(r.result.Warnings))
	return r.result, nil
}

// reject records a file refused by the guard. Under the strict policy it
// returns the error that ends the run.
func (r *importRun) reject(name string, err error) error {
	if r.settings.StrictFiles {
		return newError("import", name, err)
	}
	r.skip(name, err)
	return nil
}

func (r *importRun) skip(name string, err error) {
	r.result.SkippedFiles++
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("%s: skipped: %v", name, err))
	r.log.Warn("file skipped", "file", name, "kind", KindOf(err), "error", err)
}

func (r *importRun) extract(ctx context.Context, arc *archive.Reader) error {
	total := arc.Len()
	done := 0
	for e := range arc.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		done++

		rel, err := r.guard.Check(e.Name(), e.Size())
		if err != nil {
			if rel, serr := r.guard.SanitizePath(e.Name()); serr == nil {
				r.rejected[rel] = true
			}
			if err := r.reject(e.Name(), err); err != nil {
				return err
			}
			continue
		}

		table, isTable := codec.TableForFile(rel)
		isPhoto := path.Dir(rel) == photos.Dir
		switch {
		case isTable && !r.cfg.Includes(table.Kind), isPhoto && !r.cfg.IncludePhotos:
			r.log.Debug("archive entry disabled by config", "file", rel)
			continue
		case !isTable && !isPhoto:
			r.log.Debug("archive entry ignored", "file", rel)
			continue
		}

		full, err := r.guard.Resolve(r.tree, rel)
		if err == nil {
			err = r.extractEntry(e, full)
		}
		if err != nil {
			if KindOf(err) == KindIO {
				return fmt.Errorf("extract %s: %w", rel, err)
			}
			r.rejected[rel] = true
			if err := r.reject(rel, err); err != nil {
				return err
			}
			continue
		}

		if isTable {
			r.tables[rel] = full
		}
		r.em.count(PhaseUnzipping, done, total)
	}
	r.em.fraction(PhaseUnzipping, 1)
	return nil
}

// extractEntry copies one entry to full. The declared size was already
// checked; the copy is capped as well in case the header lied.
func (r *importRun) extractEntry(e archive.Entry, full string) error {
	if err := r.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	rc, err := e.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := r.fs.Create(full)
	if err != nil {
		return err
	}
	limit := r.guard.MaxFileSize()
	n, err := io.Copy(f, io.LimitReader(rc, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > limit {
		r.fs.Remove(full)
		return r.guard.CheckSize(n)
	}
	return nil
}

func (r *importRun) read(ctx context.Context) error {
	present := 0
	for _, table := range codec.Tables {
		if _, ok := r.tables[table.FileName]; ok {
			present++
		}
	}

	done := 0
	r.em.count(PhaseReadingCSV, 0, present)
	for _, table := range codec.Tables {
		p, ok := r.tables[table.FileName]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.readTable(table, p); err != nil {
			return err
		}
		done++
		r.em.count(PhaseReadingCSV, done, present)
	}
	return nil
}

func (r *importRun) readTable(table codec.Table, p string) error {
	f, err := r.fs.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	rd, err := codec.NewReader(f, table, size)
	if err != nil {
		return &Error{Kind: KindInvalidZipFile, Op: "import", Path: table.FileName, Err: err}
	}

	rows := 0
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			r.warn("unreadable row skipped", fmt.Sprintf("%s: line %d: unreadable row skipped: %v", table.FileName, perr.StartLine, perr.Err))
			continue
		}
		if err != nil {
			return err
		}
		rows++

		var ferrs []codec.FieldError
		switch table.Kind {
		case inventory.KindHome:
			var row codec.HomeRow
			row, ferrs = codec.DecodeHome(rec)
			r.homes = append(r.homes, row)
		case inventory.KindLabel:
			var row codec.LabelRow
			row, ferrs = codec.DecodeLabel(rec)
			r.labels = append(r.labels, row)
		case inventory.KindLocation:
			var row codec.LocationRow
			row, ferrs = codec.DecodeLocation(rec)
			r.locations = append(r.locations, row)
		case inventory.KindItem:
			var row codec.ItemRow
			row, ferrs = codec.DecodeItem(rec)
			r.items = append(r.items, row)
		case inventory.KindPolicy:
			var row codec.PolicyRow
			row, ferrs = codec.DecodePolicy(rec)
			r.policies = append(r.policies, row)
		}
		for _, fe := range ferrs {
			r.warn("value replaced by default", fe.Error())
		}
	}

	r.log.Debug("table read", "file", table.FileName, "rows", rows, "bytes", rd.BytesRead())
	return nil
}

// warn records a recovered problem. msg is the log message, detail the
// text reported in ImportResult.Warnings.
func (r *importRun) warn(msg, detail string) {
	r.result.Warnings = append(r.result.Warnings, detail)
	r.log.Warn(msg, "detail", detail)
}

func (r *importRun) process(ctx context.Context) error {
	total := len(r.homes) + len(r.labels) + len(r.locations) + len(r.items) + len(r.policies)
	done := 0
	r.em.count(PhaseProcessingData, 0, total)

	progress := func(n int) {
		done += n
		r.em.count(PhaseProcessingData, done, total)
	}
	if err := processRows(ctx, r, r.homes, r.createHome, progress); err != nil {
		return err
	}
	if err := processRows(ctx, r, r.labels, r.createLabel, progress); err != nil {
		return err
	}
	if err := processRows(ctx, r, r.locations, r.createLocation, progress); err != nil {
		return err
	}
	if err := processRows(ctx, r, r.items, r.createItem, progress); err != nil {
		return err
	}
	if err := processRows(ctx, r, r.policies, r.createPolicy, progress); err != nil {
		return err
	}
	return nil
}

// processRows creates rows batch by batch; ctx is checked between batches.
func processRows[T any](ctx context.Context, r *importRun, rows []T, create func(context.Context, T) error, progress func(int)) error {
	for batch := range slices.Chunk(rows, r.settings.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range batch {
			if err := create(ctx, row); err != nil {
				return err
			}
		}
		progress(len(batch))
	}
	return nil
}

func (r *importRun) createHome(ctx context.Context, row codec.HomeRow) error {
	h := row.Home
	if err := r.store.CreateHome(ctx, &h); err != nil {
		return fmt.Errorf("create home %q: %w", h.Name, err)
	}
	r.result.add(inventory.KindHome, 1)
	r.res.rememberHome(h.Name, h.ID)
	if row.ArchiveID != "" {
		r.archiveHomes[row.ArchiveID] = h.ID
	}
	return nil
}

func (r *importRun) createLabel(ctx context.Context, row codec.LabelRow) error {
	l := row.Label
	if err := r.store.CreateLabel(ctx, &l); err != nil {
		return fmt.Errorf("create label %q: %w", l.Name, err)
	}
	r.result.add(inventory.KindLabel, 1)
	r.res.rememberLabel(l.Name, l.ID)
	return nil
}

func (r *importRun) createLocation(ctx context.Context, row codec.LocationRow) error {
	l := row.Location
	if row.HomeName != "" && r.cfg.IncludeHomes {
		id, err := r.res.home(ctx, row.HomeName)
		if err != nil {
			return err
		}
		l.Home = &inventory.Ref{ID: id, Name: row.HomeName}
	}
	if err := r.store.CreateLocation(ctx, &l); err != nil {
		return fmt.Errorf("create location %q: %w", l.Name, err)
	}
	r.result.add(inventory.KindLocation, 1)
	r.res.rememberLocation(row.HomeName, l.Name, l.ID)
	if row.LocationID != "" {
		r.archiveLocations[row.LocationID] = l.ID
	}

	if row.PhotoFilename != "" && r.cfg.IncludePhotos {
		r.pending = append(r.pending, pendingPhoto{kind: inventory.KindLocation, owner: l.ID, name: row.PhotoFilename})
	}
	return nil
}

func (r *importRun) createItem(ctx context.Context, row codec.ItemRow) error {
	it := row.Item
	if row.LocationName != "" && r.cfg.IncludeLocations {
		id, err := r.itemLocation(ctx, row)
		if err != nil {
			return err
		}
		it.Location = &inventory.Ref{ID: id, Name: row.LocationName}
	}
	if row.HomeName != "" && r.cfg.IncludeHomes {
		id, err := r.res.home(ctx, row.HomeName)
		if err != nil {
			return err
		}
		it.Home = &inventory.Ref{ID: id, Name: row.HomeName}
	}
	if r.cfg.IncludeLabels {
		for _, name := range row.LabelNames {
			id, err := r.res.label(ctx, name)
			if err != nil {
				return err
			}
			if !slices.ContainsFunc(it.Labels, func(ref inventory.Ref) bool { return ref.ID == id }) {
				it.Labels = append(it.Labels, inventory.Ref{ID: id, Name: name})
			}
		}
	}

	if err := r.store.CreateItem(ctx, &it); err != nil {
		return fmt.Errorf("create item %q: %w", it.Title, err)
	}
	r.result.add(inventory.KindItem, 1)

	if r.cfg.IncludePhotos {
		for i, name := range row.PhotoFilenames {
			r.pending = append(r.pending, pendingPhoto{kind: inventory.KindItem, owner: it.ID, name: name, sortOrder: i})
		}
	}
	return nil
}

// itemLocation prefers the archive-local LocationID, which tells apart
// same-named locations of different homes; the name is the fallback for
// archives without locations.csv ids.
func (r *importRun) itemLocation(ctx context.Context, row codec.ItemRow) (uuid.UUID, error) {
	if id, ok := r.archiveLocations[row.LocationID]; ok && row.LocationID != "" {
		return id, nil
	}
	return r.res.location(ctx, row.HomeName, row.LocationName)
}

func (r *importRun) createPolicy(ctx context.Context, row codec.PolicyRow) error {
	p := row.Policy
	for _, archiveID := range row.HomeArchiveIDs {
		id, ok := r.archiveHomes[archiveID]
		if !ok {
			r.log.Debug("policy home not in archive", "policy", p.PolicyNumber, "home_id", archiveID)
			continue
		}
		if !slices.Contains(p.HomeIDs, id) {
			p.HomeIDs = append(p.HomeIDs, id)
		}
	}
	if err := r.store.CreatePolicy(ctx, &p); err != nil {
		return fmt.Errorf("create policy %q: %w", p.PolicyNumber, err)
	}
	r.result.add(inventory.KindPolicy, 1)
	return nil
}

// attachPhotos reads each referenced photo from the extracted tree and
// attaches it to its row. Missing and rejected photos are skipped.
func (r *importRun) attachPhotos(ctx context.Context) error {
	total := len(r.pending)
	if total == 0 {
		r.em.fraction(PhaseCopyingPhotos, 1)
		return nil
	}

	mat := photos.New(r.fs, r.tree, r.guard)
	for i, p := range r.pending {
		if i%r.settings.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := r.attachPhoto(ctx, mat, p); err != nil {
			return err
		}
		if ShouldEmitPhoto(i+1, total) {
			r.em.count(PhaseCopyingPhotos, i+1, total)
		}
	}
	return nil
}

func (r *importRun) attachPhoto(ctx context.Context, mat *photos.Materializer, p pendingPhoto) error {
	name := strings.TrimPrefix(p.name, photos.Dir+"/")
	if r.rejected[path.Join(photos.Dir, name)] {
		return nil
	}

	data, err := mat.Read(name)
	switch {
	case errors.Is(err, photos.ErrNotFound):
		r.skip(name, err)
		return nil
	case err != nil && KindOf(err) != KindIO:
		return r.reject(name, err)
	case err != nil:
		return err
	}

	photo := inventory.Photo{SortOrder: p.sortOrder, Ext: photos.Ext(name), Data: data}
	if err := r.store.AttachPhoto(ctx, p.kind, p.owner, photo); err != nil {
		return fmt.Errorf("attach photo %s: %w", name, err)
	}
	r.result.Photos++
	return nil
}
