package core

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/logging"
)

// Service runs exports and imports against one store. At most one run is
// active at a time; a concurrent request fails with ErrOperationInProgress.
type Service struct {
	store    inventory.Store
	fs       afero.Fs
	settings Settings
	guard    *guard.Guard
	limiter  *OperationLimiter
	logger   *slog.Logger
}

// NewService creates a Service. fs hosts scratch trees, archives and the
// output directory. A nil logger means the logger of each call's context.
func NewService(store inventory.Store, fs afero.Fs, settings Settings, logger *slog.Logger) *Service {
	settings = settings.withDefaults()
	return &Service{
		store:    store,
		fs:       fs,
		settings: settings,
		guard:    guard.New(settings.Guard),
		limiter:  NewOperationLimiter(1),
		logger:   logger,
	}
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings { return s.settings }

// StartExport begins an export and returns its handle immediately.
func (s *Service) StartExport(ctx context.Context, cfg ExportConfig) *ExportOperation {
	return startOperation(ctx, s, "export", MapExport,
		func(ctx context.Context, em *emitter) (ExportResult, error) {
			return s.runExport(ctx, em, cfg)
		},
		func(r ExportResult) Event { return ExportCompleted{Result: r} },
	)
}

// Export runs an export to completion.
func (s *Service) Export(ctx context.Context, cfg ExportConfig) (ExportResult, error) {
	return s.StartExport(ctx, cfg).Drain()
}

// StartImport begins importing the archive at path and returns its handle
// immediately.
func (s *Service) StartImport(ctx context.Context, path string, cfg ImportConfig) *ImportOperation {
	return startOperation(ctx, s, "import", MapImport,
		func(ctx context.Context, em *emitter) (ImportResult, error) {
			return s.runImport(ctx, em, path, cfg)
		},
		func(r ImportResult) Event { return ImportCompleted{Result: r} },
	)
}

// Import runs an import to completion.
func (s *Service) Import(ctx context.Context, path string, cfg ImportConfig) (ImportResult, error) {
	return s.StartImport(ctx, path, cfg).Drain()
}

// BackupStore copies the raw store into the file dest. Stores that cannot
// be copied as a file fail with ErrContainerNotConfigured.
func (s *Service) BackupStore(ctx context.Context, dest string) error {
	if err := s.limiter.TryAcquire("backup"); err != nil {
		return err
	}
	defer s.limiter.Release()

	snap, ok := s.store.(inventory.Snapshotter)
	if !ok {
		return &Error{Kind: KindContainerNotConfigured, Op: "backup", Path: dest}
	}
	if err := snap.Snapshot(ctx, dest); err != nil {
		return newError("backup", dest, err)
	}
	s.loggerFor(ctx).Info("store backed up", "dest", dest)
	return nil
}

func (s *Service) loggerFor(ctx context.Context) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.FromContext(ctx)
}

// WaitIdle blocks until no run is active or ctx is done.
func (s *Service) WaitIdle(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
