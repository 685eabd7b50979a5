// Command movingbox exports an inventory store to a portable zip archive and
// imports such archives back into a store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/movingbox/inventory-archive/internal/config"
	"github.com/movingbox/inventory-archive/internal/core"
	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configFile string
	logLevel   string
	quiet      bool

	cfg   *config.Config
	fs    afero.Fs
	store inventory.Store
	close func() error
	svc   *core.Service
}

func newRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	var cmdRoot = &cobra.Command{
		Use:           "movingbox",
		Short:         "Inventory archive utility",
		Long:          `Export an inventory to a zip archive of CSV files and photos, and import such archives back`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmdRoot.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "load configuration from a YAML file (default $"+config.FileEnv+")")
	cmdRoot.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	cmdRoot.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "do not print progress")

	cmdRoot.AddCommand(cmdExport(a))
	cmdRoot.AddCommand(cmdImport(a))
	cmdRoot.AddCommand(cmdBackupDB(a))
	cmdRoot.AddCommand(cmdVersion())
	return cmdRoot
}

// setup loads .env, the configuration and the logger.
func (a *app) setup() error {
	// Load .env file if it exists; variables already set win
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	path := a.configFile
	if path == "" {
		path = os.Getenv(config.FileEnv)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

// open connects the configured store and builds the service.
func (a *app) open(ctx context.Context) error {
	store, closeFn, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.store, a.close = store, closeFn
	a.svc = core.NewService(store, a.fs, settingsFrom(a.cfg), nil)
	return nil
}

func (a *app) shutdown() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		slog.Warn("closing store", "error", err)
	}
	a.close = nil
}

func settingsFrom(cfg *config.Config) core.Settings {
	return core.Settings{
		AppName:   cfg.Export.AppName,
		OutputDir: cfg.Export.OutputDir,
		WorkDir:   cfg.Export.WorkDir,
		BatchSize: cfg.Export.BatchSize,
		Guard: guard.Policy{
			MaxFileSize:       cfg.Import.MaxFileSize,
			AllowedExtensions: cfg.Import.AllowedExtensions,
		},
		StrictFiles: cfg.Import.StrictFiles,
	}
}

// reportError prints err, using the failure's user message when it is a
// classified pipeline error.
func reportError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	if errors.Is(err, context.Canceled) {
		red.Fprintln(w, "Cancelled")
		return
	}
	var pe *core.Error
	if !errors.As(err, &pe) {
		red.Fprintf(w, "Error: %v\n", err)
		return
	}
	msg := pe.Kind.UserMessage()
	red.Fprintf(w, "Error [%s]: %s\n", msg.Code, msg.Message)
	fmt.Fprintf(w, "  %s\n", msg.Action)
	fmt.Fprintf(w, "  %s\n", color.New(color.Faint).Sprint(err))
}
