package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/movingbox/inventory-archive/internal/core"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func cmdExport(a *app) *cobra.Command {
	var noPhotos bool
	var only []string
	var homes []string
	var outputDir string
	var cmd = &cobra.Command{
		Use:   "export",
		Short: "export the inventory to a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSections(only)
			if err != nil {
				return err
			}
			homeIDs, err := parseHomeIDs(homes)
			if err != nil {
				return err
			}
			if outputDir != "" {
				a.cfg.Export.OutputDir = outputDir
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.shutdown()

			cfg := core.ExportConfig{
				IncludeItems:     sel.items,
				IncludeLocations: sel.locations,
				IncludeLabels:    sel.labels,
				IncludeHomes:     sel.homes,
				IncludePolicies:  sel.policies,
				IncludePhotos:    !noPhotos,
				IncludedHomeIDs:  homeIDs,
			}
			p := newProgressPrinter(cmd.ErrOrStderr(), core.MapExport, a.quiet)
			res, err := follow(a.svc.StartExport(ctx, cfg), p)
			if err != nil {
				return err
			}
			printExportResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPhotos, "no-photos", false, "leave photos out of the archive")
	cmd.Flags().StringSliceVar(&only, "only", nil, "export only these sections (items, locations, labels, homes, policies)")
	cmd.Flags().StringSliceVar(&homes, "home", nil, "export only rows belonging to this home id (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory receiving the archive")
	return cmd
}

func cmdImport(a *app) *cobra.Command {
	var noPhotos bool
	var only []string
	var strict bool
	var cmd = &cobra.Command{
		Use:   "import <archive>",
		Short: "import a zip archive into the inventory",
		Args:  cobra.ExactArgs(1), // require path to the archive
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSections(only)
			if err != nil {
				return err
			}
			if strict {
				a.cfg.Import.StrictFiles = true
			}

			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.shutdown()

			cfg := core.ImportConfig{
				IncludeItems:     sel.items,
				IncludeLocations: sel.locations,
				IncludeLabels:    sel.labels,
				IncludeHomes:     sel.homes,
				IncludePolicies:  sel.policies,
				IncludePhotos:    !noPhotos,
			}
			p := newProgressPrinter(cmd.ErrOrStderr(), core.MapImport, a.quiet)
			res, err := follow(a.svc.StartImport(ctx, args[0], cfg), p)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPhotos, "no-photos", false, "do not attach photos from the archive")
	cmd.Flags().StringSliceVar(&only, "only", nil, "import only these sections (items, locations, labels, homes, policies)")
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first rejected file instead of skipping it")
	return cmd
}

func cmdBackupDB(a *app) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "backup-db <dest>",
		Short: "copy the raw SQLite database to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.svc.BackupStore(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database copied to %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		Args:  cobra.NoArgs,
		// version needs neither configuration nor a store
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			v := version
			if bi, ok := debug.ReadBuildInfo(); ok && v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
				v = bi.Main.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "movingbox %s\n", v)
			return nil
		},
	}
	return cmd
}
