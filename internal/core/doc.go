// Package core runs inventory exports and imports.
//
// It holds the pipeline logic independent of any command line or storage
// backend. A [Service] wraps an [inventory.Store] and a filesystem, and can
// be driven from the movingbox command or from tests without modification.
//
// # Operations
//
// [Service.StartExport] and [Service.StartImport] return an [Operation] at
// once and run in their own goroutine. Progress arrives on
// [Operation.Events] as [Progress] values, followed by exactly one terminal
// event ([ExportCompleted], [ImportCompleted] or [Failed]) unless the run was
// cancelled:
//
//	op := svc.StartExport(ctx, core.DefaultExportConfig())
//	for ev := range op.Events() {
//	    fraction, label := core.MapExport(ev)
//	    fmt.Printf("\r%3.0f%% %s", fraction*100, label)
//	}
//	res, err := op.Wait()
//
// Only one run is active per Service. A second request fails with
// [ErrOperationInProgress].
//
// # Progress
//
// Each phase reports a local fraction. [MapExport] and [MapImport] place it
// inside the phase's weighted span of the whole run; the mapped fraction
// never decreases and ends at 1.
//
// # Archive Layout
//
// An archive holds up to five CSV files and a photos/ directory:
//
//	inventory.csv                  items
//	locations.csv                  locations
//	labels.csv                     labels
//	home-details.csv               homes
//	insurance-policy-details.csv   insurance policies
//	photos/item-<id>[-<n>].<ext>   item photos
//	photos/location-<id>.<ext>     location photos
//
// Relationships are written as names. Import resolves them against rows
// created earlier in the run, then the target store, and creates a bare row
// for a name neither knows.
//
// # Error Handling
//
// A failed run ends with a [Failed] event carrying an [Envelope]. Its
// [Kind] and support code classify the failure; [Envelope.ToError] rebuilds
// an error that matches the kind's sentinel with errors.Is.
package core
