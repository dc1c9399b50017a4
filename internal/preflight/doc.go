// Package preflight provides readiness checks for the filesystem paths and
// external services otb depends on.
//
// The CLI "otb check" command runs RunAll and renders the results as a table.
// Export also calls CheckDirectoryAccess on the destination directory before
// creating the bundle file.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
