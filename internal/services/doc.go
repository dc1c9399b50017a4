// Package services defines shared utilities consumed by the export pipeline,
// the project store, and the CLI.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with a
//     taxonomy (not found, malformed input, I/O, archive protocol) so callers
//     can classify them with errors.Is long after they were produced.
//   - Context helpers that stamp project names, tour identifiers, and
//     correlation identifiers for logging.
//
// Errors stay structured until the CLI boundary; only cmd/otb flattens them
// into a single human-readable line.
package services
