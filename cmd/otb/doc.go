// Package main hosts the otb CLI entrypoint and command graph.
//
// The Cobra-based command tree manages projects, tours, and assets on disk,
// exports projects into shareable bundles, verifies existing bundles, and
// forwards route requests to the configured routing engine. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
