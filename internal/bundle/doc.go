// Package bundle builds and verifies content-addressed tour bundles.
//
// A bundle is a zip archive (entries stored, not deflated) holding:
//
//	index.json                         tour list in export order
//	<sha256>.otb.json                  one rewritten tour document per tour
//	<sha256>.<suffix>                  each distinct asset, stored once
//	<sha256>.<suffix>.meta.json        optional sidecar for an asset
//
// Export runs in two phases. Phase one loads each tour, rewrites every asset
// slot to the content-derived archive name via the Store, and writes the tour
// entry immediately. Phase two flushes the Store's distinct assets and their
// sidecars, writes the index, and seals the archive. Any error aborts the
// whole export; the caller discards the partial output.
package bundle
