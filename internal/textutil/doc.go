// Package textutil provides text folding helpers for building filesystem-safe
// names.
//
// The primary use cases are:
//   - Turning project and tour names into lowercase slugs for bundle filenames
//   - Deriving valid asset names from arbitrary imported filenames
//
// Both helpers fold accented Latin characters to their ASCII base letters
// before filtering, so "Café Tour" becomes "cafe-tour" rather than "caf-tour".
package textutil
