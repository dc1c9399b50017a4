package bundle

import (
	"encoding/hex"
	"strings"
)

const (
	// IndexName is the well-known entry holding the bundle index.
	IndexName = "index.json"
	// TourExt is appended to a tour document's digest to form its entry name.
	TourExt = ".otb.json"
	// DefaultMetadataSuffix names asset sidecars on disk and in the bundle.
	DefaultMetadataSuffix = ".meta.json"

	digestLen = 64
)

// Suffix returns everything after the first dot in source, or "" when there
// is no dot. "town.osm.pbf" yields "osm.pbf".
func Suffix(source string) string {
	_, after, found := strings.Cut(source, ".")
	if !found {
		return ""
	}
	return after
}

// ArchiveName joins a hex digest and the suffix of source. A source without a
// dot yields a name ending in ".".
func ArchiveName(digest, source string) string {
	return digest + "." + Suffix(source)
}

// TourEntryName returns the entry name for a tour document with the given
// digest.
func TourEntryName(digest string) string {
	return digest + TourExt
}

// SplitArchiveName separates a content-addressed entry name into its digest
// and suffix. ok is false when name does not start with a 64 character
// lowercase hex digest followed by a dot.
func SplitArchiveName(name string) (digest, suffix string, ok bool) {
	if len(name) < digestLen+1 || name[digestLen] != '.' {
		return "", "", false
	}
	digest = name[:digestLen]
	if strings.ToLower(digest) != digest {
		return "", "", false
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", false
	}
	return digest, name[digestLen+1:], true
}
