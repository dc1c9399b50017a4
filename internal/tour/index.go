package tour

import (
	"encoding/json"
	"fmt"

	"otb/internal/services"
)

// Index lists the tours in a bundle in export order.
type Index struct {
	Tours []IndexEntry `json:"tours"`
}

// IndexEntry points at one tour document inside a bundle.
type IndexEntry struct {
	Name      string     `json:"name"`
	Thumbnail *AssetName `json:"thumbnail"`
	Content   AssetName  `json:"content"`
}

// EncodeIndex serializes idx canonically.
func EncodeIndex(idx Index) ([]byte, error) {
	if idx.Tours == nil {
		idx.Tours = []IndexEntry{}
	}
	data, err := marshalCanonical(idx)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "index", "encode", "", err)
	}
	return data, nil
}

// DecodeIndex parses a bundle index.
func DecodeIndex(data []byte) (Index, error) {
	var w struct {
		Tours *[]struct {
			Name      *string    `json:"name"`
			Thumbnail *AssetName `json:"thumbnail"`
			Content   *AssetName `json:"content"`
		} `json:"tours"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return Index{}, services.Wrap(services.ErrMalformedInput, "index", "decode", "", err)
	}
	if w.Tours == nil {
		return Index{}, services.Wrap(services.ErrMalformedInput, "index", "decode", "", missingFields{"tours"}.err("index"))
	}
	idx := Index{Tours: make([]IndexEntry, 0, len(*w.Tours))}
	for i, e := range *w.Tours {
		var missing missingFields
		missing.need("name", e.Name != nil)
		missing.need("content", e.Content != nil)
		if err := missing.err(fmt.Sprintf("index entry %d", i)); err != nil {
			return Index{}, services.Wrap(services.ErrMalformedInput, "index", "decode", "", err)
		}
		idx.Tours = append(idx.Tours, IndexEntry{Name: *e.Name, Thumbnail: e.Thumbnail, Content: *e.Content})
	}
	return idx, nil
}

// AssetMeta is the optional sidecar stored next to an asset. It carries
// accessibility and attribution text.
type AssetMeta struct {
	Alt    *string `json:"alt"`
	Attrib *string `json:"attrib"`
}

// DecodeAssetMeta parses a sidecar document. Both fields are optional.
func DecodeAssetMeta(data []byte) (AssetMeta, error) {
	var meta AssetMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return AssetMeta{}, services.Wrap(services.ErrMalformedInput, "asset meta", "decode", "", err)
	}
	return meta, nil
}

// EncodeAssetMeta serializes meta canonically.
func EncodeAssetMeta(meta AssetMeta) ([]byte, error) {
	data, err := marshalCanonical(meta)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "asset meta", "encode", "", err)
	}
	return data, nil
}
