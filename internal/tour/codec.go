package tour

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"otb/internal/services"
)

// Wire forms use pointers so that absent and null fields can be told apart
// from zero values.

type tourWire struct {
	Name      *string            `json:"name"`
	Desc      *string            `json:"desc"`
	Waypoints *[]json.RawMessage `json:"waypoints"`
	Gallery   *[]AssetName       `json:"gallery"`
	POIs      *[]poiWire         `json:"pois"`
	Tiles     *AssetName         `json:"tiles"`
	Path      *string            `json:"path"`
	Links     map[string]Link    `json:"links"`
}

type tourOut struct {
	Name      string          `json:"name"`
	Desc      string          `json:"desc"`
	Waypoints []any           `json:"waypoints"`
	Gallery   []AssetName     `json:"gallery"`
	POIs      []poiWire       `json:"pois"`
	Tiles     *AssetName      `json:"tiles"`
	Path      string          `json:"path"`
	Links     map[string]Link `json:"links"`
}

type stopWire struct {
	Type          string          `json:"type"`
	Name          *string         `json:"name"`
	Desc          *string         `json:"desc"`
	Lat           *float64        `json:"lat"`
	Lng           *float64        `json:"lng"`
	Narration     *AssetName      `json:"narration"`
	TriggerRadius *float64        `json:"trigger_radius"`
	Transcript    *AssetName      `json:"transcript"`
	Gallery       *[]AssetName    `json:"gallery"`
	Control       *ControlMode    `json:"control"`
	Links         map[string]Link `json:"links"`
}

type controlWire struct {
	Type    string       `json:"type"`
	Lat     *float64     `json:"lat"`
	Lng     *float64     `json:"lng"`
	Control *ControlMode `json:"control"`
}

type poiWire struct {
	Name    *string         `json:"name"`
	Desc    *string         `json:"desc"`
	Lat     *float64        `json:"lat"`
	Lng     *float64        `json:"lng"`
	Gallery *[]AssetName    `json:"gallery"`
	Links   map[string]Link `json:"links"`
}

type missingFields []string

func (m *missingFields) need(name string, present bool) {
	if !present {
		*m = append(*m, name)
	}
}

func (m missingFields) err(what string) error {
	if len(m) == 0 {
		return nil
	}
	return fmt.Errorf("%s: missing required field(s): %s", what, strings.Join(m, ", "))
}

// Decode parses a tour document.
func Decode(data []byte) (*Tour, error) {
	var t Tour
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "tour", "decode", "", err)
	}
	return &t, nil
}

// Load reads and decodes the tour document at path.
func Load(path string) (*Tour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "tour", "load", path, err)
		}
		return nil, services.Wrap(services.ErrIO, "tour", "load", path, err)
	}
	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Encode serializes t canonically. Nil slices are written as empty arrays.
func Encode(t *Tour) ([]byte, error) {
	if t == nil {
		return nil, services.Wrap(services.ErrMalformedInput, "tour", "encode", "", errNilTour)
	}
	if err := t.Validate(); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "tour", "encode", "", err)
	}
	out := tourOut{
		Name:      t.Name,
		Desc:      t.Desc,
		Waypoints: make([]any, 0, len(t.Waypoints)),
		Gallery:   nonNil(t.Gallery),
		POIs:      make([]poiWire, 0, len(t.POIs)),
		Tiles:     t.Tiles,
		Path:      t.Path,
		Links:     t.Links,
	}
	for _, wp := range t.Waypoints {
		switch v := wp.(type) {
		case *Stop:
			gallery := nonNil(v.Gallery)
			out.Waypoints = append(out.Waypoints, stopWire{
				Type:          typeStop,
				Name:          &v.Name,
				Desc:          &v.Desc,
				Lat:           &v.Lat,
				Lng:           &v.Lng,
				Narration:     v.Narration,
				TriggerRadius: &v.TriggerRadius,
				Transcript:    v.Transcript,
				Gallery:       &gallery,
				Control:       &v.Control,
				Links:         v.Links,
			})
		case *ControlPoint:
			out.Waypoints = append(out.Waypoints, controlWire{
				Type:    typeControl,
				Lat:     &v.Lat,
				Lng:     &v.Lng,
				Control: &v.Control,
			})
		}
	}
	for i := range t.POIs {
		p := &t.POIs[i]
		gallery := nonNil(p.Gallery)
		out.POIs = append(out.POIs, poiWire{
			Name:    &p.Name,
			Desc:    &p.Desc,
			Lat:     &p.Lat,
			Lng:     &p.Lng,
			Gallery: &gallery,
			Links:   p.Links,
		})
	}
	data, err := marshalCanonical(out)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "tour", "encode", "", err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (t *Tour) MarshalJSON() ([]byte, error) {
	return Encode(t)
}

// UnmarshalJSON implements json.Unmarshaler with strict field checks.
func (t *Tour) UnmarshalJSON(data []byte) error {
	var w tourWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var missing missingFields
	missing.need("name", w.Name != nil)
	missing.need("desc", w.Desc != nil)
	missing.need("waypoints", w.Waypoints != nil)
	missing.need("gallery", w.Gallery != nil)
	missing.need("pois", w.POIs != nil)
	missing.need("path", w.Path != nil)
	if err := missing.err("tour"); err != nil {
		return err
	}

	waypoints := make([]Waypoint, 0, len(*w.Waypoints))
	for i, raw := range *w.Waypoints {
		wp, err := decodeWaypoint(raw)
		if err != nil {
			return fmt.Errorf("waypoint %d: %w", i, err)
		}
		waypoints = append(waypoints, wp)
	}
	pois := make([]POI, 0, len(*w.POIs))
	for i, pw := range *w.POIs {
		var missing missingFields
		missing.need("name", pw.Name != nil)
		missing.need("desc", pw.Desc != nil)
		missing.need("lat", pw.Lat != nil)
		missing.need("lng", pw.Lng != nil)
		missing.need("gallery", pw.Gallery != nil)
		if err := missing.err(fmt.Sprintf("poi %d", i)); err != nil {
			return err
		}
		pois = append(pois, POI{
			Name:    *pw.Name,
			Desc:    *pw.Desc,
			Lat:     *pw.Lat,
			Lng:     *pw.Lng,
			Gallery: *pw.Gallery,
			Links:   pw.Links,
		})
	}

	*t = Tour{
		Name:      *w.Name,
		Desc:      *w.Desc,
		Waypoints: waypoints,
		Gallery:   *w.Gallery,
		POIs:      pois,
		Tiles:     w.Tiles,
		Path:      *w.Path,
		Links:     w.Links,
	}
	return nil
}

func decodeWaypoint(raw json.RawMessage) (Waypoint, error) {
	var tagged struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}
	if tagged.Type == nil {
		return nil, errors.New("missing type tag")
	}
	switch *tagged.Type {
	case typeStop:
		var w stopWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		var missing missingFields
		missing.need("name", w.Name != nil)
		missing.need("desc", w.Desc != nil)
		missing.need("lat", w.Lat != nil)
		missing.need("lng", w.Lng != nil)
		missing.need("trigger_radius", w.TriggerRadius != nil)
		missing.need("gallery", w.Gallery != nil)
		missing.need("control", w.Control != nil)
		if err := missing.err("stop"); err != nil {
			return nil, err
		}
		return &Stop{
			Name:          *w.Name,
			Desc:          *w.Desc,
			Lat:           *w.Lat,
			Lng:           *w.Lng,
			Narration:     w.Narration,
			TriggerRadius: *w.TriggerRadius,
			Transcript:    w.Transcript,
			Gallery:       *w.Gallery,
			Control:       *w.Control,
			Links:         w.Links,
		}, nil
	case typeControl:
		var w controlWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		var missing missingFields
		missing.need("lat", w.Lat != nil)
		missing.need("lng", w.Lng != nil)
		missing.need("control", w.Control != nil)
		if err := missing.err("control point"); err != nil {
			return nil, err
		}
		return &ControlPoint{Lat: *w.Lat, Lng: *w.Lng, Control: *w.Control}, nil
	default:
		return nil, fmt.Errorf("unknown type tag %q", *tagged.Type)
	}
}

// UnmarshalJSON rejects control modes other than route, path and none.
func (m *ControlMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("control mode: %w", err)
	}
	mode := ControlMode(s)
	if !mode.Valid() {
		return fmt.Errorf("control mode: unknown value %q", s)
	}
	*m = mode
	return nil
}

// UnmarshalJSON requires the href field.
func (l *Link) UnmarshalJSON(data []byte) error {
	var w struct {
		Href *string `json:"href"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Href == nil {
		return errors.New("link: missing required field(s): href")
	}
	l.Href = *w.Href
	return nil
}

func nonNil(names []AssetName) []AssetName {
	if names == nil {
		return []AssetName{}
	}
	return names
}

// marshalCanonical encodes v compactly without HTML escaping and without the
// trailing newline json.Encoder appends.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
