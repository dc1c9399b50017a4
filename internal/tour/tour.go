package tour

import (
	"errors"
	"fmt"
)

// AssetName is a reference slot. Before export it names a file in the
// project's assets directory; after export it names an archive entry.
type AssetName string

func (a AssetName) String() string { return string(a) }

// ControlMode says how the path between a waypoint and its successor is drawn.
type ControlMode string

const (
	ControlRoute ControlMode = "route"
	ControlPath  ControlMode = "path"
	ControlNone  ControlMode = "none"
)

// Valid reports whether m is a recognised control mode.
func (m ControlMode) Valid() bool {
	switch m {
	case ControlRoute, ControlPath, ControlNone:
		return true
	default:
		return false
	}
}

// Link is a named external hyperlink.
type Link struct {
	Href string `json:"href"`
}

// Tour is a narrated, geo-located sequence of waypoints plus points of
// interest.
type Tour struct {
	Name      string
	Desc      string
	Waypoints []Waypoint
	Gallery   []AssetName
	POIs      []POI
	Tiles     *AssetName
	Path      string
	Links     map[string]Link
}

// New returns an empty tour with the given display name.
func New(name string) *Tour {
	return &Tour{
		Name:      name,
		Waypoints: []Waypoint{},
		Gallery:   []AssetName{},
		POIs:      []POI{},
		Links:     map[string]Link{},
	}
}

// Waypoint is either a *Stop or a *ControlPoint. The set is closed.
type Waypoint interface {
	// Coordinates returns the waypoint position as latitude, longitude.
	Coordinates() (lat, lng float64)
	// Mode returns the control mode for the leg leaving this waypoint.
	Mode() ControlMode
	waypoint()
}

const (
	typeStop    = "waypoint"
	typeControl = "control"
)

// Stop is a narrated waypoint. It is the only waypoint variant that can
// reference assets.
type Stop struct {
	Name          string
	Desc          string
	Lat           float64
	Lng           float64
	Narration     *AssetName
	TriggerRadius float64
	Transcript    *AssetName
	Gallery       []AssetName
	Control       ControlMode
	Links         map[string]Link
}

func (s *Stop) Coordinates() (float64, float64) { return s.Lat, s.Lng }
func (s *Stop) Mode() ControlMode               { return s.Control }
func (*Stop) waypoint()                         {}

// ControlPoint shapes the route without being presented to the visitor.
type ControlPoint struct {
	Lat     float64
	Lng     float64
	Control ControlMode
}

func (c *ControlPoint) Coordinates() (float64, float64) { return c.Lat, c.Lng }
func (c *ControlPoint) Mode() ControlMode               { return c.Control }
func (*ControlPoint) waypoint()                         {}

// POI is an annotated location outside the ordered path.
type POI struct {
	Name    string
	Desc    string
	Lat     float64
	Lng     float64
	Gallery []AssetName
	Links   map[string]Link
}

// VisitAssets calls fn once for every populated asset slot in t, in this
// order: tour gallery, tiles, then for each stop its gallery, narration and
// transcript, then each POI gallery. Control points are skipped. Iteration
// stops at the first error, which is returned unchanged.
func (t *Tour) VisitAssets(fn func(slot *AssetName) error) error {
	if err := visitGallery(t.Gallery, fn); err != nil {
		return err
	}
	if t.Tiles != nil {
		if err := fn(t.Tiles); err != nil {
			return err
		}
	}
	for _, wp := range t.Waypoints {
		stop, ok := wp.(*Stop)
		if !ok {
			continue
		}
		if err := visitGallery(stop.Gallery, fn); err != nil {
			return err
		}
		if stop.Narration != nil {
			if err := fn(stop.Narration); err != nil {
				return err
			}
		}
		if stop.Transcript != nil {
			if err := fn(stop.Transcript); err != nil {
				return err
			}
		}
	}
	for i := range t.POIs {
		if err := visitGallery(t.POIs[i].Gallery, fn); err != nil {
			return err
		}
	}
	return nil
}

func visitGallery(gallery []AssetName, fn func(*AssetName) error) error {
	for i := range gallery {
		if err := fn(&gallery[i]); err != nil {
			return err
		}
	}
	return nil
}

// Thumbnail returns the first gallery entry, or nil when the gallery is empty.
func (t *Tour) Thumbnail() *AssetName {
	if len(t.Gallery) == 0 {
		return nil
	}
	thumb := t.Gallery[0]
	return &thumb
}

// Validate checks invariants that the type system cannot express.
func (t *Tour) Validate() error {
	for i, wp := range t.Waypoints {
		if wp == nil {
			return fmt.Errorf("waypoint %d: nil", i)
		}
		if mode := wp.Mode(); !mode.Valid() {
			return fmt.Errorf("waypoint %d: unknown control mode %q", i, mode)
		}
	}
	return nil
}

var errNilTour = errors.New("nil tour")
