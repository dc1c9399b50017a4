package testsupport

import "otb/internal/tour"

// NewTour builds a minimal tour whose top-level gallery holds the given
// asset names.
func NewTour(name string, gallery ...string) *tour.Tour {
	t := tour.New(name)
	t.Path = "path-" + name
	for _, g := range gallery {
		t.Gallery = append(t.Gallery, tour.AssetName(g))
	}
	return t
}

// AddStop appends a narrated stop with the given assets. Empty narration or
// transcript leaves the slot unset.
func AddStop(t *tour.Tour, name, narration, transcript string, gallery ...string) *tour.Stop {
	stop := &tour.Stop{
		Name:          name,
		Lat:           float64(len(t.Waypoints)),
		Lng:           float64(len(t.Waypoints)) + 0.5,
		TriggerRadius: 30,
		Gallery:       []tour.AssetName{},
		Control:       tour.ControlRoute,
	}
	if narration != "" {
		n := tour.AssetName(narration)
		stop.Narration = &n
	}
	if transcript != "" {
		tr := tour.AssetName(transcript)
		stop.Transcript = &tr
	}
	for _, g := range gallery {
		stop.Gallery = append(stop.Gallery, tour.AssetName(g))
	}
	t.Waypoints = append(t.Waypoints, stop)
	return stop
}

// AddControl appends a control point.
func AddControl(t *tour.Tour) *tour.ControlPoint {
	cp := &tour.ControlPoint{Lat: 1, Lng: 2, Control: tour.ControlPath}
	t.Waypoints = append(t.Waypoints, cp)
	return cp
}

// AddPOI appends a point of interest with the given gallery.
func AddPOI(t *tour.Tour, name string, gallery ...string) *tour.POI {
	poi := tour.POI{Name: name, Gallery: []tour.AssetName{}}
	for _, g := range gallery {
		poi.Gallery = append(poi.Gallery, tour.AssetName(g))
	}
	t.POIs = append(t.POIs, poi)
	return &t.POIs[len(t.POIs)-1]
}

// SetTiles sets the tour's tile package slot.
func SetTiles(t *tour.Tour, name string) {
	tiles := tour.AssetName(name)
	t.Tiles = &tiles
}
