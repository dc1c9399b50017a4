package tour_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"otb/internal/services"
	"otb/internal/tour"
)

const sampleTour = `{
  "name": "Old Town <Walk>",
  "desc": "A short loop",
  "waypoints": [
    {"type": "waypoint", "name": "Gate", "desc": "Start here", "lat": 47.1, "lng": 8.5,
     "narration": "gate.mp3", "trigger_radius": 30, "transcript": "gate.txt",
     "gallery": ["gate.jpg", "gate-2.jpg"], "control": "route", "links": {"Site Link": {"href": "https://example.com"}}},
    {"type": "control", "lat": 47.2, "lng": 8.6, "control": "path"},
    {"type": "waypoint", "name": "Square", "desc": "", "lat": 47.3, "lng": 8.7,
     "trigger_radius": 15.5, "gallery": [], "control": "none"}
  ],
  "gallery": ["cover.jpg", "gate.jpg"],
  "pois": [{"name": "Fountain", "desc": "", "lat": 47.15, "lng": 8.55, "gallery": ["fountain.png"]}],
  "tiles": "town.osm.pbf",
  "path": "encoded-polyline",
  "links": {}
}`

func ptr(name string) *tour.AssetName {
	a := tour.AssetName(name)
	return &a
}

func TestDecodeSample(t *testing.T) {
	got, err := tour.Decode([]byte(sampleTour))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	want := &tour.Tour{
		Name: "Old Town <Walk>",
		Desc: "A short loop",
		Waypoints: []tour.Waypoint{
			&tour.Stop{
				Name:          "Gate",
				Desc:          "Start here",
				Lat:           47.1,
				Lng:           8.5,
				Narration:     ptr("gate.mp3"),
				TriggerRadius: 30,
				Transcript:    ptr("gate.txt"),
				Gallery:       []tour.AssetName{"gate.jpg", "gate-2.jpg"},
				Control:       tour.ControlRoute,
				Links:         map[string]tour.Link{"Site Link": {Href: "https://example.com"}},
			},
			&tour.ControlPoint{Lat: 47.2, Lng: 8.6, Control: tour.ControlPath},
			&tour.Stop{
				Name:          "Square",
				Lat:           47.3,
				Lng:           8.7,
				TriggerRadius: 15.5,
				Gallery:       []tour.AssetName{},
				Control:       tour.ControlNone,
			},
		},
		Gallery: []tour.AssetName{"cover.jpg", "gate.jpg"},
		POIs: []tour.POI{{
			Name:    "Fountain",
			Lat:     47.15,
			Lng:     8.55,
			Gallery: []tour.AssetName{"fountain.png"},
		}},
		Tiles: ptr("town.osm.pbf"),
		Path:  "encoded-polyline",
		Links: map[string]tour.Link{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded tour mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRoundTripIsStable(t *testing.T) {
	decoded, err := tour.Decode([]byte(sampleTour))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	first, err := tour.Encode(decoded)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	again, err := tour.Decode(first)
	if err != nil {
		t.Fatalf("Decode of encoded tour returned error: %v", err)
	}
	if diff := cmp.Diff(decoded, again); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	second, err := tour.Encode(again)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("encoding not stable:\n%s\n%s", first, second)
	}
	if !strings.Contains(string(first), "Old Town <Walk>") {
		t.Fatalf("expected HTML characters to stay unescaped, got %s", first)
	}
	if strings.HasSuffix(string(first), "\n") {
		t.Fatal("expected no trailing newline")
	}
}

func TestEncodeCanonicalForm(t *testing.T) {
	tr := &tour.Tour{
		Name:      "A",
		Waypoints: []tour.Waypoint{&tour.ControlPoint{Lat: 1, Lng: 2, Control: tour.ControlNone}},
	}
	got, err := tour.Encode(tr)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	want := `{"name":"A","desc":"","waypoints":[{"type":"control","lat":1,"lng":2,"control":"none"}],"gallery":[],"pois":[],"tiles":null,"path":"","links":null}`
	if string(got) != want {
		t.Fatalf("Encode = %s\nwant     %s", got, want)
	}
}

func TestEncodeRejectsInvalidControlMode(t *testing.T) {
	tr := tour.New("bad")
	tr.Waypoints = append(tr.Waypoints, &tour.ControlPoint{Control: "teleport"})
	_, err := tour.Encode(tr)
	if !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected malformed input error, got %v", err)
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "not json", doc: `{"name":`, want: "unexpected end"},
		{name: "missing name", doc: `{"desc":"","waypoints":[],"gallery":[],"pois":[],"path":""}`, want: "name"},
		{name: "null gallery", doc: `{"name":"","desc":"","waypoints":[],"gallery":null,"pois":[],"path":""}`, want: "gallery"},
		{name: "missing type", doc: `{"name":"","desc":"","waypoints":[{"lat":1,"lng":1,"control":"none"}],"gallery":[],"pois":[],"path":""}`, want: "type tag"},
		{name: "unknown type", doc: `{"name":"","desc":"","waypoints":[{"type":"stop","lat":1,"lng":1,"control":"none"}],"gallery":[],"pois":[],"path":""}`, want: "unknown type"},
		{name: "null waypoint", doc: `{"name":"","desc":"","waypoints":[null],"gallery":[],"pois":[],"path":""}`, want: "type tag"},
		{name: "bad control", doc: `{"name":"","desc":"","waypoints":[{"type":"control","lat":1,"lng":1,"control":"fly"}],"gallery":[],"pois":[],"path":""}`, want: "control mode"},
		{name: "stop missing radius", doc: `{"name":"","desc":"","waypoints":[{"type":"waypoint","name":"","desc":"","lat":1,"lng":1,"gallery":[],"control":"none"}],"gallery":[],"pois":[],"path":""}`, want: "trigger_radius"},
		{name: "poi missing gallery", doc: `{"name":"","desc":"","waypoints":[],"gallery":[],"pois":[{"name":"","desc":"","lat":1,"lng":1}],"path":""}`, want: "gallery"},
		{name: "link without href", doc: `{"name":"","desc":"","waypoints":[],"gallery":[],"pois":[],"path":"","links":{"x":{}}}`, want: "href"},
		{name: "array root", doc: `[]`, want: "cannot unmarshal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tour.Decode([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrMalformedInput) {
				t.Fatalf("expected malformed input marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestControlPointIgnoresAssetFields(t *testing.T) {
	doc := `{"name":"","desc":"","waypoints":[{"type":"control","lat":1,"lng":2,"control":"route","narration":"x.mp3","gallery":["y.jpg"]}],"gallery":[],"pois":[],"path":""}`
	tr, err := tour.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	calls := 0
	if err := tr.VisitAssets(func(*tour.AssetName) error { calls++; return nil }); err != nil {
		t.Fatalf("VisitAssets returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected control point to expose no asset slots, visited %d", calls)
	}
	encoded, err := tour.Encode(tr)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(string(encoded), "narration") || strings.Contains(string(encoded), "y.jpg") {
		t.Fatalf("control point encoding leaked asset fields: %s", encoded)
	}
}

func TestVisitAssetsOrder(t *testing.T) {
	tr, err := tour.Decode([]byte(sampleTour))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	var visited []string
	err = tr.VisitAssets(func(slot *tour.AssetName) error {
		visited = append(visited, slot.String())
		*slot = tour.AssetName(strings.ToUpper(slot.String()))
		return nil
	})
	if err != nil {
		t.Fatalf("VisitAssets returned error: %v", err)
	}
	want := []string{
		"cover.jpg", "gate.jpg",
		"town.osm.pbf",
		"gate.jpg", "gate-2.jpg", "gate.mp3", "gate.txt",
		"fountain.png",
	}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Fatalf("visit order mismatch (-want +got):\n%s", diff)
	}
	stop := tr.Waypoints[0].(*tour.Stop)
	if *stop.Narration != "GATE.MP3" || stop.Gallery[1] != "GATE-2.JPG" {
		t.Fatalf("expected slots rewritten in place, got %+v", stop)
	}
	if *tr.Tiles != "TOWN.OSM.PBF" || tr.POIs[0].Gallery[0] != "FOUNTAIN.PNG" {
		t.Fatal("expected tiles and poi gallery rewritten in place")
	}
}

func TestVisitAssetsStopsOnError(t *testing.T) {
	tr, err := tour.Decode([]byte(sampleTour))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	boom := errors.New("boom")
	calls := 0
	err = tr.VisitAssets(func(*tour.AssetName) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected visit to stop after 3 calls, got %d", calls)
	}
}

func TestThumbnail(t *testing.T) {
	tr := tour.New("empty")
	if tr.Thumbnail() != nil {
		t.Fatal("expected nil thumbnail for empty gallery")
	}
	tr.Gallery = []tour.AssetName{"x.jpg", "y.jpg"}
	thumb := tr.Thumbnail()
	if thumb == nil || *thumb != "x.jpg" {
		t.Fatalf("Thumbnail = %v, want x.jpg", thumb)
	}
	tr.Gallery[0] = "z.jpg"
	if *thumb != "x.jpg" {
		t.Fatal("thumbnail should not alias the gallery")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := tour.Load(filepath.Join(dir, "missing.otb.json")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	path := filepath.Join(dir, "t.otb.json")
	if err := os.WriteFile(path, []byte(sampleTour), 0o644); err != nil {
		t.Fatalf("write tour: %v", err)
	}
	tr, err := tour.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if tr.Name != "Old Town <Walk>" {
		t.Fatalf("Name = %q", tr.Name)
	}
}

func TestIndexEncodeDecode(t *testing.T) {
	idx := tour.Index{Tours: []tour.IndexEntry{
		{Name: "A", Thumbnail: ptr("abc.jpg"), Content: "111.otb.json"},
		{Name: "B", Content: "222.otb.json"},
	}}
	data, err := tour.EncodeIndex(idx)
	if err != nil {
		t.Fatalf("EncodeIndex returned error: %v", err)
	}
	want := `{"tours":[{"name":"A","thumbnail":"abc.jpg","content":"111.otb.json"},{"name":"B","thumbnail":null,"content":"222.otb.json"}]}`
	if string(data) != want {
		t.Fatalf("EncodeIndex = %s\nwant          %s", data, want)
	}
	back, err := tour.DecodeIndex(data)
	if err != nil {
		t.Fatalf("DecodeIndex returned error: %v", err)
	}
	if diff := cmp.Diff(idx, back); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}

	empty, err := tour.EncodeIndex(tour.Index{})
	if err != nil {
		t.Fatalf("EncodeIndex returned error: %v", err)
	}
	if string(empty) != `{"tours":[]}` {
		t.Fatalf("empty index = %s", empty)
	}
	if _, err := tour.DecodeIndex([]byte(`{"tours":[{"name":"x"}]}`)); !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected malformed input for missing content, got %v", err)
	}
}

func TestDecodeAssetMeta(t *testing.T) {
	meta, err := tour.DecodeAssetMeta([]byte(`{"alt":"A gate","attrib":null}`))
	if err != nil {
		t.Fatalf("DecodeAssetMeta returned error: %v", err)
	}
	if meta.Alt == nil || *meta.Alt != "A gate" || meta.Attrib != nil {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if _, err := tour.DecodeAssetMeta([]byte(`"nope"`)); !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}
