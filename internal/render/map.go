package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"camtrap-cli/pkg/models"
)

// Marker is one detection placed on the map.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Species string  `json:"species"`
	Label   string  `json:"label"`
	Color   string  `json:"color"`
	Popup   string  `json:"popup"`
}

// Bounds is the box enclosing all markers.
type Bounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Map places one marker per detection with a usable position. Records
// without coordinates are skipped here but still count everywhere else.
type Map struct {
	mu      sync.RWMutex
	markers []Marker
}

func NewMap() *Map { return &Map{} }

func (m *Map) Name() string { return "map" }

// Render clears all markers and redraws them from the snapshot.
func (m *Map) Render(snap *models.Snapshot) {
	markers := make([]Marker, 0, len(snap.Detections))
	for _, d := range snap.Detections {
		lat, lon, ok := d.Position()
		if !ok {
			continue
		}
		label := SpeciesLabel(d.Species)
		markers = append(markers, Marker{
			Lat:     lat,
			Lon:     lon,
			Species: d.Species,
			Label:   label,
			Color:   SpeciesColor(d.Species),
			Popup:   fmt.Sprintf("%s\n%s %s\n%s", label, d.Date, d.Time, d.Camera),
		})
	}

	m.mu.Lock()
	m.markers = markers
	m.mu.Unlock()
}

// Markers returns a copy of the current markers.
func (m *Map) Markers() []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Marker(nil), m.markers...)
}

// Bounds returns the marker bounding box; ok is false when the map is empty.
func (m *Map) Bounds() (b Bounds, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.markers) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: 90, MinLon: 180, MaxLat: -90, MaxLon: -180}
	for _, mk := range m.markers {
		b.MinLat = min(b.MinLat, mk.Lat)
		b.MaxLat = max(b.MaxLat, mk.Lat)
		b.MinLon = min(b.MinLon, mk.Lon)
		b.MaxLon = max(b.MaxLon, mk.Lon)
	}
	return b, true
}

func (m *Map) Draw(w io.Writer) error {
	markers := m.Markers()
	b, ok := m.Bounds()

	fmt.Fprintf(w, "MAP (%d markers)\n", len(markers))
	if !ok {
		_, err := fmt.Fprintln(w, "  no positioned detections")
		return err
	}
	fmt.Fprintf(w, "  bounds: %.5f,%.5f .. %.5f,%.5f\n", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  LAT\tLON\tSPECIES\tCOLOR")
	for _, mk := range markers {
		fmt.Fprintf(tw, "  %.5f\t%.5f\t%s\t%s\n", mk.Lat, mk.Lon, mk.Label, mk.Color)
	}
	return tw.Flush()
}
