package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camtrap-cli/pkg/models"
)

func rec(species, date, clock, camera string, pos ...float64) models.Detection {
	d := models.Detection{Date: date, Time: clock, Species: species, Camera: camera}
	if len(pos) == 2 {
		d.Lat, d.Lon = models.NewCoord(pos[0]), models.NewCoord(pos[1])
	}
	return d
}

func snapshot(records ...models.Detection) *models.Snapshot {
	return &models.Snapshot{Seq: 1, Detections: records, FetchedAt: time.Now()}
}

func TestSpeciesLabelAndColor(t *testing.T) {
	assert.Equal(t, "Jaguar", SpeciesLabel("jaguar"))
	assert.Equal(t, "Rana Dorada", SpeciesLabel("rana_dorada"))
	assert.Equal(t, "Águila Harpía", SpeciesLabel("aguila_harpia"))
	assert.Equal(t, "Oso Hormiguero", SpeciesLabel("oso_hormiguero"))
	assert.Equal(t, "", SpeciesLabel(""))

	assert.Equal(t, "#FF5733", SpeciesColor("jaguar"))
	assert.Equal(t, "#6C757D", SpeciesColor("tapir"))
	assert.Equal(t, "#888", SpeciesColor("oso_hormiguero"))
}

func TestBuildChartsSingleRecord(t *testing.T) {
	set := BuildCharts([]models.Detection{rec("jaguar", "2024-05-01", "10:00:00", "1", 9.0, -79.5)})

	require.Len(t, set.Species, 1)
	assert.Equal(t, Bucket{Key: "jaguar", Label: "Jaguar", Value: 1, Color: "#FF5733"}, set.Species[0])
	assert.Equal(t, 1.0, set.Donut[0].Share)
	assert.Equal(t, []string{"2024-05-01"}, set.Dates)
	assert.Equal(t, []string{"1"}, set.Cameras)
	assert.Equal(t, 1, set.Hours[10])
}

func TestBuildChartsAggregates(t *testing.T) {
	data := []models.Detection{
		rec("jaguar", "2024-05-02", "06:10:00", "1"),
		rec("tapir", "2024-05-01", "21:00:00", ""),
		rec("jaguar", "2024-05-01", "06:45:00", "2"),
		rec("", "2024-05-01", "bad", "2"),
	}
	set := BuildCharts(data)

	keys := make([]string, len(set.Species))
	total := 0
	for i, b := range set.Species {
		keys[i] = b.Key
		total += b.Value
	}
	assert.Equal(t, []string{"jaguar", "tapir", "unknown"}, keys, "first-seen order")
	assert.Equal(t, len(data), total)

	assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, set.Dates, "dates sorted")
	assert.Equal(t, []int{1, 1}, set.Timeline[0].Values)
	assert.Equal(t, []int{1, 0}, set.Timeline[1].Values)

	assert.Equal(t, []string{"1", "sin_cam", "2"}, set.Cameras)
	assert.Equal(t, []int{1, 0, 1}, set.CameraStacks[0].Values)

	assert.Equal(t, 2, set.Hours[6])
	assert.Equal(t, 1, set.Hours[21])
	assert.Equal(t, 1, set.Hours[0], "unparsable time lands in hour 0")
}

func TestBuildChartsEmpty(t *testing.T) {
	set := BuildCharts(nil)
	assert.Empty(t, set.Species)
	assert.Empty(t, set.Dates)
	assert.Equal(t, [24]int{}, set.Hours)
}

func TestMapSkipsRecordsWithoutPosition(t *testing.T) {
	m := NewMap()
	m.Render(snapshot(
		rec("jaguar", "2024-05-01", "10:00:00", "1", 9.0, -79.5),
		rec("tapir", "2024-05-01", "11:00:00", "2"),
		rec("tapir", "2024-05-01", "12:00:00", "2", 8.5, -80.0),
	))

	markers := m.Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, "#FF5733", markers[0].Color)
	assert.Contains(t, markers[0].Popup, "Jaguar")

	b, ok := m.Bounds()
	require.True(t, ok)
	assert.Equal(t, Bounds{MinLat: 8.5, MinLon: -80.0, MaxLat: 9.0, MaxLon: -79.5}, b)

	// Full replacement on the next snapshot
	m.Render(snapshot())
	assert.Empty(t, m.Markers())
	_, ok = m.Bounds()
	assert.False(t, ok)
}

func TestMapSkipsNonFiniteCoordinates(t *testing.T) {
	var records []models.Detection
	require.NoError(t, json.Unmarshal([]byte(`[
		{"fecha":"2024-05-01","hora":"10:00:00","especie":"jaguar","lat":"NaN","lon":"-79.5","camara":"1"},
		{"fecha":"2024-05-01","hora":"11:00:00","especie":"tapir","lat":"8.5","lon":"-Inf","camara":"2"},
		{"fecha":"2024-05-01","hora":"12:00:00","especie":"tapir","lat":"8.5","lon":"-80","camara":"2"}
	]`), &records))

	m := NewMap()
	m.Render(snapshot(records...))

	require.Len(t, m.Markers(), 1)
	b, ok := m.Bounds()
	require.True(t, ok)
	assert.Equal(t, Bounds{MinLat: 8.5, MinLon: -80.0, MaxLat: 8.5, MaxLon: -80.0}, b)
}

func TestTableNewestFirst(t *testing.T) {
	tbl := NewTable()
	first := rec("jaguar", "2024-05-01", "10:00:00", "1")
	first.Image = "2024-05-01/a.jpg"
	tbl.Render(snapshot(first, rec("tapir", "2024-05-02", "11:00:00", "2")))

	rows := tbl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Tapir", rows[0].Species)
	assert.Equal(t, "", rows[0].Image)
	assert.Equal(t, "/captures/2024-05-01/a.jpg", rows[1].Image)

	var buf bytes.Buffer
	require.NoError(t, tbl.Draw(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "RECORDS (2)\n"))
}

func TestKPIKeepsLastSummary(t *testing.T) {
	k := NewKPI()
	_, ok := k.Summary()
	assert.False(t, ok)

	snap := snapshot()
	snap.Summary = &models.Summary{Total: 7, SpeciesCount: 2, CamerasActive: 3}
	k.Render(snap)
	k.Render(snapshot()) // no summary: stale values stay

	s, ok := k.Summary()
	require.True(t, ok)
	assert.Equal(t, 7, s.Total)

	var buf bytes.Buffer
	require.NoError(t, k.Draw(&buf))
	assert.Equal(t, "TOTAL 7 | SPECIES 2 | CAMERAS 3 | LAST -\n", buf.String())
}

func TestBannerShowsOneMessage(t *testing.T) {
	b := NewBanner()
	var buf bytes.Buffer
	require.NoError(t, b.Draw(&buf))
	assert.Empty(t, buf.String())

	b.Show("first")
	b.Show("second")
	buf.Reset()
	require.NoError(t, b.Draw(&buf))
	assert.Equal(t, "[!] second\n", buf.String())

	b.Dismiss()
	_, ok := b.Message()
	assert.False(t, ok)
}

func TestTickerCapsRows(t *testing.T) {
	tk := NewTicker(2)
	latest := rec("jaguar", "2024-05-03", "10:00:00", "1")
	latest.Confidence = models.Confidence{Coord: models.NewCoord(0.913)}
	tk.RenderLatest([]models.Detection{latest, rec("tapir", "2024-05-02", "", "2"), rec("tapir", "2024-05-01", "", "2")})

	require.Len(t, tk.Records(), 2)

	var buf bytes.Buffer
	require.NoError(t, tk.Draw(&buf))
	out := buf.String()
	assert.Contains(t, out, "LATEST (2)")
	assert.Contains(t, out, "0.91")
	assert.Contains(t, out, "-")
}

func TestCameraList(t *testing.T) {
	cl := NewCameraList()
	var buf bytes.Buffer
	require.NoError(t, cl.Draw(&buf))
	assert.Contains(t, buf.String(), "no cameras configured")

	cl.RenderCameras(models.CameraDirectory{
		"2": {Name: "Sendero", Device: models.NewDevice(1)},
		"1": {Lat: models.NewCoord(8.9), Lon: models.NewCoord(-79.5)},
	})
	entries := cl.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)

	buf.Reset()
	require.NoError(t, cl.Draw(&buf))
	assert.Contains(t, buf.String(), "CAMERAS (2)")
	assert.Contains(t, buf.String(), "Cam 1")

	buf.Reset()
	require.NoError(t, cl.DrawRaw(&buf))
	assert.JSONEq(t, `{
		"1": {"nombre":"","lat":8.9,"lon":-79.5,"device":null},
		"2": {"nombre":"Sendero","lat":"","lon":"","device":1}
	}`, buf.String())
}

func TestScreenDraw(t *testing.T) {
	s := NewScreen(5)
	s.Banner.Show("Error loading detections: boom")

	var buf bytes.Buffer
	require.NoError(t, s.Draw(&buf, true))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\033[H\033[2J"))
	assert.Equal(t, 1, strings.Count(out, "[!]"))
	for _, section := range []string{"TOTAL", "MAP", "DETECTIONS BY SPECIES", "RECORDS", "LATEST"} {
		assert.Contains(t, out, section)
	}
}
