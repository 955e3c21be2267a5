package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordUnmarshal(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{`8.95`, 8.95, true},
		{`"-79.55"`, -79.55, true},
		{`" 1.5 "`, 1.5, true},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"n/a"`, 0, false},
		{`"NaN"`, 0, false},
		{`"Inf"`, 0, false},
		{`"-Inf"`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c Coord
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.valid, c.Valid)
			assert.Equal(t, tt.want, c.Value)
		})
	}

	var c Coord
	assert.Error(t, json.Unmarshal([]byte(`true`), &c))
}

func TestCoordMarshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A Coord `json:"a"`
		B Coord `json:"b"`
	}{A: NewCoord(-79.5), B: Coord{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":-79.5,"b":""}`, string(b))
}

func TestDetectionFromRecordsFile(t *testing.T) {
	var d Detection
	err := json.Unmarshal([]byte(`{
		"fecha":"2024-05-01","hora":"21:40:10","especie":"tapir",
		"lat":"8.91","lon":"","camara":"2","imagen":"2024-05-01/tapir.jpg","confianza":"0.8765"
	}`), &d)
	require.NoError(t, err)

	_, _, ok := d.Position()
	assert.False(t, ok, "a missing longitude makes the position unusable")
	assert.Equal(t, 21, d.Hour())
	assert.Equal(t, "2024-05-01 21:40:10", d.Timestamp())
	assert.Equal(t, "0.88", d.Confidence.Format())
}

func TestDetectionBox(t *testing.T) {
	var d Detection
	require.NoError(t, json.Unmarshal([]byte(`{
		"fecha":"2024-05-01","hora":"21:40:10","especie":"tapir",
		"x1":12,"y1":40,"x2":"310","y2":228,"confianza":0.91
	}`), &d))

	x1, y1, x2, y2, ok := d.Box()
	require.True(t, ok)
	assert.Equal(t, []int{12, 40, 310, 228}, []int{x1, y1, x2, y2})

	d.Y2 = Coord{}
	_, _, _, _, ok = d.Box()
	assert.False(t, ok)
}

func TestDetectionHourFallback(t *testing.T) {
	assert.Equal(t, 0, Detection{Time: ""}.Hour())
	assert.Equal(t, 0, Detection{Time: "99:00"}.Hour())
	assert.Equal(t, 7, Detection{Time: "07:05"}.Hour())
}

func TestConfidenceFormatMissing(t *testing.T) {
	assert.Equal(t, "-", Confidence{}.Format())
}

func TestDevice(t *testing.T) {
	var cam Camera
	require.NoError(t, json.Unmarshal([]byte(`{"nombre":"A","lat":1,"lon":2,"device":"3"}`), &cam))
	assert.Equal(t, NewDevice(3), cam.Device)

	require.NoError(t, json.Unmarshal([]byte(`{"nombre":"A","device":null}`), &cam))
	assert.False(t, cam.Device.Valid)
	assert.Equal(t, "", cam.Device.String())

	b, err := json.Marshal(cam.Device)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestCameraDirectoryOrder(t *testing.T) {
	dir := CameraDirectory{
		"10":    {Name: "ten"},
		"2":     {Name: "two"},
		"norte": {Name: "north"},
		"1":     {},
	}
	entries := dir.Cameras()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"1", "2", "10", "norte"}, ids)
	assert.Equal(t, "Cam 1", entries[0].DisplayName("1"))

	clone := dir.Clone()
	clone["2"] = Camera{Name: "changed"}
	assert.Equal(t, "two", dir["2"].Name)
}

func TestAPIResult(t *testing.T) {
	assert.True(t, APIResult{Status: "ok"}.OK())
	assert.True(t, APIResult{Success: true}.OK())
	assert.False(t, APIResult{Error: "not_found"}.OK())
}

func TestSummaryLastDetectionLabel(t *testing.T) {
	last := "2024-05-02 06:55:31"
	assert.Equal(t, last, Summary{LastDetection: &last}.LastDetectionLabel())
	assert.Equal(t, "-", Summary{}.LastDetectionLabel())
}
