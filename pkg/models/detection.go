package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Detection is one row of the server's detection log.
// Field names follow the server's JSON keys.
type Detection struct {
	Date       string     `json:"fecha"`              // YYYY-MM-DD
	Time       string     `json:"hora"`               // HH:MM:SS
	Species    string     `json:"especie"`            // e.g. "jaguar", "rana_dorada"
	Lat        Coord      `json:"lat"`
	Lon        Coord      `json:"lon"`
	Camera     string     `json:"camara"`             // e.g. "Cam 0"
	Confidence Confidence `json:"confianza,omitempty"`
	Image      string     `json:"imagen"`             // path under /captures/

	// Bounding box of the detection in the capture, in pixels
	X1 Coord `json:"x1"`
	Y1 Coord `json:"y1"`
	X2 Coord `json:"x2"`
	Y2 Coord `json:"y2"`
}

// Position returns the detection's coordinates. ok is false when either
// coordinate is missing or not numeric.
func (d Detection) Position() (lat, lon float64, ok bool) {
	if !d.Lat.Valid || !d.Lon.Valid {
		return 0, 0, false
	}
	return d.Lat.Value, d.Lon.Value, true
}

// Box returns the bounding box corners. ok is false when any corner is missing.
func (d Detection) Box() (x1, y1, x2, y2 int, ok bool) {
	if !d.X1.Valid || !d.Y1.Valid || !d.X2.Valid || !d.Y2.Valid {
		return 0, 0, 0, 0, false
	}
	return int(d.X1.Value), int(d.Y1.Value), int(d.X2.Value), int(d.Y2.Value), true
}

// Hour returns the hour of day of the detection, 0 when the time is unparsable.
func (d Detection) Hour() int {
	h, _, _ := strings.Cut(d.Time, ":")
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n > 23 {
		return 0
	}
	return n
}

// Timestamp joins date and time the way the summary endpoint does.
func (d Detection) Timestamp() string {
	return strings.TrimSpace(d.Date + " " + d.Time)
}

// At parses the detection time in loc. ok is false when date or time is malformed.
func (d Detection) At(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(timestampLayout, d.Timestamp(), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Confidence is the model score. Like coordinates, it may arrive as a number,
// a numeric string or an empty string.
type Confidence struct {
	Coord
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	return c.Coord.UnmarshalJSON(data)
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	return c.Coord.MarshalJSON()
}

// Format renders the score with two decimals, or "-" when absent.
func (c Confidence) Format() string {
	if !c.Valid {
		return "-"
	}
	return strconv.FormatFloat(c.Value, 'f', 2, 64)
}

// StreamEvent is one push notification from the live channel.
// The server only ever sends {"type":"update"}; the payload is kept opaque.
type StreamEvent struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}
