package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coord is a latitude or longitude as stored by the server. The records file
// keeps empty cells as "", so the JSON value may be a number, a numeric string,
// an empty string or null.
type Coord struct {
	Value float64
	Valid bool
}

// NewCoord returns a valid coordinate.
func NewCoord(v float64) Coord {
	return Coord{Value: v, Valid: true}
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Coord{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			// Non-numeric text is kept as an invalid coordinate rather than failing the whole payload
			return nil
		}
		*c = NewCoord(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = NewCoord(v)
	return nil
}

func (c Coord) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte(`""`), nil
	}
	return []byte(strconv.FormatFloat(c.Value, 'f', -1, 64)), nil
}

// String renders the coordinate the way the records table shows it.
func (c Coord) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}
