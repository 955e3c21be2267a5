package models

import (
	"sort"
	"strconv"
)

// Camera is a single camera descriptor as stored in the server's camera file.
type Camera struct {
	Name   string `json:"nombre"`
	Lat    Coord  `json:"lat"`
	Lon    Coord  `json:"lon"`
	Device Device `json:"device"`
}

// DisplayName falls back to "Cam <id>" when the camera has no name.
func (c Camera) DisplayName(id string) string {
	if c.Name != "" {
		return c.Name
	}
	return "Cam " + id
}

// Device is the capture-device index assigned to a camera. The server stores
// whatever the form sent, so it may be a number, a numeric string or null.
type Device struct {
	Index int
	Valid bool
}

// NewDevice returns an assigned device index.
func NewDevice(i int) Device {
	return Device{Index: i, Valid: true}
}

func (d *Device) UnmarshalJSON(data []byte) error {
	var c Coord
	if err := c.UnmarshalJSON(data); err != nil {
		return err
	}
	*d = Device{}
	if c.Valid && c.Value == float64(int(c.Value)) {
		*d = NewDevice(int(c.Value))
	}
	return nil
}

func (d Device) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(d.Index)), nil
}

// String renders the index, or "" when unassigned.
func (d Device) String() string {
	if !d.Valid {
		return ""
	}
	return strconv.Itoa(d.Index)
}

// CameraDirectory is the GET /api/camaras response: camera id -> descriptor.
type CameraDirectory map[string]Camera

// CameraEntry pairs a descriptor with its id.
type CameraEntry struct {
	ID string `json:"id"`
	Camera
}

// Cameras returns the directory entries ordered by id. Numeric ids sort numerically.
func (d CameraDirectory) Cameras() []CameraEntry {
	out := make([]CameraEntry, 0, len(d))
	for id, cam := range d {
		out = append(out, CameraEntry{ID: id, Camera: cam})
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i].ID)
		b, errB := strconv.Atoi(out[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clone returns a shallow copy so cached directories are never mutated by callers.
func (d CameraDirectory) Clone() CameraDirectory {
	out := make(CameraDirectory, len(d))
	for id, cam := range d {
		out[id] = cam
	}
	return out
}

// SaveCameraPayload is the body for POST /api/guardar_camara.
// An empty ID asks the server to create a new camera.
type SaveCameraPayload struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"nombre"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Device int     `json:"device"`
}

// SetDevicePayload is the body for POST /api/camaras/{id}/set_device.
type SetDevicePayload struct {
	Device int `json:"device"`
}

// APIResult is the envelope returned by the mutating endpoints.
// Save returns {"status":"ok"}; delete and set_device return {"success":bool,"error":string}.
type APIResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the envelope signals success in either dialect.
func (r APIResult) OK() bool {
	return r.Success || r.Status == "ok"
}
