package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"camtrap-cli/pkg/models"
)

// CameraList is the camera directory view with its count and empty state.
type CameraList struct {
	mu      sync.RWMutex
	entries []models.CameraEntry
	raw     models.CameraDirectory
}

func NewCameraList() *CameraList { return &CameraList{} }

func (c *CameraList) RenderCameras(dir models.CameraDirectory) {
	entries := dir.Cameras()
	c.mu.Lock()
	c.entries = entries
	c.raw = dir.Clone()
	c.mu.Unlock()
}

func (c *CameraList) Entries() []models.CameraEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.CameraEntry(nil), c.entries...)
}

func (c *CameraList) Draw(w io.Writer) error {
	entries := c.Entries()
	fmt.Fprintf(w, "CAMERAS (%d)\n", len(entries))
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "  no cameras configured")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEVICE\tLAT\tLON")
	fmt.Fprintln(tw, "--\t----\t------\t---\t---")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.DisplayName(e.ID), e.Device, e.Lat, e.Lon)
	}
	return tw.Flush()
}

// DrawRaw writes the directory exactly as the server returned it.
func (c *CameraList) DrawRaw(w io.Writer) error {
	c.mu.RLock()
	raw := c.raw
	c.mu.RUnlock()
	if raw == nil {
		raw = models.CameraDirectory{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}
